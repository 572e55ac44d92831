package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Миграции лежат в sql/migrations парами NNNN_name.up.sql и NNNN_name.down.sql.
// schema_migrations хранит применённые версии с контрольной суммой up-скрипта.

const (
	migrationsDir        = "sql/migrations"
	migrationLockKey     = int64(0x706f6d67)
	migrationLockTimeout = 5 * time.Second
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// ErrMigrationChecksumMismatch — применённая миграция отличается от встроенного файла.
var ErrMigrationChecksumMismatch = errors.New("applied migration differs from embedded file")

var schemaMigrationsDDL = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum TEXT NOT NULL DEFAULT ''`,
}

type migrationDirection string

const (
	migrationUp   migrationDirection = "up"
	migrationDown migrationDirection = "down"
)

type migration struct {
	Version  int64
	Name     string
	UpSQL    string
	DownSQL  string
	Checksum string
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// appliedMigration — строка schema_migrations. Пустой Checksum у версий, записанных до появления колонки.
type appliedMigration struct {
	Version  int64
	Checksum string
}

type migrationStep struct {
	migration
	direction migrationDirection
}

func (s migrationStep) script() string {
	if s.direction == migrationDown {
		return s.DownSQL
	}
	return s.UpSQL
}

// MigrationState описывает состояние схемы относительно встроенных миграций.
type MigrationState struct {
	Version   int64
	Applied   int
	Available int
	// Modified — применённые версии, чей up-скрипт с тех пор изменился.
	Modified []int64
}

// Pending возвращает число ещё не применённых миграций.
func (s MigrationState) Pending() int {
	return max(s.Available-s.Applied, 0)
}

// MigrateUp применяет up-миграции. steps=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationUp, steps)
}

// MigrateDown откатывает steps последних миграций, не меньше одной.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationDown, max(steps, 1))
}

// MigrationStatus сравнивает schema_migrations со встроенными миграциями.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationState, error) {
	if s == nil || s.db == nil {
		return MigrationState{}, errors.New("postgres store is not initialized")
	}
	available, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return MigrationState{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	applied, err := readAppliedMigrations(ctx, s.db)
	if err != nil {
		return MigrationState{}, err
	}
	return describeMigrations(available, applied), nil
}

func (s *Store) migrate(ctx context.Context, direction migrationDirection, steps int) error {
	if s == nil || s.db == nil {
		return errors.New("postgres store is not initialized")
	}
	available, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	return s.withMigrationLock(ctx, func(conn *sql.Conn) error {
		applied, err := readAppliedMigrations(ctx, conn)
		if err != nil {
			return err
		}
		plan, err := planMigrations(available, applied, direction, steps)
		if err != nil {
			return err
		}
		for _, step := range plan {
			if err := runMigrationStep(ctx, conn, step); err != nil {
				return err
			}
		}
		return nil
	})
}

// withMigrationLock выполняет fn под advisory lock, чтобы экземпляры не мигрировали одновременно.
func (s *Store) withMigrationLock(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, migrationLockTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	return fn(conn)
}

// planMigrations выбирает шаги без обращения к базе.
func planMigrations(available []migration, applied []appliedMigration, direction migrationDirection, steps int) ([]migrationStep, error) {
	byVersion := make(map[int64]migration, len(available))
	for _, m := range available {
		byVersion[m.Version] = m
	}
	done := make(map[int64]bool, len(applied))
	for _, a := range applied {
		m, ok := byVersion[a.Version]
		if !ok {
			return nil, fmt.Errorf("schema has unknown migration version %d", a.Version)
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return nil, fmt.Errorf("migration %s: %w", m, ErrMigrationChecksumMismatch)
		}
		done[a.Version] = true
	}

	var plan []migrationStep
	switch direction {
	case migrationUp:
		for _, m := range available {
			if !done[m.Version] {
				plan = append(plan, migrationStep{migration: m, direction: migrationUp})
			}
		}
	case migrationDown:
		for i := len(available) - 1; i >= 0; i-- {
			if done[available[i].Version] {
				plan = append(plan, migrationStep{migration: available[i], direction: migrationDown})
			}
		}
	default:
		return nil, fmt.Errorf("unsupported migration direction: %s", direction)
	}

	if steps > 0 && len(plan) > steps {
		plan = plan[:steps]
	}
	return plan, nil
}

func describeMigrations(available []migration, applied []appliedMigration) MigrationState {
	state := MigrationState{Applied: len(applied), Available: len(available)}
	checksums := make(map[int64]string, len(available))
	for _, m := range available {
		checksums[m.Version] = m.Checksum
	}
	for _, a := range applied {
		state.Version = max(state.Version, a.Version)
		if want, ok := checksums[a.Version]; ok && a.Checksum != "" && a.Checksum != want {
			state.Modified = append(state.Modified, a.Version)
		}
	}
	return state
}

// runMigrationStep выполняет скрипт и правит schema_migrations в одной транзакции.
func runMigrationStep(ctx context.Context, conn *sql.Conn, step migrationStep) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s migration %s: %w", step.direction, step, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, step.script()); err != nil {
		return fmt.Errorf("execute %s migration %s: %w", step.direction, step, err)
	}

	if step.direction == migrationUp {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
			step.Version, step.Name, step.Checksum)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, step.Version)
	}
	if err != nil {
		return fmt.Errorf("record %s migration %s: %w", step.direction, step, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s migration %s: %w", step.direction, step, err)
	}

	log.WithFields(log.Fields{
		"migration": step.String(),
		"direction": step.direction,
	}).Info("migration step completed")
	return nil
}

type migrationQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readAppliedMigrations(ctx context.Context, db migrationQueryer) ([]appliedMigration, error) {
	for _, ddl := range schemaMigrationsDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("ensure migration table: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []appliedMigration
	for rows.Next() {
		var a appliedMigration
		if err := rows.Scan(&a.Version, &a.Checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// parseMigrationFileName разбирает NNNN_name.(up|down).sql.
func parseMigrationFileName(file string) (int64, string, migrationDirection, error) {
	stem, ok := strings.CutSuffix(file, ".sql")
	if !ok {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", file)
	}

	var direction migrationDirection
	switch {
	case strings.HasSuffix(stem, ".up"):
		direction = migrationUp
	case strings.HasSuffix(stem, ".down"):
		direction = migrationDown
	default:
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", file)
	}
	stem = strings.TrimSuffix(stem, "."+string(direction))

	rawVersion, name, ok := strings.Cut(stem, "_")
	if !ok || name == "" || !validMigrationName(name) {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", file)
	}
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil || version <= 0 {
		return 0, "", "", fmt.Errorf("invalid migration version in %s", file)
	}
	return version, name, direction, nil
}

func validMigrationName(name string) bool {
	for _, r := range name {
		if r != '_' && (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func migrationChecksum(script string) string {
	sum := sha256.Sum256([]byte(script))
	return hex.EncodeToString(sum[:])
}

func loadMigrationsFromFS(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, direction, err := parseMigrationFileName(entry.Name())
		if err != nil {
			return nil, err
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		script := strings.TrimSpace(string(raw))
		if script == "" {
			return nil, fmt.Errorf("migration file is empty: %s", entry.Name())
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == migrationDown {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = script
	}
	if len(byVersion) == 0 {
		return nil, errors.New("no migration files found")
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %s must have both up and down files", m)
		}
		m.Checksum = migrationChecksum(m.UpSQL)
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b migration) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	return migrations, nil
}
