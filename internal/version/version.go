// Package version хранит сведения о сборке, проставляемые через -ldflags.
package version

import (
	"fmt"
	"strings"
)

const serviceName = "placeorder-service"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// GetCommit возвращает хеш коммита сборки.
func GetCommit() string { return commit }

// GetDate возвращает дату сборки.
func GetDate() string { return date }

// ClientID — идентификатор сервиса для внешних клиентов.
// Kafka допускает в client.id только [A-Za-z0-9._-].
func ClientID() string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, serviceName+"-"+version)
}

func String() string {
	return fmt.Sprintf("service=%s version=%s commit=%s date=%s", serviceName, version, commit, date)
}
