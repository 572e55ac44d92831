package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	"github.com/vladislavdragonenkov/placeorder/internal/storage/memory"
)

func newInProgress(id, passportToken string, expires time.Time) domain.Transaction {
	return domain.Transaction{
		ID:     id,
		TypeOf: domain.TransactionTypePlaceOrder,
		Status: domain.TransactionStatusInProgress,
		Agent:  domain.Agent{TypeOf: "Person", ID: "agent-1"},
		Object: domain.TransactionObject{
			PassportToken:    passportToken,
			AuthorizeActions: []domain.AuthorizeAction{},
		},
		Expires:                expires,
		StartDate:              time.Now(),
		TasksExportationStatus: domain.TasksExportationStatusUnexported,
	}
}

func confirmParams(id, orderNumber string) domain.ConfirmTransactionParams {
	return domain.ConfirmTransactionParams{
		TypeOf:  domain.TransactionTypePlaceOrder,
		ID:      id,
		Result:  domain.TransactionResult{Order: domain.Order{OrderNumber: orderNumber}},
		EndDate: time.Now(),
	}
}

func TestTransactionRepository_StartRejectsDuplicatePassport(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository()
	expires := time.Now().Add(time.Hour)

	if _, err := repo.Start(ctx, newInProgress("tx-1", "passport-1", expires)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := repo.Start(ctx, newInProgress("tx-2", "passport-1", expires)); !domain.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	if _, err := repo.Start(ctx, newInProgress("tx-3", "", expires)); err != nil {
		t.Fatalf("Start without passport failed: %v", err)
	}
	if _, err := repo.Start(ctx, newInProgress("tx-4", "", expires)); err != nil {
		t.Fatalf("empty passport tokens must not collide: %v", err)
	}
}

func TestTransactionRepository_ConfirmOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository()

	if _, err := repo.Start(ctx, newInProgress("tx-1", "", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	confirmed, err := repo.Confirm(ctx, confirmParams("tx-1", "TT-260302-000001"))
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if confirmed.Status != domain.TransactionStatusConfirmed || confirmed.Result == nil {
		t.Fatalf("unexpected confirmed transaction: %+v", confirmed)
	}

	if _, err := repo.Confirm(ctx, confirmParams("tx-1", "TT-260302-000002")); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on second confirm, got %v", err)
	}
	if _, err := repo.FindInProgressByID(ctx, domain.TransactionTypePlaceOrder, "tx-1"); !domain.IsNotFound(err) {
		t.Fatalf("confirmed transaction must not be in progress, got %v", err)
	}
	if err := repo.UpdateCustomerProfile(ctx, domain.TransactionTypePlaceOrder, "tx-1", domain.CustomerProfile{}); !domain.IsNotFound(err) {
		t.Fatalf("profile of confirmed transaction must not change, got %v", err)
	}
}

func TestTransactionRepository_ConfirmRejectsDuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository()

	for _, id := range []string{"tx-1", "tx-2"} {
		if _, err := repo.Start(ctx, newInProgress(id, "", time.Now().Add(time.Hour))); err != nil {
			t.Fatalf("Start %s failed: %v", id, err)
		}
	}

	if _, err := repo.Confirm(ctx, confirmParams("tx-1", "TT-260302-000001")); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if _, err := repo.Confirm(ctx, confirmParams("tx-2", "TT-260302-000001")); !domain.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}

	tx, err := repo.FindInProgressByID(ctx, domain.TransactionTypePlaceOrder, "tx-2")
	if err != nil {
		t.Fatalf("rejected transaction must stay in progress: %v", err)
	}
	if tx.Result != nil {
		t.Fatal("rejected transaction must not carry a result")
	}
}

func TestTransactionRepository_ConcurrentConfirm(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository()
	if _, err := repo.Start(ctx, newInProgress("tx-1", "", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Confirm(ctx, confirmParams("tx-1", domain.OrderNumber(time.Now(), domain.FormatPaymentNo(int64(i)))))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !domain.IsNotFound(err) && !domain.IsDuplicateKey(err) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful confirm, got %d", successes)
	}
}

func TestTransactionRepository_ExpireAndExportTasks(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository()
	now := time.Now()

	if _, err := repo.Start(ctx, newInProgress("tx-expired", "", now.Add(-time.Minute))); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := repo.Start(ctx, newInProgress("tx-active", "", now.Add(time.Hour))); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	expired, err := repo.MakeExpired(ctx, now)
	if err != nil {
		t.Fatalf("MakeExpired failed: %v", err)
	}
	if len(expired) != 1 || expired[0] != "tx-expired" {
		t.Fatalf("unexpected expired ids: %v", expired)
	}

	backlog, err := repo.TasksBacklog(ctx)
	if err != nil {
		t.Fatalf("TasksBacklog failed: %v", err)
	}
	if backlog.PendingCount != 1 {
		t.Fatalf("expected 1 pending export, got %d", backlog.PendingCount)
	}

	claimed, err := repo.StartExportTasks(ctx, 10)
	if err != nil {
		t.Fatalf("StartExportTasks failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].TasksExportationStatus != domain.TasksExportationStatusExporting {
		t.Fatalf("unexpected claimed transactions: %+v", claimed)
	}

	again, err := repo.StartExportTasks(ctx, 10)
	if err != nil {
		t.Fatalf("StartExportTasks failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("claimed transaction must not be claimed twice, got %d", len(again))
	}

	backlog, err = repo.TasksBacklog(ctx)
	if err != nil {
		t.Fatalf("TasksBacklog failed: %v", err)
	}
	if backlog.PendingCount != 1 || backlog.ExportingCount != 1 {
		t.Fatalf("claimed transaction must stay in backlog, got %+v", backlog)
	}

	if n, err := repo.ReexportTasks(ctx, time.Now().Add(-time.Hour)); err != nil || n != 0 {
		t.Fatalf("fresh claim must not be reexported, got %d %v", n, err)
	}
	if n, err := repo.ReexportTasks(ctx, time.Now().Add(time.Second)); err != nil || n != 1 {
		t.Fatalf("stale claim must be reexported, got %d %v", n, err)
	}

	reclaimed, err := repo.StartExportTasks(ctx, 10)
	if err != nil {
		t.Fatalf("StartExportTasks failed: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0].ID != "tx-expired" {
		t.Fatalf("reexported transaction must be claimable again, got %+v", reclaimed)
	}

	if err := repo.SetTasksExported(ctx, "tx-expired", now); err != nil {
		t.Fatalf("SetTasksExported failed: %v", err)
	}
	tx, err := repo.FindByID(ctx, domain.TransactionTypePlaceOrder, "tx-expired")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if tx.TasksExportationStatus != domain.TasksExportationStatusExported || tx.TasksExportedAt == nil {
		t.Fatalf("unexpected exportation state: %s %v", tx.TasksExportationStatus, tx.TasksExportedAt)
	}
}
