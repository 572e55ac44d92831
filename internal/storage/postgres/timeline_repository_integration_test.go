package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

func TestTimelineRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	txRepo := NewTransactionRepository(store)
	timelineRepo := NewTimelineRepository(store)
	ctx := context.Background()

	createdAt := time.Now().UTC().Add(-time.Minute).Round(time.Microsecond)
	tx := sampleTransaction("timeline-tx", "", createdAt)
	if _, err := txRepo.Start(ctx, tx); err != nil {
		t.Fatalf("start transaction for timeline: %v", err)
	}

	// Zero occurred should be auto-filled.
	if err := timelineRepo.Append(ctx, domain.TimelineEvent{
		TransactionID: tx.ID,
		Type:          domain.TimelineTransactionStarted,
		Reason:        "started",
	}); err != nil {
		t.Fatalf("append timeline event with zero occurred: %v", err)
	}

	explicitOccurred := createdAt.Add(10 * time.Second)
	if err := timelineRepo.Append(ctx, domain.TimelineEvent{
		TransactionID: tx.ID,
		Type:          domain.TimelineTransactionConfirmed,
		Reason:        "confirmed",
		Occurred:      explicitOccurred,
	}); err != nil {
		t.Fatalf("append timeline event with explicit occurred: %v", err)
	}

	events, err := timelineRepo.List(ctx, tx.ID)
	if err != nil {
		t.Fatalf("list timeline events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 timeline events, got %d", len(events))
	}
	if events[0].Occurred.After(events[1].Occurred) {
		t.Fatalf("events should be sorted by occurred asc: %+v", events)
	}
	types := []string{events[0].Type, events[1].Type}
	if !(contains(types, domain.TimelineTransactionStarted) && contains(types, domain.TimelineTransactionConfirmed)) {
		t.Fatalf("unexpected event types: %+v", types)
	}
}

func TestTimelineRepository_PostgresMissingTransaction(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timelineRepo := NewTimelineRepository(store)
	ctx := context.Background()

	if err := timelineRepo.Append(ctx, domain.TimelineEvent{
		TransactionID: "missing-tx",
		Type:          domain.TimelineTransactionStarted,
		Reason:        "test",
	}); err == nil {
		t.Fatal("expected append error for missing transaction due FK constraint")
	}

	events, err := timelineRepo.List(ctx, "missing-tx")
	if err != nil {
		t.Fatalf("list for missing transaction should not fail: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events for missing transaction, got %d", len(events))
	}
}

func contains(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}
