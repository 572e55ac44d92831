package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
	"github.com/vladislavdragonenkov/placeorder/internal/storage/memory"
)

func TestTokenRepository_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository(time.Minute)

	token, err := repo.CreatePrintToken(ctx, []string{"r-1", "r-2"})
	if err != nil {
		t.Fatalf("CreatePrintToken failed: %v", err)
	}

	ids, err := repo.VerifyPrintToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyPrintToken failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r-1" || ids[1] != "r-2" {
		t.Fatalf("unexpected reservation ids: %v", ids)
	}

	if _, err := repo.VerifyPrintToken(ctx, "unknown"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTokenRepository(time.Minute)

	first, err := repo.CreatePrintToken(ctx, []string{"r-1"})
	if err != nil {
		t.Fatalf("CreatePrintToken failed: %v", err)
	}
	if _, err := repo.CreatePrintToken(ctx, []string{"r-2"}); err != nil {
		t.Fatalf("CreatePrintToken failed: %v", err)
	}

	deleted, err := repo.DeleteExpired(ctx, time.Now(), 10)
	if err != nil || deleted != 0 {
		t.Fatalf("expected nothing expired yet, got %d %v", deleted, err)
	}

	later := time.Now().Add(2 * time.Minute)
	deleted, err = repo.DeleteExpired(ctx, later, 1)
	if err != nil || deleted != 1 {
		t.Fatalf("expected limit to cap deletion at 1, got %d %v", deleted, err)
	}
	deleted, err = repo.DeleteExpired(ctx, later, 10)
	if err != nil || deleted != 1 {
		t.Fatalf("expected remaining token deleted, got %d %v", deleted, err)
	}

	if _, err := repo.VerifyPrintToken(ctx, first); !domain.IsNotFound(err) {
		t.Fatalf("expected swept token to be gone, got %v", err)
	}
}

func TestSellerAndActionRepositories(t *testing.T) {
	ctx := context.Background()
	sellers := memory.NewSellerRepository(domain.Seller{ID: "seller-1", Identifier: "TokyoTower"})

	seller, err := sellers.FindByIdentifier(ctx, "TokyoTower")
	if err != nil || seller.ID != "seller-1" {
		t.Fatalf("unexpected seller: %+v %v", seller, err)
	}
	if _, err := sellers.FindByIdentifier(ctx, "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	actions := memory.NewActionRepository()
	purpose := domain.Purpose{TypeOf: domain.TransactionTypePlaceOrder, ID: "tx-1"}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a-2", "a-1", "other"} {
		p := purpose
		if id == "other" {
			p.ID = "tx-2"
		}
		if err := actions.Save(ctx, domain.AuthorizeAction{ID: id, Purpose: p, StartDate: base.Add(-time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	found, err := actions.SearchByPurpose(ctx, purpose)
	if err != nil {
		t.Fatalf("SearchByPurpose failed: %v", err)
	}
	if len(found) != 2 || found[0].ID != "a-1" || found[1].ID != "a-2" {
		t.Fatalf("unexpected actions: %+v", found)
	}
}
