package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		fields []string
	}{
		{
			name:   "argument",
			err:    NewArgumentError("paymentMethod", "credit card required"),
			check:  IsArgument,
			fields: []string{"paymentMethod"},
		},
		{
			name:  "forbidden",
			err:   NewForbiddenError("not yours"),
			check: IsForbidden,
		},
		{
			name:  "not found",
			err:   NewNotFoundError("Seller", ""),
			check: IsNotFound,
		},
		{
			name:   "already in use wrapped",
			err:    fmt.Errorf("confirm: %w", NewAlreadyInUseError("transaction", []string{"result.order.orderNumber"}, "")),
			check:  IsAlreadyInUse,
			fields: []string{"result.order.orderNumber"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Fatalf("unexpected kind for %v", tt.err)
			}
			got := FieldsOf(tt.err)
			if len(got) != len(tt.fields) {
				t.Fatalf("fields = %v, want %v", got, tt.fields)
			}
			for i := range got {
				if got[i] != tt.fields[i] {
					t.Fatalf("fields = %v, want %v", got, tt.fields)
				}
			}
		})
	}
}

func TestErrorKindsDoNotOverlap(t *testing.T) {
	err := NewArgumentError("transactionId", "prices not matched")
	if IsForbidden(err) || IsNotFound(err) || IsAlreadyInUse(err) {
		t.Fatalf("argument error matched another kind: %v", err)
	}
	if FieldsOf(errors.New("plain")) != nil {
		t.Fatal("expected nil fields for plain error")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewAlreadyInUseError("transaction", []string{"passportToken"}, "passport already used")
	want := "already in use: transaction [passportToken]: passport already used"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(fmt.Errorf("insert: %w", ErrDuplicateKey)) {
		t.Fatal("expected wrapped duplicate key to match")
	}
	if IsDuplicateKey(ErrNotFound) {
		t.Fatal("not found must not match duplicate key")
	}
}

func TestIsIdempotencyConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "idempotency already exists",
			err:  ErrIdempotencyKeyAlreadyExists,
			want: true,
		},
		{
			name: "idempotency hash mismatch",
			err:  ErrIdempotencyHashMismatch,
			want: true,
		},
		{
			name: "wrapped idempotency conflict",
			err:  errors.Join(ErrIdempotencyHashMismatch, errors.New("extra context")),
			want: true,
		},
		{
			name: "non idempotency error",
			err:  ErrDuplicateKey,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsIdempotencyConflict(tt.err)
			if got != tt.want {
				t.Errorf("IsIdempotencyConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
