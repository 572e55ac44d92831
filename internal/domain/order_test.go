package domain

import (
	"testing"
	"time"
)

func TestOrderAndConfirmationNumbers(t *testing.T) {
	tests := []struct {
		name         string
		eventStart   time.Time
		paymentNo    string
		orderNumber  string
		confirmation string
	}{
		{
			name:         "jst afternoon",
			eventStart:   time.Date(2026, 3, 2, 14, 0, 0, 0, Tokyo),
			paymentNo:    "000123",
			orderNumber:  "TT-260302-000123",
			confirmation: "20260302000123",
		},
		{
			name:         "utc evening is next day in tokyo",
			eventStart:   time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC),
			paymentNo:    "000001",
			orderNumber:  "TT-260302-000001",
			confirmation: "20260302000001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OrderNumber(tt.eventStart, tt.paymentNo); got != tt.orderNumber {
				t.Fatalf("OrderNumber() = %q, want %q", got, tt.orderNumber)
			}
			if got := ConfirmationNumber(tt.eventStart, tt.paymentNo); got != tt.confirmation {
				t.Fatalf("ConfirmationNumber() = %q, want %q", got, tt.confirmation)
			}
		})
	}
}

func TestOrderNumberDistinctForDistinctPaymentNo(t *testing.T) {
	start := time.Date(2026, 7, 10, 9, 0, 0, 0, Tokyo)
	seen := make(map[string]struct{})
	for i := int64(1); i <= 500; i++ {
		no := FormatPaymentNo(i)
		for _, n := range []string{OrderNumber(start, no), ConfirmationNumber(start, no)} {
			if _, dup := seen[n]; dup {
				t.Fatalf("duplicate number %q", n)
			}
			seen[n] = struct{}{}
		}
		if OrderNumber(start, no) != OrderNumber(start, no) {
			t.Fatal("order number is not deterministic")
		}
	}
}

func TestPaymentNoScope(t *testing.T) {
	start := time.Date(2026, 12, 31, 16, 0, 0, 0, time.UTC)
	if got := PaymentNoScope(start); got != "20270101" {
		t.Fatalf("PaymentNoScope() = %q, want 20270101", got)
	}
}

func TestFormatPaymentNo(t *testing.T) {
	if got := FormatPaymentNo(42); got != "000042" {
		t.Fatalf("FormatPaymentNo(42) = %q", got)
	}
	if got := FormatPaymentNo(1234567); got != "1234567" {
		t.Fatalf("FormatPaymentNo(1234567) = %q", got)
	}
}

func TestPotentialActionsParamsInformOrder(t *testing.T) {
	var nilParams *PotentialActionsParams
	if _, ok := nilParams.InformOrder(); ok {
		t.Fatal("nil params must not report inform order")
	}

	empty := &PotentialActionsParams{Order: &OrderActionParams{PotentialActions: &OrderPotentialActionsParams{
		InformOrder: []InformOrderParams{},
	}}}
	got, ok := empty.InformOrder()
	if !ok || len(got) != 0 {
		t.Fatalf("explicit empty list must be reported: %v %v", got, ok)
	}
}
