package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewTransactionResult(t *testing.T) {
	completed := time.Date(2026, 6, 15, 12, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	result := NewTransactionResult([]TransactionResultLineItem{
		{SubscriptionID: "sub-a", OfferID: "office", Quantity: 2, UnitPrice: decimal.RequireFromString("365.00")},
		{SubscriptionID: "sub-b", OfferID: "teams", Quantity: 3, UnitPrice: decimal.RequireFromString("0.333")},
	}, 2, completed)

	items := result.LineItems()
	if !items[0].Total.Equal(decimal.RequireFromString("730")) {
		t.Fatalf("unexpected first total %s", items[0].Total)
	}
	if !items[1].Total.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("unexpected second total %s", items[1].Total)
	}
	if !result.Total().Equal(decimal.RequireFromString("731.00")) {
		t.Fatalf("unexpected total %s", result.Total())
	}
	if result.CompletedAt().Location() != time.UTC {
		t.Fatalf("completion time must be UTC")
	}

	items[0].Quantity = 100
	if result.LineItems()[0].Quantity != 2 {
		t.Fatalf("result must not be mutated through returned items")
	}
}

func TestTransactionResult_Empty(t *testing.T) {
	var result TransactionResult
	if !result.Total().IsZero() || len(result.LineItems()) != 0 {
		t.Fatalf("zero result must be empty")
	}
}
