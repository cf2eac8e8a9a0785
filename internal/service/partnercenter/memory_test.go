package partnercenter

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestMemoryClient_PlaceOrderCreatesSubscriptionPerLine(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()

	placed, err := client.PlaceOrder(ctx, domain.PartnerOrder{
		CustomerID: "c-1",
		Lines: []domain.PartnerOrderLine{
			{LineNumber: 0, RemoteOfferID: "MS-1", Quantity: 2},
			{LineNumber: 1, RemoteOfferID: "MS-2", Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if placed.ID == "" || len(placed.Lines) != 2 {
		t.Fatalf("unexpected placed order: %+v", placed)
	}
	if placed.Lines[1].LineNumber != 1 || placed.Lines[1].Quantity != 5 {
		t.Fatalf("line numbers must be preserved: %+v", placed.Lines)
	}

	sub, err := client.GetSubscription(ctx, "c-1", placed.Lines[0].SubscriptionID)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.RemoteOfferID != "MS-1" || sub.Status != statusActive {
		t.Fatalf("unexpected subscription: %+v", sub)
	}

	if _, err := client.PlaceOrder(ctx, domain.PartnerOrder{CustomerID: "c-1"}); !errors.Is(err, domain.ErrCommerceAPI) {
		t.Fatalf("expected ErrCommerceAPI for empty order, got %v", err)
	}
}

func TestMemoryClient_AddSeatsAndRenew(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()
	client.Seed("c-1", domain.RemoteSubscription{ID: "sub-1", RemoteOfferID: "MS-1", Quantity: 3, Status: "suspended"})

	if err := client.AddSeats(ctx, "c-1", "sub-1", 2); err != nil {
		t.Fatalf("add seats: %v", err)
	}
	renewed, err := client.RenewSubscription(ctx, "c-1", "sub-1")
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if renewed.Quantity != 5 || renewed.Status != statusActive {
		t.Fatalf("unexpected renewed subscription: %+v", renewed)
	}

	if err := client.AddSeats(ctx, "c-1", "missing", 1); !errors.Is(err, domain.ErrCommerceAPI) {
		t.Fatalf("expected ErrCommerceAPI, got %v", err)
	}

	boom := errors.New("remote down")
	client.RenewErr = boom
	if _, err := client.RenewSubscription(ctx, "c-1", "sub-1"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if client.AddSeatsCalls != 2 || client.RenewCalls != 2 {
		t.Fatalf("unexpected counters: add=%d renew=%d", client.AddSeatsCalls, client.RenewCalls)
	}
}
