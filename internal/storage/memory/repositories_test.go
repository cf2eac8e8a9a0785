package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOfferRepository(t *testing.T) {
	repo := NewOfferRepository()

	offer := domain.PartnerOffer{ID: "offer-b", Title: "Office", RemoteOfferID: "MS-1", Price: decimal.RequireFromString("120.00")}
	if err := repo.Create(offer); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(offer); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := repo.Create(domain.PartnerOffer{ID: "offer-a", IsInactive: true}); err != nil {
		t.Fatalf("create inactive: %v", err)
	}

	got, err := repo.Get("offer-b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(offer.Price) || got.RemoteOfferID != "MS-1" {
		t.Fatalf("unexpected offer: %+v", got)
	}
	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOfferNotFound) {
		t.Fatalf("expected ErrOfferNotFound, got %v", err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "offer-a" {
		t.Fatalf("expected sorted list with inactive offers, got %+v", list)
	}
}

func TestSubscriptionRepository(t *testing.T) {
	repo := NewSubscriptionRepository()
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	sub := domain.CustomerSubscription{
		CustomerID:     "customer-1",
		SubscriptionID: "sub-1",
		PartnerOfferID: "offer-1",
		Quantity:       5,
		ExpiryDate:     expiry,
	}
	if err := repo.Create(sub); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(sub); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	other := sub
	other.CustomerID = "customer-2"
	if err := repo.Create(other); err != nil {
		t.Fatalf("same subscription id for another customer must be allowed: %v", err)
	}

	sub.Quantity = 7
	if err := repo.Update(sub); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.Get("customer-1", "sub-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", got.Quantity)
	}

	missing := sub
	missing.SubscriptionID = "sub-404"
	if err := repo.Update(missing); !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}

	list, err := repo.ListByCustomer("customer-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 subscription, got %d (%v)", len(list), err)
	}

	if err := repo.Delete("customer-1", "sub-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete("customer-1", "sub-1"); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if _, err := repo.Get("customer-1", "sub-1"); !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound after delete, got %v", err)
	}
}

func TestPurchaseRepository(t *testing.T) {
	repo := NewPurchaseRepository()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	older := domain.CustomerPurchase{ID: "p-1", CustomerID: "customer-1", SeatsBought: 1, TransactionDate: base}
	newer := domain.CustomerPurchase{ID: "p-2", CustomerID: "customer-1", SeatsBought: 2, TransactionDate: base.Add(time.Hour)}
	for _, p := range []domain.CustomerPurchase{older, newer} {
		if err := repo.Create(p); err != nil {
			t.Fatalf("create %s: %v", p.ID, err)
		}
	}
	if err := repo.Create(older); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	list, err := repo.ListByCustomer("customer-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p-2" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if err := repo.Delete("customer-1", "p-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete("customer-1", "p-1"); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	list, _ = repo.ListByCustomer("customer-1")
	if len(list) != 1 {
		t.Fatalf("expected 1 purchase after delete, got %d", len(list))
	}
}

func TestJournalRepository(t *testing.T) {
	repo := NewJournalRepository()

	for _, step := range []string{"authorize_payment", "place_order"} {
		if err := repo.Append(domain.JournalEvent{OrderID: "order-1", Step: step, Type: domain.JournalStepExecuted}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := repo.List("order-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[1].Step != "place_order" {
		t.Fatalf("unexpected journal: %+v", events)
	}
	events[0].Step = "mutated"
	again, _ := repo.List("order-1")
	if again[0].Step != "authorize_payment" {
		t.Fatalf("journal must return copies")
	}
	if empty, _ := repo.List("unknown"); len(empty) != 0 {
		t.Fatalf("expected empty journal for unknown order")
	}
}
