package commerce

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/saga"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func placedOutput(lines ...domain.PlacedOrderLine) saga.Output[domain.PlacedOrder] {
	var cell saga.Cell[domain.PlacedOrder]
	cell.Set(domain.PlacedOrder{ID: "remote-1", CustomerID: "customer-1", Lines: lines})
	return &cell
}

func TestAuthorizePayment_RollbackWithoutCodeIsNoop(t *testing.T) {
	calls := &callLog{}
	gateway := &recordingGateway{log: calls, authorizeErr: errors.New("declined")}
	step := NewAuthorizePayment(gateway, domain.PaymentRequest{CustomerID: "customer-1"})

	if err := step.Execute(context.Background()); domain.KindOf(err) != domain.FailureGateway {
		t.Fatalf("expected gateway failure, got %v", err)
	}
	if err := step.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if got := calls.count("void"); got != 0 {
		t.Fatalf("void must not be called without authorization code, got %d", got)
	}
}

func TestAuthorizePayment_RollbackVoidsOnce(t *testing.T) {
	calls := &callLog{}
	gateway := &recordingGateway{log: calls, code: "AUTH7"}
	step := NewAuthorizePayment(gateway, domain.PaymentRequest{CustomerID: "customer-1"})

	if err := step.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	code, err := step.Output().Result()
	if err != nil || code != "AUTH7" {
		t.Fatalf("expected AUTH7, got %q (%v)", code, err)
	}
	_ = step.Rollback(context.Background())
	_ = step.Rollback(context.Background())
	if len(gateway.voided) != 1 || gateway.voided[0] != "AUTH7" {
		t.Fatalf("expected single void of AUTH7, got %v", gateway.voided)
	}
}

func TestCapturePayment_RequiresAuthorizationCode(t *testing.T) {
	calls := &callLog{}
	var code saga.Cell[string]
	step := NewCapturePayment(&recordingGateway{log: calls}, &code)

	if err := step.Execute(context.Background()); !errors.Is(err, saga.ErrResultNotReady) {
		t.Fatalf("expected ErrResultNotReady, got %v", err)
	}
	if calls.count("capture") != 0 {
		t.Fatalf("capture must not reach gateway without code")
	}
}

func TestPersistNewlyPurchasedSubscriptions_WritesAndRollsBack(t *testing.T) {
	subs := memory.NewSubscriptionRepository()
	purchases := memory.NewPurchaseRepository()
	step := NewPersistNewlyPurchasedSubscriptions(subs, purchases, "customer-1",
		placedOutput(
			domain.PlacedOrderLine{LineNumber: 0, SubscriptionID: "sub-a", Quantity: 2},
			domain.PlacedOrderLine{LineNumber: 1, SubscriptionID: "sub-b", Quantity: 1},
		),
		[]OfferAssociation{
			{LineNumber: 0, PartnerOfferID: "office", SeatPrice: decimal.RequireFromString("365.00")},
			{LineNumber: 1, PartnerOfferID: "teams", SeatPrice: decimal.RequireFromString("120.00")},
		},
		testNow,
	)

	if err := step.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines, err := step.Output().Result()
	if err != nil || len(lines) != 2 {
		t.Fatalf("expected 2 persisted lines, got %d (%v)", len(lines), err)
	}
	if lines[1].Subscription.PartnerOfferID != "teams" || !lines[1].Purchase.SeatPrice.Equal(decimal.RequireFromString("120.00")) {
		t.Fatalf("line number association broken: %+v", lines[1])
	}
	if lines[0].Purchase.Operation != domain.OperationNewPurchase || !lines[0].Purchase.TransactionDate.Equal(testNow) {
		t.Fatalf("unexpected purchase record: %+v", lines[0].Purchase)
	}

	if err := step.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if stored, _ := subs.ListByCustomer("customer-1"); len(stored) != 0 {
		t.Fatalf("subscriptions must be deleted, got %+v", stored)
	}
	if stored, _ := purchases.ListByCustomer("customer-1"); len(stored) != 0 {
		t.Fatalf("purchases must be deleted, got %+v", stored)
	}
	if _, err := step.Output().Result(); !errors.Is(err, saga.ErrResultNotReady) {
		t.Fatalf("output must be cleared after rollback, got %v", err)
	}
}

func TestPersistNewlyPurchasedSubscriptions_UndoesPartialWrite(t *testing.T) {
	calls := &callLog{}
	purchaseErr := errors.New("constraint violation")
	subs := &recordingSubscriptions{SubscriptionRepository: memory.NewSubscriptionRepository(), log: calls}
	purchases := &recordingPurchases{PurchaseRepository: memory.NewPurchaseRepository(), log: calls, createErr: purchaseErr}
	step := NewPersistNewlyPurchasedSubscriptions(subs, purchases, "customer-1",
		placedOutput(domain.PlacedOrderLine{LineNumber: 0, SubscriptionID: "sub-a", Quantity: 2}),
		[]OfferAssociation{{LineNumber: 0, PartnerOfferID: "office", SeatPrice: decimal.NewFromInt(10)}},
		testNow,
	)

	err := step.Execute(context.Background())
	if !errors.Is(err, purchaseErr) || domain.KindOf(err) != domain.FailureStorage {
		t.Fatalf("expected storage failure wrapping cause, got %v", err)
	}
	assertCalls(t, calls.snapshot(), []string{"create_subscription", "create_purchase", "delete_subscription"})
	if stored, _ := subs.ListByCustomer("customer-1"); len(stored) != 0 {
		t.Fatalf("partial subscription must be removed, got %+v", stored)
	}
}

func TestPersistNewlyPurchasedSubscriptions_RejectsUnknownLine(t *testing.T) {
	subs := memory.NewSubscriptionRepository()
	step := NewPersistNewlyPurchasedSubscriptions(subs, memory.NewPurchaseRepository(), "customer-1",
		placedOutput(domain.PlacedOrderLine{LineNumber: 5, SubscriptionID: "sub-x", Quantity: 1}),
		nil,
		testNow,
	)
	err := step.Execute(context.Background())
	if domain.KindOf(err) != domain.FailureCommerceAPI || !errors.Is(err, domain.ErrPlacedOrderMismatch) {
		t.Fatalf("expected placed order mismatch for unmatched line, got %v", err)
	}
}

func TestPersistNewlyPurchasedSubscriptions_RejectsIncompletePlacedOrder(t *testing.T) {
	associations := []OfferAssociation{
		{LineNumber: 0, PartnerOfferID: "office", SeatPrice: decimal.RequireFromString("365.00")},
		{LineNumber: 1, PartnerOfferID: "teams", SeatPrice: decimal.RequireFromString("120.00")},
	}
	cases := map[string][]domain.PlacedOrderLine{
		"missing line": {
			{LineNumber: 0, SubscriptionID: "sub-a", Quantity: 2},
		},
		"duplicate line": {
			{LineNumber: 0, SubscriptionID: "sub-a", Quantity: 2},
			{LineNumber: 0, SubscriptionID: "sub-b", Quantity: 2},
		},
		"no lines": nil,
	}

	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			calls := &callLog{}
			subs := &recordingSubscriptions{SubscriptionRepository: memory.NewSubscriptionRepository(), log: calls}
			purchases := &recordingPurchases{PurchaseRepository: memory.NewPurchaseRepository(), log: calls}
			step := NewPersistNewlyPurchasedSubscriptions(subs, purchases, "customer-1",
				placedOutput(lines...), associations, testNow)

			err := step.Execute(context.Background())
			if !errors.Is(err, domain.ErrPlacedOrderMismatch) {
				t.Fatalf("expected ErrPlacedOrderMismatch, got %v", err)
			}
			if got := calls.snapshot(); len(got) != 0 {
				t.Fatalf("nothing must be written for mismatched order, got %v", got)
			}
			if _, err := step.Output().Result(); !errors.Is(err, saga.ErrResultNotReady) {
				t.Fatalf("output must stay empty, got %v", err)
			}
		})
	}
}

func TestRecordPurchase_RollbackOnlyAfterSuccess(t *testing.T) {
	calls := &callLog{}
	purchases := &recordingPurchases{PurchaseRepository: memory.NewPurchaseRepository(), log: calls, createErr: errors.New("down")}
	step := NewRecordPurchase(purchases, domain.CustomerPurchase{ID: "p-1", CustomerID: "customer-1"})

	_ = step.Execute(context.Background())
	if err := step.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if calls.count("delete_purchase") != 0 {
		t.Fatalf("nothing to delete when create failed")
	}
}

func TestUpdatePersistedSubscription_MissingSubscription(t *testing.T) {
	step := NewUpdatePersistedSubscription(memory.NewSubscriptionRepository(), "customer-1", "missing", func(*domain.CustomerSubscription) {})
	err := step.Execute(context.Background())
	if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}
