package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// helper для создания корректного заказа на покупку.
func makeOrder() domain.CommerceOrder {
	return domain.CommerceOrder{
		OrderID:    "order-1",
		CustomerID: "customer-1",
		Operation:  domain.OperationNewPurchase,
		LineItems: []domain.OrderLineItem{
			{OfferID: "office", Quantity: 2},
			{OfferID: "teams", Quantity: 1},
		},
	}
}

func TestCommerceOrderValidate_Ok(t *testing.T) {
	if err := makeOrder().Validate(); err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}

	seats := domain.CommerceOrder{
		CustomerID: "customer-1",
		Operation:  domain.OperationAdditionalSeats,
		LineItems:  []domain.OrderLineItem{{SubscriptionID: "sub-1", Quantity: 3}},
	}
	if err := seats.Validate(); err != nil {
		t.Fatalf("expected valid seats order, got %v", err)
	}
}

func TestCommerceOrderValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.CommerceOrder)
	}{
		{
			name: "no customer",
			mut: func(o *domain.CommerceOrder) {
				o.CustomerID = ""
			},
		},
		{
			name: "unknown operation",
			mut: func(o *domain.CommerceOrder) {
				o.Operation = "refund"
			},
		},
		{
			name: "no line items",
			mut: func(o *domain.CommerceOrder) {
				o.LineItems = nil
			},
		},
		{
			name: "zero quantity",
			mut: func(o *domain.CommerceOrder) {
				o.LineItems[0].Quantity = 0
			},
		},
		{
			name: "negative quantity",
			mut: func(o *domain.CommerceOrder) {
				o.LineItems[1].Quantity = -1
			},
		},
		{
			name: "missing offer",
			mut: func(o *domain.CommerceOrder) {
				o.LineItems[0].OfferID = ""
			},
		},
		{
			name: "renewal with several items",
			mut: func(o *domain.CommerceOrder) {
				o.Operation = domain.OperationRenewal
				o.LineItems[0].SubscriptionID = "sub-1"
				o.LineItems[1].SubscriptionID = "sub-2"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)
			if err := order.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLineTotal_RoundsAfterMultiplication(t *testing.T) {
	price := decimal.RequireFromString("0.273972602739726")
	got := domain.LineTotal(3, price, 2)
	if !got.Equal(decimal.RequireFromString("0.82")) {
		t.Fatalf("expected 0.82, got %s", got)
	}
}
