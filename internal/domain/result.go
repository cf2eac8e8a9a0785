package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionResultLineItem: итог по одной подписке в завершённой транзакции.
type TransactionResultLineItem struct {
	SubscriptionID string
	OfferID        string
	Quantity       int
	UnitPrice      decimal.Decimal
	Total          decimal.Decimal
}

// TransactionResult: неизменяемый итог успешной коммерческой операции.
type TransactionResult struct {
	lineItems   []TransactionResultLineItem
	completedAt time.Time
}

// NewTransactionResult фиксирует позиции и считает Total = Quantity × UnitPrice
// с округлением до places знаков.
func NewTransactionResult(items []TransactionResultLineItem, places int32, completedAt time.Time) TransactionResult {
	lines := make([]TransactionResultLineItem, len(items))
	for i, item := range items {
		item.Total = LineTotal(item.Quantity, item.UnitPrice, places)
		lines[i] = item
	}
	return TransactionResult{lineItems: lines, completedAt: completedAt.UTC()}
}

// LineItems возвращает копию позиций в исходном порядке.
func (r TransactionResult) LineItems() []TransactionResultLineItem {
	out := make([]TransactionResultLineItem, len(r.lineItems))
	copy(out, r.lineItems)
	return out
}

// CompletedAt возвращает момент завершения транзакции.
func (r TransactionResult) CompletedAt() time.Time {
	return r.completedAt
}

// Total возвращает сумму по всем позициям.
func (r TransactionResult) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.lineItems {
		total = total.Add(item.Total)
	}
	return total
}
