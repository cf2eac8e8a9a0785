package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerSubscription: локальная запись о подписке клиента.
// Ключ: (CustomerID, SubscriptionID).
type CustomerSubscription struct {
	CustomerID     string
	SubscriptionID string
	PartnerOfferID string
	Quantity       int
	ExpiryDate     time.Time
}

// IsExpiredAt сообщает, что дата окончания (по UTC) строго раньше текущей даты (по UTC).
func (s CustomerSubscription) IsExpiredAt(now time.Time) bool {
	expiry := truncateToUTCDate(s.ExpiryDate)
	today := truncateToUTCDate(now)
	return expiry.Before(today)
}

func truncateToUTCDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CustomerPurchase: запись истории покупок клиента.
// Ключ: (CustomerID, ID).
type CustomerPurchase struct {
	ID              string
	CustomerID      string
	SubscriptionID  string
	Operation       OperationType
	SeatsBought     int
	SeatPrice       decimal.Decimal
	TransactionDate time.Time
}
