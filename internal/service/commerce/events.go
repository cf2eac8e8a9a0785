package commerce

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// AggregateType: тип агрегата событий коммерческих транзакций в outbox.
	AggregateType = domain.OutboxAggregateTransaction
	// EventTransactionCompleted публикуется после успешной транзакции.
	EventTransactionCompleted = domain.OutboxEventCompleted
	// EventTransactionFailed публикуется после отказа, в том числе при валидации.
	EventTransactionFailed = domain.OutboxEventFailed
)

// TransactionEventLine: позиция в событии завершённой транзакции.
type TransactionEventLine struct {
	SubscriptionID string `json:"subscription_id"`
	OfferID        string `json:"offer_id"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	Total          string `json:"total"`
}

// TransactionEvent: полезная нагрузка событий TransactionCompleted/TransactionFailed.
type TransactionEvent struct {
	OrderID     string                 `json:"order_id"`
	CustomerID  string                 `json:"customer_id"`
	Operation   string                 `json:"operation"`
	Currency    string                 `json:"currency"`
	Total       string                 `json:"total,omitempty"`
	LineItems   []TransactionEventLine `json:"line_items,omitempty"`
	FailureKind string                 `json:"failure_kind,omitempty"`
	Reason      string                 `json:"reason,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

func completedEvent(order domain.CommerceOrder, currency string, places int32, result domain.TransactionResult) TransactionEvent {
	event := TransactionEvent{
		OrderID:    order.OrderID,
		CustomerID: order.CustomerID,
		Operation:  string(order.Operation),
		Currency:   currency,
		Total:      result.Total().StringFixed(places),
		OccurredAt: result.CompletedAt(),
	}
	for _, item := range result.LineItems() {
		event.LineItems = append(event.LineItems, TransactionEventLine{
			SubscriptionID: item.SubscriptionID,
			OfferID:        item.OfferID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.StringFixed(places),
			Total:          item.Total.StringFixed(places),
		})
	}
	return event
}

func failedEvent(order domain.CommerceOrder, currency string, err error, at time.Time) TransactionEvent {
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	return TransactionEvent{
		OrderID:     order.OrderID,
		CustomerID:  order.CustomerID,
		Operation:   string(order.Operation),
		Currency:    currency,
		FailureKind: kind,
		Reason:      err.Error(),
		OccurredAt:  at.UTC(),
	}
}

func (e TransactionEvent) message(eventType string) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return domain.OutboxMessage{
		AggregateType: AggregateType,
		AggregateID:   e.OrderID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
