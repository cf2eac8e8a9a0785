// Package messaging содержит общий формат сообщений, которые outbox публикует во внешние брокеры.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Envelope: тело сообщения, публикуемого из outbox.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// EncodeEnvelope упаковывает outbox-сообщение в JSON-конверт.
// Payload должен быть валидным JSON.
func EncodeEnvelope(event domain.OutboxMessage, publishedAt time.Time) ([]byte, error) {
	body, err := json.Marshal(Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   publishedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal outbox envelope: %w", err)
	}
	return body, nil
}

// PartitionKey возвращает ключ упорядочивания: события одного заказа идут в одном потоке.
func PartitionKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}
