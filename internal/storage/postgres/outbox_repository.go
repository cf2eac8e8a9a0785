package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultOutboxPullLimit = 100

	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"
)

// transactionOutbox хранит события коммерческих транзакций в outbox_messages.
// Статус меняется только у pending-записей: отправленное событие нельзя
// пометить повторно.
type transactionOutbox struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutboxRepository создаёт PostgreSQL-реализацию outbox для событий транзакций.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &transactionOutbox{
		db:  store.DB(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (o *transactionOutbox) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if err := validateTransactionEvent(msg); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("invalid outbox message for order %q: %w", msg.AggregateID, err)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	ctx, cancel := opContext()
	defer cancel()

	now := o.now()
	var createdAt time.Time
	err := o.db.QueryRowContext(ctx, `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`, msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, outboxPending, now).Scan(&createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.OutboxMessage{}, domain.ErrAlreadyExists
	case err != nil:
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s for order %s: %w", msg.EventType, msg.AggregateID, err)
	}
	return msg, nil
}

// validateTransactionEvent пропускает только события транзакций с JSON-телом.
func validateTransactionEvent(msg domain.OutboxMessage) error {
	return validation.ValidateStruct(&msg,
		validation.Field(&msg.AggregateType,
			validation.Required,
			validation.In(domain.OutboxAggregateTransaction),
		),
		validation.Field(&msg.AggregateID, validation.Required),
		validation.Field(&msg.EventType,
			validation.Required,
			validation.In(domain.OutboxEventCompleted, domain.OutboxEventFailed),
		),
		validation.Field(&msg.Payload, validation.Required, validation.By(jsonObject)),
	)
}

func jsonObject(value interface{}) error {
	payload, _ := value.([]byte)
	if !json.Valid(payload) {
		return errors.New("must be valid JSON")
	}
	return nil
}

func (o *transactionOutbox) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}

	ctx, cancel := opContext()
	defer cancel()

	rows, err := o.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, outboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending transaction events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxMessage
	for rows.Next() {
		var event domain.OutboxMessage
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.EventType, &event.Payload); err != nil {
			return nil, fmt.Errorf("scan transaction event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Stats считает backlog по типам событий. OldestPendingAt берётся по всем типам.
func (o *transactionOutbox) Stats() (domain.OutboxStats, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := o.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = $1
		GROUP BY event_type
	`, outboxPending)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox backlog query: %w", err)
	}
	defer rows.Close()

	stats := domain.OutboxStats{PendingByEvent: make(map[string]int)}
	for rows.Next() {
		var (
			eventType string
			count     int
			oldest    time.Time
		)
		if err := rows.Scan(&eventType, &count, &oldest); err != nil {
			return domain.OutboxStats{}, fmt.Errorf("scan outbox backlog: %w", err)
		}
		stats.PendingByEvent[eventType] = count
		stats.PendingCount += count
		oldest = oldest.UTC()
		if stats.OldestPendingAt.IsZero() || oldest.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = oldest
		}
	}
	if err := rows.Err(); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("iterate outbox backlog: %w", err)
	}
	return stats, nil
}

func (o *transactionOutbox) MarkSent(id string) error {
	return o.resolve(id, outboxSent)
}

func (o *transactionOutbox) MarkFailed(id string) error {
	return o.resolve(id, outboxFailed)
}

// resolve переводит pending-событие в конечный статус.
func (o *transactionOutbox) resolve(id, status string) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := o.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1 AND status = $4
	`, id, status, o.now(), outboxPending)
	if err != nil {
		return fmt.Errorf("resolve outbox event %s as %s: %w", id, status, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("resolve outbox event %s: %w", id, err)
	} else if affected == 0 {
		return fmt.Errorf("%w: event %s is not pending", domain.ErrOutboxPublish, id)
	}
	return nil
}

var _ domain.OutboxRepository = (*transactionOutbox)(nil)
