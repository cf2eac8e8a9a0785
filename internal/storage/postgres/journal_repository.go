package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type journalRepository struct {
	db *sql.DB
}

// NewJournalRepository создаёт PostgreSQL-реализацию журнала шагов.
func NewJournalRepository(store *Store) domain.JournalRepository {
	return &journalRepository{db: store.DB()}
}

func (r *journalRepository) Append(event domain.JournalEvent) error {
	ctx, cancel := opContext()
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO transaction_journal (order_id, step, type, reason, occurred)
		VALUES ($1,$2,$3,$4,$5)
	`, event.OrderID, event.Step, event.Type, event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("append journal event: %w", err)
	}
	return nil
}

func (r *journalRepository) List(orderID string) ([]domain.JournalEvent, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, step, type, reason, occurred
		FROM transaction_journal
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list journal events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.JournalEvent, 0)
	for rows.Next() {
		var event domain.JournalEvent
		if err := rows.Scan(&event.OrderID, &event.Step, &event.Type, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal events: %w", err)
	}
	return events, nil
}

var _ domain.JournalRepository = (*journalRepository)(nil)
