package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// journalRepositoryInMemory хранит журнал шагов в порядке добавления.
type journalRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.JournalEvent
}

// NewJournalRepository возвращает in-memory журнал шагов транзакций.
func NewJournalRepository() domain.JournalRepository {
	return &journalRepositoryInMemory{
		events: make(map[string][]domain.JournalEvent),
	}
}

func (r *journalRepositoryInMemory) Append(event domain.JournalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.OrderID] = append(r.events[event.OrderID], event)
	return nil
}

func (r *journalRepositoryInMemory) List(orderID string) ([]domain.JournalEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[orderID]
	out := make([]domain.JournalEvent, len(events))
	copy(out, events)
	return out, nil
}

var _ domain.JournalRepository = (*journalRepositoryInMemory)(nil)
