package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type subscriptionKey struct {
	customerID     string
	subscriptionID string
}

// subscriptionRepositoryInMemory хранит подписки клиентов по ключу (клиент, подписка).
type subscriptionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[subscriptionKey]domain.CustomerSubscription
}

// NewSubscriptionRepository возвращает in-memory репозиторий подписок.
func NewSubscriptionRepository() domain.SubscriptionRepository {
	return &subscriptionRepositoryInMemory{
		items: make(map[subscriptionKey]domain.CustomerSubscription),
	}
}

func keyOf(sub domain.CustomerSubscription) subscriptionKey {
	return subscriptionKey{customerID: sub.CustomerID, subscriptionID: sub.SubscriptionID}
}

func (r *subscriptionRepositoryInMemory) Create(sub domain.CustomerSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(sub)
	if _, exists := r.items[key]; exists {
		return domain.ErrAlreadyExists
	}
	r.items[key] = sub
	return nil
}

func (r *subscriptionRepositoryInMemory) Get(customerID, subscriptionID string) (domain.CustomerSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.items[subscriptionKey{customerID: customerID, subscriptionID: subscriptionID}]
	if !ok {
		return domain.CustomerSubscription{}, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// ListByCustomer возвращает подписки клиента в порядке идентификаторов.
func (r *subscriptionRepositoryInMemory) ListByCustomer(customerID string) ([]domain.CustomerSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.CustomerSubscription, 0)
	for key, sub := range r.items {
		if key.customerID == customerID {
			result = append(result, sub)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubscriptionID < result[j].SubscriptionID
	})
	return result, nil
}

func (r *subscriptionRepositoryInMemory) Update(sub domain.CustomerSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(sub)
	if _, ok := r.items[key]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	r.items[key] = sub
	return nil
}

// Delete удаляет подписку; отсутствие записи не считается ошибкой.
func (r *subscriptionRepositoryInMemory) Delete(customerID, subscriptionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, subscriptionKey{customerID: customerID, subscriptionID: subscriptionID})
	return nil
}

var _ domain.SubscriptionRepository = (*subscriptionRepositoryInMemory)(nil)
