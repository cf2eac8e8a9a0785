package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type purchaseKey struct {
	customerID string
	purchaseID string
}

// purchaseRepositoryInMemory: in-memory история покупок.
type purchaseRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[purchaseKey]domain.CustomerPurchase
}

// NewPurchaseRepository возвращает in-memory репозиторий истории покупок.
func NewPurchaseRepository() domain.PurchaseRepository {
	return &purchaseRepositoryInMemory{
		items: make(map[purchaseKey]domain.CustomerPurchase),
	}
}

func (r *purchaseRepositoryInMemory) Create(purchase domain.CustomerPurchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := purchaseKey{customerID: purchase.CustomerID, purchaseID: purchase.ID}
	if _, exists := r.items[key]; exists {
		return domain.ErrAlreadyExists
	}
	r.items[key] = purchase
	return nil
}

// ListByCustomer возвращает покупки клиента, начиная с самых новых.
func (r *purchaseRepositoryInMemory) ListByCustomer(customerID string) ([]domain.CustomerPurchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.CustomerPurchase, 0)
	for key, purchase := range r.items {
		if key.customerID == customerID {
			result = append(result, purchase)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].TransactionDate.Equal(result[j].TransactionDate) {
			return result[i].TransactionDate.After(result[j].TransactionDate)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *purchaseRepositoryInMemory) Delete(customerID, purchaseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, purchaseKey{customerID: customerID, purchaseID: purchaseID})
	return nil
}

var _ domain.PurchaseRepository = (*purchaseRepositoryInMemory)(nil)
