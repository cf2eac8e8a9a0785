package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// offerRepositoryInMemory: in-memory каталог предложений.
type offerRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.PartnerOffer
}

// NewOfferRepository возвращает in-memory каталог для локальной разработки и тестов.
func NewOfferRepository() domain.OfferRepository {
	return &offerRepositoryInMemory{
		items: make(map[string]domain.PartnerOffer),
	}
}

// Create сохраняет предложение, если ID ещё не занят.
func (r *offerRepositoryInMemory) Create(offer domain.PartnerOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[offer.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r.items[offer.ID] = offer
	return nil
}

// Get возвращает предложение или ErrOfferNotFound.
func (r *offerRepositoryInMemory) Get(id string) (domain.PartnerOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offer, ok := r.items[id]
	if !ok {
		return domain.PartnerOffer{}, domain.ErrOfferNotFound
	}
	return offer, nil
}

// List возвращает предложения, отсортированные по ID.
func (r *offerRepositoryInMemory) List() ([]domain.PartnerOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.PartnerOffer, 0, len(r.items))
	for _, offer := range r.items {
		result = append(result, offer)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ domain.OfferRepository = (*offerRepositoryInMemory)(nil)
