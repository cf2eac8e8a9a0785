package partnercenter

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const statusActive = "active"

// MemoryClient: in-memory реализация commerce API для локального запуска и тестов.
// Ошибки вызовов настраиваются полями *Err.
type MemoryClient struct {
	mu            sync.Mutex
	subscriptions map[string]map[string]domain.RemoteSubscription

	PlaceOrderErr   error
	AddSeatsErr     error
	RenewErr        error
	GetErr          error
	PlaceOrderCalls int
	AddSeatsCalls   int
	RenewCalls      int
}

// NewMemoryClient создаёт пустой commerce API.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{subscriptions: make(map[string]map[string]domain.RemoteSubscription)}
}

// Seed добавляет подписку клиента, например для тестов докупки и продления.
func (c *MemoryClient) Seed(customerID string, sub domain.RemoteSubscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub.Status == "" {
		sub.Status = statusActive
	}
	c.customerLocked(customerID)[sub.ID] = sub
}

// PlaceOrder создаёт по одной подписке на каждую позицию заказа.
func (c *MemoryClient) PlaceOrder(ctx context.Context, order domain.PartnerOrder) (domain.PlacedOrder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.PlaceOrderCalls++
	if c.PlaceOrderErr != nil {
		return domain.PlacedOrder{}, c.PlaceOrderErr
	}
	if len(order.Lines) == 0 {
		return domain.PlacedOrder{}, fmt.Errorf("order has no lines: %w", domain.ErrCommerceAPI)
	}

	placed := domain.PlacedOrder{
		ID:         uuid.NewString(),
		CustomerID: order.CustomerID,
		Lines:      make([]domain.PlacedOrderLine, 0, len(order.Lines)),
	}
	subs := c.customerLocked(order.CustomerID)
	for _, line := range order.Lines {
		sub := domain.RemoteSubscription{
			ID:            uuid.NewString(),
			RemoteOfferID: line.RemoteOfferID,
			Quantity:      line.Quantity,
			Status:        statusActive,
		}
		subs[sub.ID] = sub
		placed.Lines = append(placed.Lines, domain.PlacedOrderLine{
			LineNumber:     line.LineNumber,
			RemoteOfferID:  line.RemoteOfferID,
			SubscriptionID: sub.ID,
			Quantity:       line.Quantity,
		})
	}
	return placed, nil
}

func (c *MemoryClient) AddSeats(ctx context.Context, customerID, subscriptionID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.AddSeatsCalls++
	if c.AddSeatsErr != nil {
		return c.AddSeatsErr
	}
	sub, err := c.getLocked(customerID, subscriptionID)
	if err != nil {
		return err
	}
	sub.Quantity += quantity
	c.subscriptions[customerID][subscriptionID] = sub
	return nil
}

func (c *MemoryClient) RenewSubscription(ctx context.Context, customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.RenewCalls++
	if c.RenewErr != nil {
		return domain.RemoteSubscription{}, c.RenewErr
	}
	sub, err := c.getLocked(customerID, subscriptionID)
	if err != nil {
		return domain.RemoteSubscription{}, err
	}
	sub.Status = statusActive
	c.subscriptions[customerID][subscriptionID] = sub
	return sub, nil
}

func (c *MemoryClient) GetSubscription(ctx context.Context, customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.GetErr != nil {
		return domain.RemoteSubscription{}, c.GetErr
	}
	return c.getLocked(customerID, subscriptionID)
}

func (c *MemoryClient) customerLocked(customerID string) map[string]domain.RemoteSubscription {
	subs, ok := c.subscriptions[customerID]
	if !ok {
		subs = make(map[string]domain.RemoteSubscription)
		c.subscriptions[customerID] = subs
	}
	return subs
}

func (c *MemoryClient) getLocked(customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	sub, ok := c.subscriptions[customerID][subscriptionID]
	if !ok {
		return domain.RemoteSubscription{}, fmt.Errorf("subscription %s of customer %s not found: %w", subscriptionID, customerID, domain.ErrCommerceAPI)
	}
	return sub, nil
}

var _ domain.CommerceAPI = (*MemoryClient)(nil)
