package commerce

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// callLog фиксирует порядок обращений к внешним системам.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

type recordingGateway struct {
	log          *callLog
	code         string
	authorizeErr error
	captureErr   error
	voidErr      error
	voided       []string
	requests     []domain.PaymentRequest
}

func (g *recordingGateway) Authorize(ctx context.Context, req domain.PaymentRequest) (string, error) {
	g.log.add("authorize")
	g.requests = append(g.requests, req)
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	return g.code, nil
}

func (g *recordingGateway) Capture(ctx context.Context, code string) error {
	g.log.add("capture")
	return g.captureErr
}

func (g *recordingGateway) Void(ctx context.Context, code string) error {
	g.log.add("void")
	g.voided = append(g.voided, code)
	return g.voidErr
}

type recordingAPI struct {
	log           *callLog
	placeErr      error
	addSeatsErr   error
	renewErr      error
	subscriptions []string
	// reshape подменяет позиции ответа, имитируя расхождение remote-заказа.
	reshape func([]domain.PlacedOrderLine) []domain.PlacedOrderLine
}

func (a *recordingAPI) PlaceOrder(ctx context.Context, order domain.PartnerOrder) (domain.PlacedOrder, error) {
	a.log.add("place_order")
	if a.placeErr != nil {
		return domain.PlacedOrder{}, a.placeErr
	}
	placed := domain.PlacedOrder{ID: "remote-order", CustomerID: order.CustomerID}
	for i, line := range order.Lines {
		id := "sub-new-" + string(rune('a'+i))
		if i < len(a.subscriptions) {
			id = a.subscriptions[i]
		}
		placed.Lines = append(placed.Lines, domain.PlacedOrderLine{
			LineNumber:     line.LineNumber,
			RemoteOfferID:  line.RemoteOfferID,
			SubscriptionID: id,
			Quantity:       line.Quantity,
		})
	}
	if a.reshape != nil {
		placed.Lines = a.reshape(placed.Lines)
	}
	return placed, nil
}

func (a *recordingAPI) AddSeats(ctx context.Context, customerID, subscriptionID string, quantity int) error {
	a.log.add("add_seats")
	return a.addSeatsErr
}

func (a *recordingAPI) RenewSubscription(ctx context.Context, customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	a.log.add("renew")
	if a.renewErr != nil {
		return domain.RemoteSubscription{}, a.renewErr
	}
	return domain.RemoteSubscription{ID: subscriptionID, Status: "active"}, nil
}

func (a *recordingAPI) GetSubscription(ctx context.Context, customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	a.log.add("get_subscription")
	return domain.RemoteSubscription{ID: subscriptionID}, nil
}

// recordingSubscriptions оборачивает репозиторий подписок и журналирует вызовы.
type recordingSubscriptions struct {
	domain.SubscriptionRepository
	log       *callLog
	createErr error
	failAfter int
	creates   int
}

func (r *recordingSubscriptions) Create(sub domain.CustomerSubscription) error {
	r.log.add("create_subscription")
	r.creates++
	if r.createErr != nil && r.creates > r.failAfter {
		return r.createErr
	}
	return r.SubscriptionRepository.Create(sub)
}

func (r *recordingSubscriptions) Update(sub domain.CustomerSubscription) error {
	r.log.add("update_subscription")
	return r.SubscriptionRepository.Update(sub)
}

func (r *recordingSubscriptions) Delete(customerID, subscriptionID string) error {
	r.log.add("delete_subscription")
	return r.SubscriptionRepository.Delete(customerID, subscriptionID)
}

type recordingPurchases struct {
	domain.PurchaseRepository
	log       *callLog
	createErr error
}

func (r *recordingPurchases) Create(p domain.CustomerPurchase) error {
	r.log.add("create_purchase")
	if r.createErr != nil {
		return r.createErr
	}
	return r.PurchaseRepository.Create(p)
}

func (r *recordingPurchases) Delete(customerID, purchaseID string) error {
	r.log.add("delete_purchase")
	return r.PurchaseRepository.Delete(customerID, purchaseID)
}
