package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest описывает сумму, которую нужно зарезервировать у клиента.
type PaymentRequest struct {
	CustomerID  string
	OrderID     string
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// PaymentGateway описывает взаимодействие с платёжным провайдером.
// Повторные попытки, если они нужны, реализует сам шлюз.
type PaymentGateway interface {
	// Authorize резервирует средства и возвращает код авторизации.
	Authorize(ctx context.Context, req PaymentRequest) (string, error)
	// Capture списывает ранее зарезервированную сумму.
	Capture(ctx context.Context, authorizationCode string) error
	// Void снимает резерв (компенсация авторизации).
	Void(ctx context.Context, authorizationCode string) error
}

// CommerceAPI описывает удалённый API подписок.
type CommerceAPI interface {
	PlaceOrder(ctx context.Context, order PartnerOrder) (PlacedOrder, error)
	AddSeats(ctx context.Context, customerID, subscriptionID string, quantity int) error
	RenewSubscription(ctx context.Context, customerID, subscriptionID string) (RemoteSubscription, error)
	GetSubscription(ctx context.Context, customerID, subscriptionID string) (RemoteSubscription, error)
}

// OfferRepository хранит каталог предложений витрины.
type OfferRepository interface {
	// Create сохраняет предложение; ErrAlreadyExists при повторном ID.
	Create(offer PartnerOffer) error
	// Get возвращает предложение или ErrOfferNotFound.
	Get(id string) (PartnerOffer, error)
	// List возвращает все предложения, включая неактивные.
	List() ([]PartnerOffer, error)
}

// SubscriptionRepository хранит подписки клиентов.
type SubscriptionRepository interface {
	// Create сохраняет подписку; ErrAlreadyExists при повторном ключе.
	Create(sub CustomerSubscription) error
	// Get возвращает подписку или ErrSubscriptionNotFound.
	Get(customerID, subscriptionID string) (CustomerSubscription, error)
	ListByCustomer(customerID string) ([]CustomerSubscription, error)
	// Update перезаписывает срок, предложение и количество мест; ErrSubscriptionNotFound, если записи нет.
	Update(sub CustomerSubscription) error
	// Delete удаляет подписку, если она есть. Отсутствие записи ошибкой не считается.
	Delete(customerID, subscriptionID string) error
}

// PurchaseRepository хранит историю покупок.
type PurchaseRepository interface {
	// Create сохраняет запись; ErrAlreadyExists при повторном ключе.
	Create(purchase CustomerPurchase) error
	ListByCustomer(customerID string) ([]CustomerPurchase, error)
	// Delete удаляет запись, если она есть.
	Delete(customerID, purchaseID string) error
}

// JournalRepository хранит журнал шагов транзакций по заказам.
type JournalRepository interface {
	Append(event JournalEvent) error
	List(orderID string) ([]JournalEvent, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// SagaStep задаёт имена шагов для метрик, логов и журнала.
type SagaStep string

const (
	SagaStepAuthorizePayment     SagaStep = "authorize_payment"
	SagaStepCapturePayment       SagaStep = "capture_payment"
	SagaStepPlaceOrder           SagaStep = "place_order"
	SagaStepPersistSubscriptions SagaStep = "persist_new_subscriptions"
	SagaStepRecordPurchase       SagaStep = "record_purchase"
	SagaStepUpdateSubscription   SagaStep = "update_persisted_subscription"
	SagaStepPurchaseExtraSeats   SagaStep = "purchase_extra_seats"
	SagaStepRenewSubscription    SagaStep = "renew_subscription"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Конверт событий коммерческих транзакций в outbox.
const (
	OutboxAggregateTransaction = "commerce_transaction"
	OutboxEventCompleted       = "TransactionCompleted"
	OutboxEventFailed          = "TransactionFailed"
)

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
	// PendingByEvent: размер backlog по типам событий.
	PendingByEvent map[string]int
}
