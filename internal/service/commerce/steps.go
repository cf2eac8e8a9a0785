package commerce

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/saga"
)

// AuthorizePayment резервирует средства клиента. Результат: код авторизации.
type AuthorizePayment struct {
	gateway domain.PaymentGateway
	request domain.PaymentRequest
	code    saga.Cell[string]
}

func NewAuthorizePayment(gateway domain.PaymentGateway, request domain.PaymentRequest) *AuthorizePayment {
	return &AuthorizePayment{gateway: gateway, request: request}
}

func (s *AuthorizePayment) Name() string { return string(domain.SagaStepAuthorizePayment) }

func (s *AuthorizePayment) Execute(ctx context.Context) error {
	code, err := s.gateway.Authorize(ctx, s.request)
	if err != nil {
		return domain.GatewayFailure("authorize", err)
	}
	s.code.Set(code)
	return nil
}

// Rollback снимает резерв по полученному коду.
func (s *AuthorizePayment) Rollback(ctx context.Context) error {
	code, err := s.code.Result()
	if err != nil {
		return nil
	}
	if err := s.gateway.Void(ctx, code); err != nil {
		return domain.GatewayFailure("void", err)
	}
	s.code.Clear()
	return nil
}

func (s *AuthorizePayment) Output() saga.Output[string] { return &s.code }

// CapturePayment списывает ранее зарезервированную сумму. Всегда последний шаг.
type CapturePayment struct {
	gateway domain.PaymentGateway
	code    saga.Output[string]
}

func NewCapturePayment(gateway domain.PaymentGateway, code saga.Output[string]) *CapturePayment {
	return &CapturePayment{gateway: gateway, code: code}
}

func (s *CapturePayment) Name() string { return string(domain.SagaStepCapturePayment) }

func (s *CapturePayment) Execute(ctx context.Context) error {
	code, err := s.code.Result()
	if err != nil {
		return err
	}
	if err := s.gateway.Capture(ctx, code); err != nil {
		return domain.GatewayFailure("capture", err)
	}
	return nil
}

func (s *CapturePayment) Rollback(ctx context.Context) error { return nil }

// PlaceOrder оформляет заказ в удалённом commerce API.
type PlaceOrder struct {
	api    domain.CommerceAPI
	order  domain.PartnerOrder
	placed saga.Cell[domain.PlacedOrder]
}

func NewPlaceOrder(api domain.CommerceAPI, order domain.PartnerOrder) *PlaceOrder {
	return &PlaceOrder{api: api, order: order}
}

func (s *PlaceOrder) Name() string { return string(domain.SagaStepPlaceOrder) }

func (s *PlaceOrder) Execute(ctx context.Context) error {
	placed, err := s.api.PlaceOrder(ctx, s.order)
	if err != nil {
		return domain.CommerceAPIFailure("place_order", err)
	}
	s.placed.Set(placed)
	return nil
}

// Rollback ничего не делает: созданный заказ остаётся за удалённой системой.
func (s *PlaceOrder) Rollback(ctx context.Context) error { return nil }

func (s *PlaceOrder) Output() saga.Output[domain.PlacedOrder] { return &s.placed }

// OfferAssociation связывает позицию заказа с предложением каталога и ценой места.
type OfferAssociation struct {
	LineNumber     int
	PartnerOfferID string
	SeatPrice      decimal.Decimal
}

// PersistedLine: подписка и покупка, записанные по одной позиции заказа.
type PersistedLine struct {
	Subscription domain.CustomerSubscription
	Purchase     domain.CustomerPurchase
}

// PersistNewlyPurchasedSubscriptions записывает подписки и историю покупок
// по позициям созданного заказа. Если запись обрывается на середине, Execute
// удаляет уже записанное до возврата ошибки, а Rollback удаляет всё созданное.
type PersistNewlyPurchasedSubscriptions struct {
	subscriptions domain.SubscriptionRepository
	purchases     domain.PurchaseRepository
	customerID    string
	placed        saga.Output[domain.PlacedOrder]
	associations  map[int]OfferAssociation
	now           time.Time

	created   []PersistedLine
	subsSaved []domain.CustomerSubscription
	persisted saga.Cell[[]PersistedLine]
}

func NewPersistNewlyPurchasedSubscriptions(
	subscriptions domain.SubscriptionRepository,
	purchases domain.PurchaseRepository,
	customerID string,
	placed saga.Output[domain.PlacedOrder],
	associations []OfferAssociation,
	now time.Time,
) *PersistNewlyPurchasedSubscriptions {
	byLine := make(map[int]OfferAssociation, len(associations))
	for _, assoc := range associations {
		byLine[assoc.LineNumber] = assoc
	}
	return &PersistNewlyPurchasedSubscriptions{
		subscriptions: subscriptions,
		purchases:     purchases,
		customerID:    customerID,
		placed:        placed,
		associations:  byLine,
		now:           now.UTC(),
	}
}

func (s *PersistNewlyPurchasedSubscriptions) Name() string {
	return string(domain.SagaStepPersistSubscriptions)
}

func (s *PersistNewlyPurchasedSubscriptions) Execute(ctx context.Context) error {
	placed, err := s.placed.Result()
	if err != nil {
		return err
	}

	if err := s.matchPlacedLines(placed.Lines); err != nil {
		return domain.CommerceAPIFailure("place_order", err)
	}

	for _, line := range placed.Lines {
		assoc := s.associations[line.LineNumber]

		sub := domain.CustomerSubscription{
			CustomerID:     s.customerID,
			SubscriptionID: line.SubscriptionID,
			PartnerOfferID: assoc.PartnerOfferID,
			Quantity:       line.Quantity,
			ExpiryDate:     s.now.AddDate(1, 0, 0),
		}
		if err := s.subscriptions.Create(sub); err != nil {
			return s.abort(err)
		}
		s.subsSaved = append(s.subsSaved, sub)

		purchase := domain.CustomerPurchase{
			ID:              uuid.NewString(),
			CustomerID:      s.customerID,
			SubscriptionID:  line.SubscriptionID,
			Operation:       domain.OperationNewPurchase,
			SeatsBought:     line.Quantity,
			SeatPrice:       assoc.SeatPrice,
			TransactionDate: s.now,
		}
		if err := s.purchases.Create(purchase); err != nil {
			return s.abort(err)
		}
		s.created = append(s.created, PersistedLine{Subscription: sub, Purchase: purchase})
	}

	out := make([]PersistedLine, len(s.created))
	copy(out, s.created)
	s.persisted.Set(out)
	return nil
}

// Rollback удаляет все записи, созданные шагом, в обратном порядке.
func (s *PersistNewlyPurchasedSubscriptions) Rollback(ctx context.Context) error {
	s.persisted.Clear()
	return s.undo()
}

func (s *PersistNewlyPurchasedSubscriptions) Output() saga.Output[[]PersistedLine] {
	return &s.persisted
}

// matchPlacedLines требует, чтобы каждой запрошенной позиции соответствовала
// ровно одна позиция созданного заказа.
func (s *PersistNewlyPurchasedSubscriptions) matchPlacedLines(lines []domain.PlacedOrderLine) error {
	seen := make(map[int]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := s.associations[line.LineNumber]; !ok {
			return fmt.Errorf("%w: line %d has no offer association", domain.ErrPlacedOrderMismatch, line.LineNumber)
		}
		if _, dup := seen[line.LineNumber]; dup {
			return fmt.Errorf("%w: line %d returned twice", domain.ErrPlacedOrderMismatch, line.LineNumber)
		}
		seen[line.LineNumber] = struct{}{}
	}
	if len(seen) != len(s.associations) {
		return fmt.Errorf("%w: %d of %d lines placed", domain.ErrPlacedOrderMismatch, len(seen), len(s.associations))
	}
	return nil
}

func (s *PersistNewlyPurchasedSubscriptions) abort(cause error) error {
	var result *multierror.Error
	result = multierror.Append(result, cause)
	if err := s.undo(); err != nil {
		result = multierror.Append(result, fmt.Errorf("undo partial write: %w", err))
	}
	return domain.StorageFailure("persist_subscriptions", result.ErrorOrNil())
}

func (s *PersistNewlyPurchasedSubscriptions) undo() error {
	var result *multierror.Error
	for i := len(s.created) - 1; i >= 0; i-- {
		p := s.created[i].Purchase
		if err := s.purchases.Delete(p.CustomerID, p.ID); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete purchase %s: %w", p.ID, err))
		}
	}
	for i := len(s.subsSaved) - 1; i >= 0; i-- {
		sub := s.subsSaved[i]
		if err := s.subscriptions.Delete(sub.CustomerID, sub.SubscriptionID); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete subscription %s: %w", sub.SubscriptionID, err))
		}
	}
	s.created = nil
	s.subsSaved = nil
	return result.ErrorOrNil()
}

// RecordPurchase добавляет запись в историю покупок.
type RecordPurchase struct {
	purchases domain.PurchaseRepository
	purchase  domain.CustomerPurchase
	recorded  bool
}

func NewRecordPurchase(purchases domain.PurchaseRepository, purchase domain.CustomerPurchase) *RecordPurchase {
	return &RecordPurchase{purchases: purchases, purchase: purchase}
}

func (s *RecordPurchase) Name() string { return string(domain.SagaStepRecordPurchase) }

func (s *RecordPurchase) Execute(ctx context.Context) error {
	if err := s.purchases.Create(s.purchase); err != nil {
		return domain.StorageFailure("record_purchase", err)
	}
	s.recorded = true
	return nil
}

func (s *RecordPurchase) Rollback(ctx context.Context) error {
	if !s.recorded {
		return nil
	}
	if err := s.purchases.Delete(s.purchase.CustomerID, s.purchase.ID); err != nil {
		return domain.StorageFailure("delete_purchase", err)
	}
	s.recorded = false
	return nil
}

// UpdatePersistedSubscription перечитывает подписку, применяет изменение и сохраняет её.
// Прежнее значение не восстанавливается.
type UpdatePersistedSubscription struct {
	subscriptions  domain.SubscriptionRepository
	customerID     string
	subscriptionID string
	apply          func(*domain.CustomerSubscription)
}

func NewUpdatePersistedSubscription(
	subscriptions domain.SubscriptionRepository,
	customerID, subscriptionID string,
	apply func(*domain.CustomerSubscription),
) *UpdatePersistedSubscription {
	return &UpdatePersistedSubscription{
		subscriptions:  subscriptions,
		customerID:     customerID,
		subscriptionID: subscriptionID,
		apply:          apply,
	}
}

func (s *UpdatePersistedSubscription) Name() string { return string(domain.SagaStepUpdateSubscription) }

func (s *UpdatePersistedSubscription) Execute(ctx context.Context) error {
	sub, err := s.subscriptions.Get(s.customerID, s.subscriptionID)
	if err != nil {
		return domain.StorageFailure("get_subscription", err)
	}
	s.apply(&sub)
	if err := s.subscriptions.Update(sub); err != nil {
		return domain.StorageFailure("update_subscription", err)
	}
	return nil
}

func (s *UpdatePersistedSubscription) Rollback(ctx context.Context) error { return nil }

// PurchaseExtraSeats добавляет места в подписку удалённого commerce API.
type PurchaseExtraSeats struct {
	api            domain.CommerceAPI
	customerID     string
	subscriptionID string
	quantity       int
}

func NewPurchaseExtraSeats(api domain.CommerceAPI, customerID, subscriptionID string, quantity int) *PurchaseExtraSeats {
	return &PurchaseExtraSeats{api: api, customerID: customerID, subscriptionID: subscriptionID, quantity: quantity}
}

func (s *PurchaseExtraSeats) Name() string { return string(domain.SagaStepPurchaseExtraSeats) }

func (s *PurchaseExtraSeats) Execute(ctx context.Context) error {
	if err := s.api.AddSeats(ctx, s.customerID, s.subscriptionID, s.quantity); err != nil {
		return domain.CommerceAPIFailure("add_seats", err)
	}
	return nil
}

func (s *PurchaseExtraSeats) Rollback(ctx context.Context) error { return nil }

// RenewSubscription продлевает подписку в удалённом commerce API.
type RenewSubscription struct {
	api            domain.CommerceAPI
	customerID     string
	subscriptionID string
	renewed        saga.Cell[domain.RemoteSubscription]
}

func NewRenewSubscription(api domain.CommerceAPI, customerID, subscriptionID string) *RenewSubscription {
	return &RenewSubscription{api: api, customerID: customerID, subscriptionID: subscriptionID}
}

func (s *RenewSubscription) Name() string { return string(domain.SagaStepRenewSubscription) }

func (s *RenewSubscription) Execute(ctx context.Context) error {
	sub, err := s.api.RenewSubscription(ctx, s.customerID, s.subscriptionID)
	if err != nil {
		return domain.CommerceAPIFailure("renew_subscription", err)
	}
	s.renewed.Set(sub)
	return nil
}

func (s *RenewSubscription) Rollback(ctx context.Context) error { return nil }

func (s *RenewSubscription) Output() saga.Output[domain.RemoteSubscription] { return &s.renewed }

var (
	_ saga.Producer[string]                    = (*AuthorizePayment)(nil)
	_ saga.Step                                = (*CapturePayment)(nil)
	_ saga.Producer[domain.PlacedOrder]        = (*PlaceOrder)(nil)
	_ saga.Producer[[]PersistedLine]           = (*PersistNewlyPurchasedSubscriptions)(nil)
	_ saga.Step                                = (*RecordPurchase)(nil)
	_ saga.Step                                = (*UpdatePersistedSubscription)(nil)
	_ saga.Step                                = (*PurchaseExtraSeats)(nil)
	_ saga.Producer[domain.RemoteSubscription] = (*RenewSubscription)(nil)
)
