package commerce

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/saga"
)

const (
	defaultCurrency      = "USD"
	defaultDecimalPlaces = 2
)

// Dependencies: внешние коллабораторы коммерческих операций.
// Outbox и Journal необязательны.
type Dependencies struct {
	Gateway       domain.PaymentGateway
	CommerceAPI   domain.CommerceAPI
	Subscriptions domain.SubscriptionRepository
	Purchases     domain.PurchaseRepository
	Normalizer    Normalizer
	Outbox        domain.OutboxRepository
	Journal       domain.JournalRepository
}

// Validate проверяет наличие обязательных коллабораторов.
func (d Dependencies) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Gateway, validation.Required),
		validation.Field(&d.CommerceAPI, validation.Required),
		validation.Field(&d.Subscriptions, validation.Required),
		validation.Field(&d.Purchases, validation.Required),
		validation.Field(&d.Normalizer, validation.Required),
	)
}

// Options задаёт параметры коммерческих операций.
type Options struct {
	Logger        *log.Entry
	Metrics       *metrics.TransactionMetrics
	Clock         func() time.Time
	IDs           func() string
	Currency      string
	DecimalPlaces int32
}

// Option настраивает Operations.
type Option func(*Options)

// WithLogger задаёт logger операций.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics включает prometheus-метрики транзакций.
func WithMetrics(m *metrics.TransactionMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithIDGenerator подменяет генератор идентификаторов заказов и покупок.
func WithIDGenerator(ids func() string) Option {
	return func(opts *Options) {
		opts.IDs = ids
	}
}

// WithCurrency задаёт валюту и число знаков после запятой для округления сумм.
func WithCurrency(currency string, decimalPlaces int32) Option {
	return func(opts *Options) {
		opts.Currency = currency
		opts.DecimalPlaces = decimalPlaces
	}
}

// Operations реализует три коммерческие операции витрины. Каждый вызов строит
// собственный конвейер шагов, поэтому один экземпляр безопасно использовать
// из нескольких горутин.
type Operations struct {
	gateway       domain.PaymentGateway
	api           domain.CommerceAPI
	subscriptions domain.SubscriptionRepository
	purchases     domain.PurchaseRepository
	normalizer    Normalizer
	outbox        domain.OutboxRepository
	journal       domain.JournalRepository

	logger   *log.Entry
	metrics  *metrics.TransactionMetrics
	clock    func() time.Time
	ids      func() string
	currency string
	places   int32
}

// NewOperations создаёт коммерческие операции поверх переданных зависимостей.
func NewOperations(deps Dependencies, options ...Option) (*Operations, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("commerce dependencies: %w", err)
	}

	opts := Options{
		Currency:      defaultCurrency,
		DecimalPlaces: defaultDecimalPlaces,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "commerce")
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.IDs == nil {
		opts.IDs = uuid.NewString
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	if opts.DecimalPlaces < 0 {
		opts.DecimalPlaces = defaultDecimalPlaces
	}

	return &Operations{
		gateway:       deps.Gateway,
		api:           deps.CommerceAPI,
		subscriptions: deps.Subscriptions,
		purchases:     deps.Purchases,
		normalizer:    deps.Normalizer,
		outbox:        deps.Outbox,
		journal:       deps.Journal,
		logger:        logger,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
		ids:           opts.IDs,
		currency:      opts.Currency,
		places:        opts.DecimalPlaces,
	}, nil
}

// resultLines извлекает позиции итога после успешного выполнения конвейера.
type resultLines func() ([]domain.TransactionResultLineItem, error)

// assembleFunc добавляет шаги операции между авторизацией и списанием платежа.
type assembleFunc func(b *saga.Builder, order domain.CommerceOrder, now time.Time) resultLines

// Purchase оформляет новые подписки: Authorize → PlaceOrder → Persist → Capture.
func (o *Operations) Purchase(ctx context.Context, order domain.CommerceOrder) (domain.TransactionResult, error) {
	return o.run(ctx, o.prepare(order, domain.OperationNewPurchase), o.normalizer.NormalizePurchase, o.assemblePurchase)
}

// PurchaseAdditionalSeats докупает места в существующую подписку:
// Authorize → PurchaseExtraSeats → UpdatePersistedSubscription → RecordPurchase → Capture.
func (o *Operations) PurchaseAdditionalSeats(ctx context.Context, order domain.CommerceOrder) (domain.TransactionResult, error) {
	return o.run(ctx, o.prepare(order, domain.OperationAdditionalSeats), o.normalizer.NormalizeAdditionalSeats, o.assembleAdditionalSeats)
}

// RenewSubscription продлевает подписку на год:
// Authorize → RenewSubscription → UpdatePersistedSubscription → RecordPurchase → Capture.
func (o *Operations) RenewSubscription(ctx context.Context, order domain.CommerceOrder) (domain.TransactionResult, error) {
	return o.run(ctx, o.prepare(order, domain.OperationRenewal), o.normalizer.NormalizeRenewal, o.assembleRenewal)
}

// ListPurchases возвращает историю покупок клиента.
func (o *Operations) ListPurchases(customerID string) ([]domain.CustomerPurchase, error) {
	if customerID == "" {
		return nil, domain.ValidationFailed("customer_id", domain.ErrCustomerRequired)
	}
	purchases, err := o.purchases.ListByCustomer(customerID)
	if err != nil {
		return nil, domain.StorageFailure("list_purchases", err)
	}
	return purchases, nil
}

func (o *Operations) prepare(order domain.CommerceOrder, operation domain.OperationType) domain.CommerceOrder {
	if order.Operation == "" {
		order.Operation = operation
	}
	if order.OrderID == "" {
		order.OrderID = o.ids()
	}
	return order
}

func (o *Operations) run(
	ctx context.Context,
	order domain.CommerceOrder,
	normalize func(domain.CommerceOrder) (domain.CommerceOrder, error),
	assemble assembleFunc,
) (domain.TransactionResult, error) {
	started := time.Now()
	operation := string(order.Operation)
	logger := o.logger.WithFields(log.Fields{
		"order_id":    order.OrderID,
		"customer_id": order.CustomerID,
		"operation":   operation,
	})
	if o.metrics != nil {
		o.metrics.RecordStarted(operation)
	}

	normalized, err := normalize(order)
	if err != nil {
		logger.WithError(err).Warn("order rejected before execution")
		o.finishFailed(logger, order, err, started)
		return domain.TransactionResult{}, err
	}

	now := o.clock()
	b := saga.NewBuilder(o.sagaOptions(normalized, logger)...)

	authorize := NewAuthorizePayment(o.gateway, o.paymentRequest(normalized))
	b.Add(authorize)
	lines := assemble(b, normalized, now)
	b.Add(NewCapturePayment(o.gateway, saga.Input[string](b, authorize)))

	tx, err := b.Build()
	if err != nil {
		logger.WithError(err).Error("failed to build transaction pipeline")
		o.finishFailed(logger, order, err, started)
		return domain.TransactionResult{}, err
	}

	if err := tx.Execute(ctx); err != nil {
		logger.WithError(err).WithField("failed_step", tx.FailedStep()).Error("transaction failed")
		o.finishFailed(logger, order, err, started)
		return domain.TransactionResult{}, err
	}

	items, err := lines()
	if err != nil {
		logger.WithError(err).Error("failed to collect transaction result")
		o.finishFailed(logger, order, err, started)
		return domain.TransactionResult{}, err
	}

	result := domain.NewTransactionResult(items, o.places, o.clock())
	logger.WithField("total", result.Total().String()).Info("transaction completed")
	o.finishCompleted(logger, normalized, result, started)
	return result, nil
}

func (o *Operations) sagaOptions(order domain.CommerceOrder, logger *log.Entry) []saga.Option {
	options := []saga.Option{
		saga.WithName(string(order.Operation) + ":" + order.OrderID),
		saga.WithLogger(logger),
	}
	if o.journal != nil {
		options = append(options, saga.WithObserver(newJournalObserver(o.journal, order.OrderID, o.clock, logger)))
	}
	if o.metrics != nil {
		options = append(options, saga.WithObserver(o.metrics.Steps(string(order.Operation))))
	}
	return options
}

func (o *Operations) paymentRequest(order domain.CommerceOrder) domain.PaymentRequest {
	amount := decimal.Zero
	for _, item := range order.LineItems {
		amount = amount.Add(domain.LineTotal(item.Quantity, item.SeatPrice, o.places))
	}
	return domain.PaymentRequest{
		CustomerID:  order.CustomerID,
		OrderID:     order.OrderID,
		Description: fmt.Sprintf("%s order %s", order.Operation, order.OrderID),
		Amount:      amount,
		Currency:    o.currency,
	}
}

func (o *Operations) assemblePurchase(b *saga.Builder, order domain.CommerceOrder, now time.Time) resultLines {
	partnerOrder := domain.PartnerOrder{CustomerID: order.CustomerID}
	associations := make([]OfferAssociation, 0, len(order.LineItems))
	for i, item := range order.LineItems {
		partnerOrder.Lines = append(partnerOrder.Lines, domain.PartnerOrderLine{
			LineNumber:    i,
			RemoteOfferID: item.RemoteOfferID,
			FriendlyName:  item.FriendlyName,
			Quantity:      item.Quantity,
		})
		associations = append(associations, OfferAssociation{
			LineNumber:     i,
			PartnerOfferID: item.OfferID,
			SeatPrice:      item.SeatPrice,
		})
	}

	place := NewPlaceOrder(o.api, partnerOrder)
	b.Add(place)
	persist := NewPersistNewlyPurchasedSubscriptions(
		o.subscriptions,
		o.purchases,
		order.CustomerID,
		saga.Input[domain.PlacedOrder](b, place),
		associations,
		now,
	)
	b.Add(persist)
	persisted := saga.Input[[]PersistedLine](b, persist)

	return func() ([]domain.TransactionResultLineItem, error) {
		lines, err := persisted.Result()
		if err != nil {
			return nil, err
		}
		items := make([]domain.TransactionResultLineItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, domain.TransactionResultLineItem{
				SubscriptionID: line.Subscription.SubscriptionID,
				OfferID:        line.Subscription.PartnerOfferID,
				Quantity:       line.Purchase.SeatsBought,
				UnitPrice:      line.Purchase.SeatPrice,
			})
		}
		return items, nil
	}
}

func (o *Operations) assembleAdditionalSeats(b *saga.Builder, order domain.CommerceOrder, now time.Time) resultLines {
	item := order.LineItems[0]

	b.Add(NewPurchaseExtraSeats(o.api, order.CustomerID, item.SubscriptionID, item.Quantity))
	b.Add(NewUpdatePersistedSubscription(o.subscriptions, order.CustomerID, item.SubscriptionID, func(sub *domain.CustomerSubscription) {
		sub.Quantity += item.Quantity
	}))
	b.Add(NewRecordPurchase(o.purchases, o.purchaseRecord(order, item, now)))

	return staticLines(item)
}

func (o *Operations) assembleRenewal(b *saga.Builder, order domain.CommerceOrder, now time.Time) resultLines {
	item := order.LineItems[0]

	b.Add(NewRenewSubscription(o.api, order.CustomerID, item.SubscriptionID))
	b.Add(NewUpdatePersistedSubscription(o.subscriptions, order.CustomerID, item.SubscriptionID, func(sub *domain.CustomerSubscription) {
		sub.ExpiryDate = sub.ExpiryDate.AddDate(1, 0, 0)
		sub.PartnerOfferID = item.OfferID
	}))
	b.Add(NewRecordPurchase(o.purchases, o.purchaseRecord(order, item, now)))

	return staticLines(item)
}

func (o *Operations) purchaseRecord(order domain.CommerceOrder, item domain.OrderLineItem, now time.Time) domain.CustomerPurchase {
	return domain.CustomerPurchase{
		ID:              o.ids(),
		CustomerID:      order.CustomerID,
		SubscriptionID:  item.SubscriptionID,
		Operation:       order.Operation,
		SeatsBought:     item.Quantity,
		SeatPrice:       item.SeatPrice,
		TransactionDate: now.UTC(),
	}
}

func staticLines(item domain.OrderLineItem) resultLines {
	return func() ([]domain.TransactionResultLineItem, error) {
		return []domain.TransactionResultLineItem{{
			SubscriptionID: item.SubscriptionID,
			OfferID:        item.OfferID,
			Quantity:       item.Quantity,
			UnitPrice:      item.SeatPrice,
		}}, nil
	}
}

func (o *Operations) finishCompleted(logger *log.Entry, order domain.CommerceOrder, result domain.TransactionResult, started time.Time) {
	if o.metrics != nil {
		o.metrics.RecordCompleted(string(order.Operation), time.Since(started))
	}
	o.emit(logger, EventTransactionCompleted, completedEvent(order, o.currency, o.places, result))
}

func (o *Operations) finishFailed(logger *log.Entry, order domain.CommerceOrder, err error, started time.Time) {
	event := failedEvent(order, o.currency, err, o.clock())
	if o.metrics != nil {
		o.metrics.RecordFailed(string(order.Operation), event.FailureKind, time.Since(started))
	}
	o.emit(logger, EventTransactionFailed, event)
}

// emit кладёт событие в outbox. Ошибка не меняет исход операции.
func (o *Operations) emit(logger *log.Entry, eventType string, event TransactionEvent) {
	if o.outbox == nil {
		return
	}
	msg, err := event.message(eventType)
	if err != nil {
		logger.WithError(err).Warn("failed to encode transaction event")
		return
	}
	if _, err := o.outbox.Enqueue(msg); err != nil {
		logger.WithError(err).WithField("event_type", eventType).Warn("failed to enqueue transaction event")
		return
	}
	if o.metrics != nil {
		o.metrics.RecordOutboxEvent()
	}
}
