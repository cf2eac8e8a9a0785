package grpcsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	defaultCurrency       = "USD"
	defaultDecimalPlaces  = 2
)

// Commerce: коммерческие операции, которые сервис выставляет наружу.
type Commerce interface {
	Purchase(ctx context.Context, order domain.CommerceOrder) (domain.TransactionResult, error)
	PurchaseAdditionalSeats(ctx context.Context, order domain.CommerceOrder) (domain.TransactionResult, error)
	RenewSubscription(ctx context.Context, order domain.CommerceOrder) (domain.TransactionResult, error)
	ListPurchases(customerID string) ([]domain.CustomerPurchase, error)
}

// ServiceOptions задаёт параметры CommerceService.
type ServiceOptions struct {
	IdempotencyTTL time.Duration
	Currency       string
	DecimalPlaces  int32
	IDs            func() string
	Now            func() time.Time
}

// ServiceOption настраивает CommerceService.
type ServiceOption func(*ServiceOptions)

// WithIdempotencyTTL задаёт срок хранения ответа по idempotency-key.
func WithIdempotencyTTL(ttl time.Duration) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.IdempotencyTTL = ttl
	}
}

// WithCurrency задаёт валюту ответа и точность форматирования сумм.
func WithCurrency(currency string, decimalPlaces int32) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.Currency = currency
		opts.DecimalPlaces = decimalPlaces
	}
}

// WithIDGenerator подменяет генератор order_id для запросов без него.
func WithIDGenerator(ids func() string) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.IDs = ids
	}
}

// WithClock подменяет источник времени для TTL idempotency-записей.
func WithClock(now func() time.Time) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.Now = now
	}
}

// CommerceService реализует gRPC API витрины поверх коммерческих операций.
type CommerceService struct {
	commerce Commerce
	idemRepo domain.IdempotencyRepository
	logger   *log.Entry

	idempotencyTTL time.Duration
	currency       string
	places         int32
	ids            func() string
	now            func() time.Time
}

var _ CommerceServer = (*CommerceService)(nil)

// NewCommerceService конструирует сервис. idemRepo может быть nil: тогда повторы не дедуплицируются.
func NewCommerceService(
	commerce Commerce,
	idemRepo domain.IdempotencyRepository,
	logger *log.Entry,
	options ...ServiceOption,
) *CommerceService {
	opts := ServiceOptions{
		IdempotencyTTL: defaultIdempotencyTTL,
		Currency:       defaultCurrency,
		DecimalPlaces:  defaultDecimalPlaces,
	}
	for _, option := range options {
		option(&opts)
	}

	if logger == nil {
		logger = log.New().WithField("component", "commerce-service")
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	if opts.DecimalPlaces < 0 {
		opts.DecimalPlaces = defaultDecimalPlaces
	}
	if opts.IDs == nil {
		opts.IDs = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &CommerceService{
		commerce:       commerce,
		idemRepo:       idemRepo,
		logger:         logger,
		idempotencyTTL: opts.IdempotencyTTL,
		currency:       opts.Currency,
		places:         opts.DecimalPlaces,
		ids:            opts.IDs,
		now:            opts.Now,
	}
}

// Purchase оформляет новые подписки.
func (s *CommerceService) Purchase(ctx context.Context, req *OrderRequest) (*TransactionResponse, error) {
	return s.transact(ctx, MethodPurchase, req, domain.OperationNewPurchase, s.commerce.Purchase)
}

// PurchaseAdditionalSeats докупает места в существующую подписку.
func (s *CommerceService) PurchaseAdditionalSeats(ctx context.Context, req *OrderRequest) (*TransactionResponse, error) {
	return s.transact(ctx, MethodPurchaseAdditionalSeats, req, domain.OperationAdditionalSeats, s.commerce.PurchaseAdditionalSeats)
}

// RenewSubscription продлевает подписку на год.
func (s *CommerceService) RenewSubscription(ctx context.Context, req *OrderRequest) (*TransactionResponse, error) {
	return s.transact(ctx, MethodRenewSubscription, req, domain.OperationRenewal, s.commerce.RenewSubscription)
}

// ListPurchases возвращает историю покупок клиента.
func (s *CommerceService) ListPurchases(_ context.Context, req *ListPurchasesRequest) (*ListPurchasesResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	purchases, err := s.commerce.ListPurchases(req.CustomerID)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &ListPurchasesResponse{Purchases: make([]Purchase, 0, len(purchases))}
	for _, p := range purchases {
		resp.Purchases = append(resp.Purchases, Purchase{
			ID:              p.ID,
			SubscriptionID:  p.SubscriptionID,
			Operation:       string(p.Operation),
			SeatsBought:     p.SeatsBought,
			SeatPrice:       p.SeatPrice.StringFixed(s.places),
			TransactionDate: p.TransactionDate.UTC(),
		})
	}
	return resp, nil
}

type operationFunc func(context.Context, domain.CommerceOrder) (domain.TransactionResult, error)

func (s *CommerceService) transact(
	ctx context.Context,
	method string,
	req *OrderRequest,
	operation domain.OperationType,
	run operationFunc,
) (*TransactionResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	return s.idempotent(ctx, method, req, func(ctx context.Context) (*TransactionResponse, error) {
		order := s.toOrder(req, operation)
		logger := s.logger.WithFields(log.Fields{
			"order_id":    order.OrderID,
			"customer_id": order.CustomerID,
			"operation":   operation,
		})

		result, err := run(ctx, order)
		if err != nil {
			logger.WithError(err).WithField("failure_kind", domain.KindOf(err)).Warn("commerce operation failed")
			return nil, toStatus(err)
		}

		logger.Info("commerce operation completed")
		return s.toResponse(order, result), nil
	})
}

func (s *CommerceService) toOrder(req *OrderRequest, operation domain.OperationType) domain.CommerceOrder {
	orderID := req.OrderID
	if orderID == "" {
		orderID = s.ids()
	}

	items := make([]domain.OrderLineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, domain.OrderLineItem{
			OfferID:        item.OfferID,
			SubscriptionID: item.SubscriptionID,
			Quantity:       item.Quantity,
		})
	}

	return domain.CommerceOrder{
		OrderID:    orderID,
		CustomerID: req.CustomerID,
		Operation:  operation,
		LineItems:  items,
	}
}

func (s *CommerceService) toResponse(order domain.CommerceOrder, result domain.TransactionResult) *TransactionResponse {
	lines := result.LineItems()
	resp := &TransactionResponse{
		OrderID:     order.OrderID,
		Operation:   string(order.Operation),
		Currency:    s.currency,
		Total:       result.Total().StringFixed(s.places),
		LineItems:   make([]ResultLine, 0, len(lines)),
		CompletedAt: result.CompletedAt(),
	}
	for _, line := range lines {
		resp.LineItems = append(resp.LineItems, ResultLine{
			SubscriptionID: line.SubscriptionID,
			OfferID:        line.OfferID,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice.StringFixed(s.places),
			Total:          line.Total.StringFixed(s.places),
		})
	}
	return resp
}
