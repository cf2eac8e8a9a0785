package grpcsvc

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

const (
	ServiceName = "storefront.v1.CommerceService"

	MethodPurchase                = "/storefront.v1.CommerceService/Purchase"
	MethodPurchaseAdditionalSeats = "/storefront.v1.CommerceService/PurchaseAdditionalSeats"
	MethodRenewSubscription       = "/storefront.v1.CommerceService/RenewSubscription"
	MethodListPurchases           = "/storefront.v1.CommerceService/ListPurchases"
)

// LineItem: позиция входящего заказа. Для покупки задаётся OfferID,
// для докупки мест и продления: SubscriptionID.
type LineItem struct {
	OfferID        string `json:"offer_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Quantity       int    `json:"quantity,omitempty"`
}

// OrderRequest: запрос Purchase, PurchaseAdditionalSeats и RenewSubscription.
type OrderRequest struct {
	OrderID    string     `json:"order_id,omitempty"`
	CustomerID string     `json:"customer_id"`
	LineItems  []LineItem `json:"line_items"`
}

// ResultLine: итог по одной подписке. Суммы передаются десятичными строками с точностью валюты.
type ResultLine struct {
	SubscriptionID string `json:"subscription_id"`
	OfferID        string `json:"offer_id"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	Total          string `json:"total"`
}

// TransactionResponse: итог успешной коммерческой операции.
type TransactionResponse struct {
	OrderID     string       `json:"order_id"`
	Operation   string       `json:"operation"`
	Currency    string       `json:"currency"`
	Total       string       `json:"total"`
	LineItems   []ResultLine `json:"line_items"`
	CompletedAt time.Time    `json:"completed_at"`
}

type ListPurchasesRequest struct {
	CustomerID string `json:"customer_id"`
}

// Purchase: запись истории покупок клиента.
type Purchase struct {
	ID              string    `json:"id"`
	SubscriptionID  string    `json:"subscription_id"`
	Operation       string    `json:"operation"`
	SeatsBought     int       `json:"seats_bought"`
	SeatPrice       string    `json:"seat_price"`
	TransactionDate time.Time `json:"transaction_date"`
}

type ListPurchasesResponse struct {
	Purchases []Purchase `json:"purchases"`
}

// CommerceServer: серверная часть storefront.v1.CommerceService.
type CommerceServer interface {
	Purchase(ctx context.Context, req *OrderRequest) (*TransactionResponse, error)
	PurchaseAdditionalSeats(ctx context.Context, req *OrderRequest) (*TransactionResponse, error)
	RenewSubscription(ctx context.Context, req *OrderRequest) (*TransactionResponse, error)
	ListPurchases(ctx context.Context, req *ListPurchasesRequest) (*ListPurchasesResponse, error)
}

// CommerceServiceDesc описывает сервис для grpc.Server.RegisterService.
var CommerceServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommerceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Purchase",
			Handler: unaryHandler(MethodPurchase, func(s CommerceServer, ctx context.Context, req *OrderRequest) (any, error) {
				return s.Purchase(ctx, req)
			}),
		},
		{
			MethodName: "PurchaseAdditionalSeats",
			Handler: unaryHandler(MethodPurchaseAdditionalSeats, func(s CommerceServer, ctx context.Context, req *OrderRequest) (any, error) {
				return s.PurchaseAdditionalSeats(ctx, req)
			}),
		},
		{
			MethodName: "RenewSubscription",
			Handler: unaryHandler(MethodRenewSubscription, func(s CommerceServer, ctx context.Context, req *OrderRequest) (any, error) {
				return s.RenewSubscription(ctx, req)
			}),
		},
		{
			MethodName: "ListPurchases",
			Handler: unaryHandler(MethodListPurchases, func(s CommerceServer, ctx context.Context, req *ListPurchasesRequest) (any, error) {
				return s.ListPurchases(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/commerce_service.json",
}

// RegisterCommerceServer регистрирует реализацию сервиса на gRPC-сервере.
func RegisterCommerceServer(registrar grpc.ServiceRegistrar, srv CommerceServer) {
	registrar.RegisterService(&CommerceServiceDesc, srv)
}

func unaryHandler[Req any](
	fullMethod string,
	call func(CommerceServer, context.Context, *Req) (any, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CommerceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CommerceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client: клиент storefront.v1.CommerceService поверх JSON-кодека.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх соединения.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Purchase(ctx context.Context, req *OrderRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	if err := c.invoke(ctx, MethodPurchase, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PurchaseAdditionalSeats(ctx context.Context, req *OrderRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	if err := c.invoke(ctx, MethodPurchaseAdditionalSeats, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RenewSubscription(ctx context.Context, req *OrderRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	if err := c.invoke(ctx, MethodRenewSubscription, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPurchases(ctx context.Context, req *ListPurchasesRequest, opts ...grpc.CallOption) (*ListPurchasesResponse, error) {
	out := new(ListPurchasesResponse)
	if err := c.invoke(ctx, MethodListPurchases, req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.conn.Invoke(ctx, method, in, out, callOpts...)
}
