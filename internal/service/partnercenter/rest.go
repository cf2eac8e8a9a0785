package partnercenter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/transport/rest"
)

type orderLineJSON struct {
	LineNumber     int    `json:"line_number"`
	OfferID        string `json:"offer_id"`
	FriendlyName   string `json:"friendly_name,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Quantity       int    `json:"quantity"`
}

type orderJSON struct {
	ID        string          `json:"id,omitempty"`
	LineItems []orderLineJSON `json:"line_items"`
}

type subscriptionJSON struct {
	ID       string `json:"id"`
	OfferID  string `json:"offer_id"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

// RESTClient обращается к удалённому commerce API по HTTP/JSON.
type RESTClient struct {
	client *rest.Client
}

// NewRESTClient создаёт клиента commerce API.
func NewRESTClient(cfg rest.Config, logger *log.Entry) (*RESTClient, error) {
	if logger == nil {
		logger = log.New().WithField("component", "commerce-api")
	}
	client, err := rest.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &RESTClient{client: client}, nil
}

func (c *RESTClient) PlaceOrder(ctx context.Context, order domain.PartnerOrder) (domain.PlacedOrder, error) {
	req := orderJSON{LineItems: make([]orderLineJSON, 0, len(order.Lines))}
	for _, line := range order.Lines {
		req.LineItems = append(req.LineItems, orderLineJSON{
			LineNumber:   line.LineNumber,
			OfferID:      line.RemoteOfferID,
			FriendlyName: line.FriendlyName,
			Quantity:     line.Quantity,
		})
	}

	var resp orderJSON
	if err := c.client.DoJSON(ctx, http.MethodPost, customerPath(order.CustomerID)+"/orders", req, &resp); err != nil {
		return domain.PlacedOrder{}, wrap(err)
	}

	placed := domain.PlacedOrder{ID: resp.ID, CustomerID: order.CustomerID}
	for _, line := range resp.LineItems {
		placed.Lines = append(placed.Lines, domain.PlacedOrderLine{
			LineNumber:     line.LineNumber,
			RemoteOfferID:  line.OfferID,
			SubscriptionID: line.SubscriptionID,
			Quantity:       line.Quantity,
		})
	}
	return placed, nil
}

// AddSeats читает текущее количество мест и записывает увеличенное.
func (c *RESTClient) AddSeats(ctx context.Context, customerID, subscriptionID string, quantity int) error {
	current, err := c.GetSubscription(ctx, customerID, subscriptionID)
	if err != nil {
		return err
	}
	patch := map[string]int{"quantity": current.Quantity + quantity}
	if err := c.client.DoJSON(ctx, http.MethodPatch, subscriptionPath(customerID, subscriptionID), patch, nil); err != nil {
		return wrap(err)
	}
	return nil
}

func (c *RESTClient) RenewSubscription(ctx context.Context, customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	var resp subscriptionJSON
	if err := c.client.DoJSON(ctx, http.MethodPost, subscriptionPath(customerID, subscriptionID)+"/renew", nil, &resp); err != nil {
		return domain.RemoteSubscription{}, wrap(err)
	}
	return resp.toDomain(), nil
}

func (c *RESTClient) GetSubscription(ctx context.Context, customerID, subscriptionID string) (domain.RemoteSubscription, error) {
	var resp subscriptionJSON
	if err := c.client.DoJSON(ctx, http.MethodGet, subscriptionPath(customerID, subscriptionID), nil, &resp); err != nil {
		return domain.RemoteSubscription{}, wrap(err)
	}
	return resp.toDomain(), nil
}

// Close освобождает соединения клиента.
func (c *RESTClient) Close() {
	c.client.Close()
}

func (s subscriptionJSON) toDomain() domain.RemoteSubscription {
	return domain.RemoteSubscription{
		ID:            s.ID,
		RemoteOfferID: s.OfferID,
		Quantity:      s.Quantity,
		Status:        s.Status,
	}
}

func customerPath(customerID string) string {
	return "/customers/" + url.PathEscape(customerID)
}

func subscriptionPath(customerID, subscriptionID string) string {
	return customerPath(customerID) + "/subscriptions/" + url.PathEscape(subscriptionID)
}

func wrap(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrCommerceAPI, err)
}

var _ domain.CommerceAPI = (*RESTClient)(nil)
