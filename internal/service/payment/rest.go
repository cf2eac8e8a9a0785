package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/transport/rest"
)

type authorizeRequest struct {
	CustomerID  string `json:"customer_id"`
	OrderID     string `json:"order_id"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type authorizeResponse struct {
	AuthorizationCode string `json:"authorization_code"`
}

// RESTGateway обращается к платёжному провайдеру по HTTP/JSON.
// Повторы при сетевых ошибках и 5xx выполняет rest.Client.
type RESTGateway struct {
	client *rest.Client
	logger *log.Entry
}

// NewRESTGateway создаёт шлюз поверх настроенного клиента.
func NewRESTGateway(cfg rest.Config, logger *log.Entry) (*RESTGateway, error) {
	if logger == nil {
		logger = log.New().WithField("component", "payment-gateway")
	}
	client, err := rest.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &RESTGateway{client: client, logger: logger}, nil
}

func (g *RESTGateway) Authorize(ctx context.Context, req domain.PaymentRequest) (string, error) {
	body := authorizeRequest{
		CustomerID:  req.CustomerID,
		OrderID:     req.OrderID,
		Description: req.Description,
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
	}
	var resp authorizeResponse
	if err := g.client.DoJSON(ctx, http.MethodPost, "/authorizations", body, &resp); err != nil {
		return "", classify(err)
	}
	if resp.AuthorizationCode == "" {
		return "", fmt.Errorf("empty authorization code: %w", domain.ErrPaymentGateway)
	}
	return resp.AuthorizationCode, nil
}

func (g *RESTGateway) Capture(ctx context.Context, authorizationCode string) error {
	path := "/authorizations/" + url.PathEscape(authorizationCode) + "/capture"
	if err := g.client.DoJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return classify(err)
	}
	return nil
}

func (g *RESTGateway) Void(ctx context.Context, authorizationCode string) error {
	path := "/authorizations/" + url.PathEscape(authorizationCode) + "/void"
	if err := g.client.DoJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return classify(err)
	}
	return nil
}

// Close освобождает соединения клиента.
func (g *RESTGateway) Close() {
	g.client.Close()
}

func classify(err error) error {
	var statusErr *rest.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %v", domain.ErrPaymentDeclined, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", domain.ErrAuthorizationUnknown, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
}

var _ domain.PaymentGateway = (*RESTGateway)(nil)
