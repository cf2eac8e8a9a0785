package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type authorizationState int

const (
	authorizationHeld authorizationState = iota
	authorizationCaptured
	authorizationVoided
)

// PreApprovedGateway пропускает платежи клиентов с предварительно одобренным
// счётом без обращения к провайдеру. Для остальных клиентов оплата отклоняется.
type PreApprovedGateway struct {
	mu        sync.Mutex
	customers map[string]struct{}
	codes     map[string]authorizationState
	logger    *log.Entry
}

// NewPreApprovedGateway создаёт шлюз с фиксированным списком одобренных клиентов.
func NewPreApprovedGateway(customerIDs []string, logger *log.Entry) *PreApprovedGateway {
	if logger == nil {
		logger = log.New().WithField("component", "preapproved-gateway")
	}
	customers := make(map[string]struct{}, len(customerIDs))
	for _, id := range customerIDs {
		customers[id] = struct{}{}
	}
	return &PreApprovedGateway{
		customers: customers,
		codes:     make(map[string]authorizationState),
		logger:    logger,
	}
}

func (g *PreApprovedGateway) Authorize(ctx context.Context, req domain.PaymentRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.customers[req.CustomerID]; !ok {
		return "", fmt.Errorf("customer %s is not pre-approved: %w", req.CustomerID, domain.ErrPaymentDeclined)
	}
	code := "preapproved-" + uuid.NewString()
	g.codes[code] = authorizationHeld
	g.logger.WithFields(log.Fields{
		"customer_id": req.CustomerID,
		"order_id":    req.OrderID,
		"amount":      req.Amount.String(),
	}).Debug("pre-approved payment authorized")
	return code, nil
}

func (g *PreApprovedGateway) Capture(ctx context.Context, authorizationCode string) error {
	return g.transition(authorizationCode, authorizationCaptured)
}

// Void снимает резерв; повторный Void той же авторизации не считается ошибкой.
func (g *PreApprovedGateway) Void(ctx context.Context, authorizationCode string) error {
	return g.transition(authorizationCode, authorizationVoided)
}

func (g *PreApprovedGateway) transition(code string, next authorizationState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.codes[code]
	if !ok {
		return fmt.Errorf("%s: %w", code, domain.ErrAuthorizationUnknown)
	}
	if state == next {
		return nil
	}
	if state != authorizationHeld {
		return fmt.Errorf("authorization %s is already settled: %w", code, domain.ErrPaymentGateway)
	}
	g.codes[code] = next
	return nil
}

var _ domain.PaymentGateway = (*PreApprovedGateway)(nil)
