package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/partnercenter"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/transport/rest"
)

// newPaymentGateway создаёт платёжный шлюз выбранного типа. closeFn не бывает nil.
func newPaymentGateway(cfg Config, logger *log.Entry) (domain.PaymentGateway, func(), error) {
	logger = logger.WithField("payment_gateway", cfg.PaymentGateway)

	switch cfg.PaymentGateway {
	case PaymentGatewayMock, "":
		logger.Warn("using mock payment gateway: every payment is approved")
		return payment.NewMockGateway(), func() {}, nil
	case PaymentGatewayPreApproved:
		customers := splitList(cfg.PreApprovedCustomers)
		logger.WithField("customers", len(customers)).Info("using pre-approved payment gateway")
		return payment.NewPreApprovedGateway(customers, logger), func() {}, nil
	case PaymentGatewayREST:
		restCfg := rest.DefaultConfig(cfg.PaymentURL)
		restCfg.Token = cfg.PaymentToken
		gateway, err := payment.NewRESTGateway(restCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create payment gateway: %w", err)
		}
		logger.WithField("base_url", cfg.PaymentURL).Info("using REST payment gateway")
		return gateway, gateway.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnsupportedPaymentGateway, cfg.PaymentGateway)
	}
}

// newCommerceAPI создаёт клиента commerce API выбранного типа. closeFn не бывает nil.
func newCommerceAPI(cfg Config, logger *log.Entry) (domain.CommerceAPI, func(), error) {
	logger = logger.WithField("commerce_api", cfg.CommerceAPI)

	switch cfg.CommerceAPI {
	case CommerceAPIMemory, "":
		logger.Warn("using in-memory commerce api")
		return partnercenter.NewMemoryClient(), func() {}, nil
	case CommerceAPIREST:
		restCfg := rest.DefaultConfig(cfg.CommerceAPIURL)
		restCfg.Token = cfg.CommerceAPIToken
		client, err := partnercenter.NewRESTClient(restCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create commerce api client: %w", err)
		}
		logger.WithField("base_url", cfg.CommerceAPIURL).Info("using REST commerce api")
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnsupportedCommerceAPI, cfg.CommerceAPI)
	}
}
