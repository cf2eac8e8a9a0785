package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/partnercenter"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
)

func TestNewPaymentGateway(t *testing.T) {
	t.Parallel()
	logger := log.WithField("test", "payment-gateway")

	cfg := DefaultConfig()
	gateway, closeFn, err := newPaymentGateway(cfg, logger)
	require.NoError(t, err)
	require.IsType(t, &payment.MockGateway{}, gateway)
	closeFn()

	cfg.PaymentGateway = PaymentGatewayPreApproved
	cfg.PreApprovedCustomers = "vip-1,vip-2"
	gateway, closeFn, err = newPaymentGateway(cfg, logger)
	require.NoError(t, err)
	defer closeFn()

	_, err = gateway.Authorize(context.Background(), domain.PaymentRequest{CustomerID: "vip-2", Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = gateway.Authorize(context.Background(), domain.PaymentRequest{CustomerID: "stranger", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)

	cfg.PaymentGateway = PaymentGatewayREST
	cfg.PaymentURL = "http://payments.local"
	gateway, closeFn, err = newPaymentGateway(cfg, logger)
	require.NoError(t, err)
	require.IsType(t, &payment.RESTGateway{}, gateway)
	closeFn()

	cfg.PaymentGateway = "stripe"
	_, _, err = newPaymentGateway(cfg, logger)
	require.True(t, errors.Is(err, errUnsupportedPaymentGateway))
}

func TestNewCommerceAPI(t *testing.T) {
	t.Parallel()
	logger := log.WithField("test", "commerce-api")

	cfg := DefaultConfig()
	api, closeFn, err := newCommerceAPI(cfg, logger)
	require.NoError(t, err)
	require.IsType(t, &partnercenter.MemoryClient{}, api)
	closeFn()

	cfg.CommerceAPI = CommerceAPIREST
	cfg.CommerceAPIURL = "https://partner.local/v1"
	api, closeFn, err = newCommerceAPI(cfg, logger)
	require.NoError(t, err)
	require.IsType(t, &partnercenter.RESTClient{}, api)
	closeFn()

	cfg.CommerceAPI = "soap"
	_, _, err = newCommerceAPI(cfg, logger)
	require.True(t, errors.Is(err, errUnsupportedCommerceAPI))
}
