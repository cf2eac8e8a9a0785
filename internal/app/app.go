package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/commerce"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run поднимает зависимости, gRPC API и HTTP probes и работает до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer deps.close(logger)

	if cfg.CatalogFile != "" {
		if _, err := loadCatalog(cfg.CatalogFile, deps.offers, logger.WithField("layer", "catalog")); err != nil {
			return err
		}
	}

	gateway, closeGateway, err := newPaymentGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeGateway()

	commerceAPI, closeCommerceAPI, err := newCommerceAPI(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCommerceAPI()

	places := int32(cfg.DecimalPlaces) //nolint:gosec // validated range 0..8.
	ops, err := commerce.NewOperations(commerce.Dependencies{
		Gateway:       gateway,
		CommerceAPI:   commerceAPI,
		Subscriptions: deps.subscriptions,
		Purchases:     deps.purchases,
		Normalizer:    commerce.NewOrderNormalizer(deps.offers, deps.subscriptions, nil),
		Outbox:        deps.outbox,
		Journal:       deps.journal,
	},
		commerce.WithLogger(logger.WithField("layer", "commerce")),
		commerce.WithMetrics(metrics.NewTransactionMetrics()),
		commerce.WithCurrency(cfg.Currency, places),
	)
	if err != nil {
		return err
	}

	commerceService := grpcsvc.NewCommerceService(ops, deps.idempotency, logger.WithField("layer", "grpc"),
		grpcsvc.WithIdempotencyTTL(cfg.IdempotencyTTL),
		grpcsvc.WithCurrency(cfg.Currency, places),
	)

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.RegisterCommerceServer(grpcServer, commerceService)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	publishers := initEventPublishers(cfg, logger)
	defer publishers.close()

	outboxCancel, outboxDone := startOutboxWorker(ctx, cfg, deps, publishers, logger)
	defer shutdownWorker(outboxCancel, outboxDone, logger)

	cleanupCancel, cleanupDone := startIdempotencyCleanup(ctx, cfg, deps, logger)
	defer shutdownWorker(cleanupCancel, cleanupDone, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.outbox, cfg.OutboxMaxPending))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(version.Fields()).WithField("addr", lis.Addr().String()).Info("grpc server listening")
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping grpc server")
		healthServer.Shutdown()
		stopGRPCServer(grpcServer, cfg.ShutdownTimeout, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	publishers eventPublishers,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	if publishers.publisher == nil {
		return nil, nil
	}

	worker := outbox.NewWorker(deps.outbox, publishers.publisher,
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(publishers.dlq),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)
	return runBackground(ctx, worker.Run)
}

func startIdempotencyCleanup(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	worker := idempotency.NewCleanupWorker(deps.idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	return runBackground(ctx, worker.Run)
}

func runBackground(ctx context.Context, run func(context.Context)) (context.CancelFunc, <-chan struct{}) {
	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(workerCtx)
	}()
	return cancel, done
}

// shutdownWorker останавливает фоновый воркер и ждёт его завершения.
func shutdownWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(httpShutdownTimeout):
		logger.Warn("background worker did not stop in time")
	}
}

func stopGRPCServer(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop timed out, forcing grpc server stop")
		server.Stop()
	}
}
