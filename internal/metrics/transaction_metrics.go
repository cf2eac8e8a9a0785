package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransactionMetrics содержит метрики коммерческих транзакций и их шагов.
type TransactionMetrics struct {
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec

	stepDuration    *prometheus.HistogramVec
	stepFailures    *prometheus.CounterVec
	stepRollbacks   *prometheus.CounterVec
	rollbackFailure *prometheus.CounterVec

	outboxEvents prometheus.Counter
	inFlight     prometheus.Gauge
}

// NewTransactionMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewTransactionMetrics() *TransactionMetrics {
	return NewTransactionMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewTransactionMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация возвращает уже зарегистрированные коллекторы.
func NewTransactionMetricsWithRegisterer(registerer prometheus.Registerer) *TransactionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &TransactionMetrics{
		started: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transactions_started_total",
			Help: "Total number of commerce transactions started",
		}, []string{"operation"}),
		completed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transactions_completed_total",
			Help: "Total number of commerce transactions completed successfully",
		}, []string{"operation"}),
		failed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transactions_failed_total",
			Help: "Total number of commerce transactions failed grouped by failure kind",
		}, []string{"operation", "kind"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_transaction_duration_seconds",
			Help:    "Duration of commerce transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_transaction_step_duration_seconds",
			Help:    "Duration of individual transaction steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation", "step"}),
		stepFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transaction_step_failures_total",
			Help: "Total number of failed transaction steps",
		}, []string{"operation", "step"}),
		stepRollbacks: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transaction_step_rollbacks_total",
			Help: "Total number of compensated transaction steps",
		}, []string{"operation", "step"}),
		rollbackFailure: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_transaction_rollback_failures_total",
			Help: "Total number of compensation attempts that failed",
		}, []string{"operation", "step"}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of transaction events enqueued to outbox",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_transactions_in_flight",
			Help: "Number of commerce transactions currently executing",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordStarted увеличивает счётчик запущенных транзакций.
func (m *TransactionMetrics) RecordStarted(operation string) {
	m.started.WithLabelValues(operation).Inc()
	m.inFlight.Inc()
}

// RecordCompleted фиксирует успешное завершение транзакции.
func (m *TransactionMetrics) RecordCompleted(operation string, duration time.Duration) {
	m.completed.WithLabelValues(operation).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	m.inFlight.Dec()
}

// RecordFailed фиксирует отказ транзакции с категорией kind.
func (m *TransactionMetrics) RecordFailed(operation, kind string, duration time.Duration) {
	m.failed.WithLabelValues(operation, kind).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	m.inFlight.Dec()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *TransactionMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// Steps возвращает наблюдателя шагов для транзакций операции.
func (m *TransactionMetrics) Steps(operation string) *StepObserver {
	return &StepObserver{metrics: m, operation: operation}
}

// StepObserver переводит уведомления о шагах транзакции в метрики.
type StepObserver struct {
	metrics   *TransactionMetrics
	operation string
}

func (o *StepObserver) StepExecuted(step string, index int, duration time.Duration) {
	o.metrics.stepDuration.WithLabelValues(o.operation, step).Observe(duration.Seconds())
}

func (o *StepObserver) StepFailed(step string, index int, err error) {
	o.metrics.stepFailures.WithLabelValues(o.operation, step).Inc()
}

func (o *StepObserver) StepRolledBack(step string, index int) {
	o.metrics.stepRollbacks.WithLabelValues(o.operation, step).Inc()
}

func (o *StepObserver) RollbackFailed(step string, index int, err error) {
	o.metrics.rollbackFailure.WithLabelValues(o.operation, step).Inc()
}
