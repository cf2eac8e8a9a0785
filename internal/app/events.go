package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/natspub"
)

// eventPublishers хранит паблишеры outbox worker-а. При publisher == nil публикация отключена,
// события копятся в outbox до появления брокера.
type eventPublishers struct {
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	closeFn   func()
}

func (p eventPublishers) close() {
	if p.closeFn != nil {
		p.closeFn()
	}
}

// initEventPublishers подключает брокер событий. Недоступный брокер не мешает старту:
// транзакции продолжают работать, а outbox копит события.
func initEventPublishers(cfg Config, logger *log.Entry) eventPublishers {
	logger = logger.WithField("events_broker", cfg.EventsBroker)

	switch cfg.EventsBroker {
	case EventsBrokerKafka:
		producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
		if err != nil || producer == nil {
			return eventPublishers{}
		}
		return eventPublishers{
			publisher: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			dlq:       kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic),
			closeFn:   func() { closeKafka(producer, logger) },
		}
	case EventsBrokerNATS:
		publisher, err := natspub.Connect(cfg.NATSURL,
			natspub.WithLogger(logger.WithField("component", "nats-publisher")),
			natspub.WithSubjectPrefix(cfg.NATSSubjectPrefix),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to nats, continuing without events")
			return eventPublishers{}
		}
		logger.WithField("url", cfg.NATSURL).Info("nats publisher initialized")
		return eventPublishers{
			publisher: publisher,
			dlq:       publisher.WithSubject(natspub.SubjectDeadLetter),
			closeFn:   publisher.Close,
		}
	default:
		logger.Info("events broker is not configured, outbox events stay pending")
		return eventPublishers{}
	}
}

// initKafkaProducer создаёт producer для списка брокеров через запятую.
// Пустой список: nil, nil.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitList(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, kafka.WithLogger(logger.WithField("component", "kafka-producer")))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
