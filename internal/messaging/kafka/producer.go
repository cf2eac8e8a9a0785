package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultClientID = "storefront"

// ProducerOptions задаёт параметры Kafka producer.
type ProducerOptions struct {
	Logger   *log.Entry
	ClientID string
	Now      func() time.Time
}

// ProducerOption настраивает Producer.
type ProducerOption func(*ProducerOptions)

// WithLogger задаёт logger producer.
func WithLogger(logger *log.Entry) ProducerOption {
	return func(opts *ProducerOptions) {
		opts.Logger = logger
	}
}

// WithClientID задаёт client.id, под которым producer подключается к брокерам.
func WithClientID(clientID string) ProducerOption {
	return func(opts *ProducerOptions) {
		opts.ClientID = clientID
	}
}

// WithClock подменяет источник времени для timestamp сообщений.
func WithClock(now func() time.Time) ProducerOption {
	return func(opts *ProducerOptions) {
		opts.Now = now
	}
}

// Producer публикует события транзакций в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
	now      func() time.Time
}

// NewProducer создаёт идемпотентный sync producer.
func NewProducer(brokers []string, options ...ProducerOption) (*Producer, error) {
	opts := producerOptions(options)

	config := sarama.NewConfig()
	config.ClientID = opts.ClientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newProducer(producer, opts), nil
}

// NewProducerFromSync оборачивает готовый sarama.SyncProducer.
func NewProducerFromSync(producer sarama.SyncProducer, options ...ProducerOption) *Producer {
	return newProducer(producer, producerOptions(options))
}

func producerOptions(options []ProducerOption) ProducerOptions {
	opts := ProducerOptions{ClientID: defaultClientID}
	for _, option := range options {
		option(&opts)
	}
	if opts.ClientID == "" {
		opts.ClientID = defaultClientID
	}
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "kafka-producer")
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return opts
}

func newProducer(producer sarama.SyncProducer, opts ProducerOptions) *Producer {
	return &Producer{
		producer: producer,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Send отправляет готовое тело сообщения с ключом партиционирования и заголовками.
func (p *Producer) Send(topic, key string, value []byte, headers map[string]string) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: p.now(),
	}
	for name, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(name), Value: []byte(v)})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
