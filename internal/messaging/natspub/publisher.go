package natspub

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging"
)

const (
	// DefaultSubjectPrefix: префикс subject; полный subject состоит из префикса и типа события.
	DefaultSubjectPrefix = "storefront.transaction."
	// SubjectDeadLetter получает события, которые не удалось опубликовать после всех попыток.
	SubjectDeadLetter = "storefront.transaction.dlq"

	HeaderAggregateType = "Storefront-Aggregate-Type"
	HeaderAggregateID   = "Storefront-Aggregate-Id"
)

var errPublisherNotInitialized = errors.New("nats outbox publisher is not initialized")

// Conn: часть *nats.Conn, нужная паблишеру.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Options задаёт параметры NATS-паблишера.
type Options struct {
	Logger        *log.Entry
	SubjectPrefix string
	// Subject фиксирует subject для всех событий (например, для DLQ); иначе subject строится из префикса.
	Subject      string
	FlushTimeout time.Duration
	Now          func() time.Time
}

// Option настраивает Publisher.
type Option func(*Options)

// WithLogger задаёт logger паблишера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithSubjectPrefix задаёт префикс subject.
func WithSubjectPrefix(prefix string) Option {
	return func(opts *Options) {
		opts.SubjectPrefix = prefix
	}
}

// WithSubject публикует все события в один subject.
func WithSubject(subject string) Option {
	return func(opts *Options) {
		opts.Subject = subject
	}
}

// WithFlushTimeout задаёт ожидание подтверждения от сервера после публикации.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.FlushTimeout = timeout
	}
}

// WithClock подменяет источник времени конверта.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Now = now
	}
}

// Publisher публикует outbox-сообщения в NATS. Заголовок Nats-Msg-Id равен ID сообщения outbox,
// поэтому JetStream-поток, подписанный на subject, отбрасывает повторы.
type Publisher struct {
	conn          Conn
	logger        *log.Entry
	subjectPrefix string
	subject       string
	flushTimeout  time.Duration
	now           func() time.Time
}

// Connect подключается к NATS по url и создаёт паблишер поверх соединения.
func Connect(url string, options ...Option) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("storefront"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewPublisher(conn, options...), nil
}

// NewPublisher создаёт паблишер поверх готового соединения.
func NewPublisher(conn Conn, options ...Option) *Publisher {
	opts := Options{
		SubjectPrefix: DefaultSubjectPrefix,
		FlushTimeout:  2 * time.Second,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.New().WithField("component", "nats-publisher")
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Publisher{
		conn:          conn,
		logger:        opts.Logger,
		subjectPrefix: opts.SubjectPrefix,
		subject:       opts.Subject,
		flushTimeout:  opts.FlushTimeout,
		now:           opts.Now,
	}
}

// WithSubject возвращает паблишер на том же соединении с фиксированным subject.
func (p *Publisher) WithSubject(subject string) *Publisher {
	clone := *p
	clone.subject = subject
	return &clone
}

// Subject возвращает subject для события.
func (p *Publisher) Subject(event domain.OutboxMessage) string {
	if p.subject != "" {
		return p.subject
	}
	eventType := event.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	return p.subjectPrefix + eventType
}

func (p *Publisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.conn == nil {
		return errPublisherNotInitialized
	}

	body, err := messaging.EncodeEnvelope(event, p.now())
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.Subject(event))
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set(HeaderAggregateType, event.AggregateType)
	msg.Header.Set(HeaderAggregateID, messaging.PartitionKey(event))

	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.WithError(err).WithField("subject", msg.Subject).Error("failed to publish message to nats")
		return fmt.Errorf("failed to publish message: %w", err)
	}
	if p.flushTimeout > 0 {
		if err := p.conn.FlushTimeout(p.flushTimeout); err != nil {
			return fmt.Errorf("failed to flush nats connection: %w", err)
		}
	}

	p.logger.WithFields(log.Fields{
		"subject":   msg.Subject,
		"outbox_id": event.ID,
	}).Debug("message sent to nats")
	return nil
}

// Close закрывает соединение.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

var (
	_ domain.OutboxPublisher = (*Publisher)(nil)
	_ Conn                   = (*nats.Conn)(nil)
)
