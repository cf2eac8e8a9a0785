package natspub

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging"
)

var testNow = time.Date(2026, 6, 14, 12, 0, 0, 0, time.UTC)

type fakeConn struct {
	published  []*nats.Msg
	publishErr error
	flushErr   error
	flushes    int
	closed     bool
}

func (c *fakeConn) PublishMsg(msg *nats.Msg) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeConn) FlushTimeout(time.Duration) error {
	c.flushes++
	return c.flushErr
}

func (c *fakeConn) Close() { c.closed = true }

func completed() domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "commerce_transaction",
		AggregateID:   "order-1",
		EventType:     "TransactionCompleted",
		Payload:       []byte(`{"total":"850.00"}`),
	}
}

func TestPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisher(conn, WithClock(func() time.Time { return testNow }))

	require.NoError(t, publisher.Publish(completed()))
	require.Len(t, conn.published, 1)
	require.Equal(t, 1, conn.flushes)

	msg := conn.published[0]
	require.Equal(t, "storefront.transaction.TransactionCompleted", msg.Subject)
	require.Equal(t, "outbox-1", msg.Header.Get(nats.MsgIdHdr))
	require.Equal(t, "order-1", msg.Header.Get(HeaderAggregateID))

	var envelope messaging.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	require.Equal(t, "order-1", envelope.AggregateID)
	require.True(t, envelope.PublishedAt.Equal(testNow))
}

func TestPublisher_FixedSubject(t *testing.T) {
	conn := &fakeConn{}
	publisher := NewPublisher(conn, WithFlushTimeout(0)).WithSubject(SubjectDeadLetter)

	require.NoError(t, publisher.Publish(completed()))
	require.Equal(t, SubjectDeadLetter, conn.published[0].Subject)
	require.Zero(t, conn.flushes)
}

func TestPublisher_SubjectWithoutEventType(t *testing.T) {
	publisher := NewPublisher(&fakeConn{}, WithSubjectPrefix("shop."))
	require.Equal(t, "shop.unknown", publisher.Subject(domain.OutboxMessage{ID: "x"}))
}

func TestPublisher_Errors(t *testing.T) {
	down := errors.New("connection closed")

	err := NewPublisher(&fakeConn{publishErr: down}).Publish(completed())
	require.ErrorIs(t, err, down)

	err = NewPublisher(&fakeConn{flushErr: nats.ErrTimeout}).Publish(completed())
	require.ErrorIs(t, err, nats.ErrTimeout)

	var nilPublisher *Publisher
	require.ErrorIs(t, nilPublisher.Publish(completed()), errPublisherNotInitialized)
}

func TestPublisher_Close(t *testing.T) {
	conn := &fakeConn{}
	NewPublisher(conn).Close()
	require.True(t, conn.closed)
}
