package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ErrBufferFull is returned by Publish when the outbox is full.  The event
// is dropped.
var ErrBufferFull = errors.New("event buffer full")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

const (
    defaultBufferSize  = 1024
    defaultDialTimeout = 2 * time.Second
    defaultSendTimeout = 5 * time.Second
    drainTimeout       = 10 * time.Second
)

type outbound struct {
    routingKey string
    messageID  string
    at         time.Time
    body       []byte
}

// Publisher sends JSON events to the inventory exchange.  Publish only
// queues the event; one background goroutine owns the broker connection,
// dials with a short timeout and reopens the connection after a drop.
// Messages are persistent.  When the broker is slow or down the outbox
// fills up and further events are dropped.
type Publisher struct {
    url         string
    log         *zap.Logger
    dialTimeout time.Duration
    sendTimeout time.Duration

    mu     sync.RWMutex
    closed bool
    events chan outbound
    done   chan struct{}

    conn *amqp.Connection // owned by run
}

// NewPublisher returns a publisher for the broker at url and starts its
// sender.  Nothing is dialed until the first event.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    p := newPublisher(url, log, defaultBufferSize, defaultDialTimeout, defaultSendTimeout)
    go p.run()
    return p
}

func newPublisher(url string, log *zap.Logger, buffer int, dialTimeout, sendTimeout time.Duration) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{
        url:         url,
        log:         log,
        dialTimeout: dialTimeout,
        sendTimeout: sendTimeout,
        events:      make(chan outbound, buffer),
        done:        make(chan struct{}),
    }
}

// Publish marshals payload and queues it under routingKey.  It never waits
// for the broker: a full outbox drops the event and returns ErrBufferFull.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    ev := outbound{routingKey: routingKey, messageID: uuid.NewString(), at: time.Now().UTC(), body: body}

    p.mu.RLock()
    defer p.mu.RUnlock()
    if p.closed {
        return ErrPublisherClosed
    }
    select {
    case p.events <- ev:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    default:
        return fmt.Errorf("%s: %w", routingKey, ErrBufferFull)
    }
}

func (p *Publisher) run() {
    defer close(p.done)
    for ev := range p.events {
        ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
        err := p.send(ctx, ev)
        cancel()
        if err != nil {
            p.log.Warn("event not delivered",
                zap.String("routing_key", ev.routingKey),
                zap.String("message_id", ev.messageID),
                zap.Error(err))
            continue
        }
        p.log.Debug("event published", zap.String("routing_key", ev.routingKey), zap.String("message_id", ev.messageID))
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

func (p *Publisher) send(ctx context.Context, ev outbound) error {
    ch, err := p.channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    if err := declareExchange(ch); err != nil {
        return err
    }
    msg := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.messageID,
        Timestamp:    ev.at,
        Type:         ev.routingKey,
        Body:         ev.body,
    }
    if err := ch.PublishWithContext(ctx, Exchange, ev.routingKey, false, false, msg); err != nil {
        return fmt.Errorf("publish %s: %w", ev.routingKey, err)
    }
    return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
        if err != nil {
            return nil, fmt.Errorf("dial broker: %w", err)
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        _ = p.conn.Close()
        p.conn = nil
        return nil, fmt.Errorf("open channel: %w", err)
    }
    return ch, nil
}

// Close stops accepting events, sends what is queued and closes the broker
// connection.  It gives up after a bounded wait.
func (p *Publisher) Close() error {
    p.mu.Lock()
    if !p.closed {
        p.closed = true
        close(p.events)
    }
    p.mu.Unlock()

    select {
    case <-p.done:
        return nil
    case <-time.After(drainTimeout):
        return errors.New("publisher: timed out sending queued events")
    }
}

func declareExchange(ch *amqp.Channel) error {
    if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    return nil
}
