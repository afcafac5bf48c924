package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

const auditQueueName = "inventory.audit"

// StartAuditConsumer binds a durable queue to every inventory event and
// writes one structured line per event to audit.  It reconnects with
// backoff until ctx is cancelled, which is the only way it returns.
// Malformed messages are logged on log and rejected without requeue.
func StartAuditConsumer(ctx context.Context, url string, audit, log *zap.Logger) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("audit consumer: dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, audit, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("audit consumer: consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("audit consumer: set QoS", zap.Error(err))
    }
    if err := declareExchange(ch); err != nil {
        return err
    }
    if _, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.QueueBind(auditQueueName, "#", Exchange, false, nil); err != nil {
        return fmt.Errorf("queue bind: %w", err)
    }
    msgs, err := ch.Consume(auditQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(audit, d.RoutingKey, d.Body); err != nil {
                log.Warn("audit consumer: handle message", zap.String("routing_key", d.RoutingKey), zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// handleMessage decodes one event and writes it to the audit log.
func handleMessage(audit *zap.Logger, routingKey string, body []byte) error {
    switch routingKey {
    case RouteBookingCreated, RouteBookingConfirmed, RouteBookingReleased:
        var ev BookingEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        labels := make([]string, 0, len(ev.Seats))
        for _, s := range ev.Seats {
            labels = append(labels, s.Label)
        }
        audit.Info(routingKey,
            zap.Uint64("booking_id", ev.BookingID),
            zap.Uint64("user_id", ev.UserID),
            zap.Uint64("schedule_id", ev.ScheduleID),
            zap.Uint64("venue_id", ev.VenueID),
            zap.String("status", ev.Status),
            zap.Uint32("total_amount_cents", ev.TotalAmountCents),
            zap.Strings("seats", labels),
            zap.Time("occurred_at", ev.OccurredAt))
    case RouteInventoryInconsistent:
        var ev InconsistencyEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        audit.Warn(routingKey,
            zap.Uint64("schedule_id", ev.ScheduleID),
            zap.Uint64("venue_id", ev.VenueID),
            zap.Strings("anomalies", ev.Anomalies),
            zap.Uint32("total_before", ev.TotalBefore),
            zap.Uint32("total_after", ev.TotalAfter),
            zap.Uint32("booked", ev.Booked),
            zap.Uint32("held", ev.Held),
            zap.Time("occurred_at", ev.OccurredAt))
    default:
        return fmt.Errorf("unknown routing key %q", routingKey)
    }
    return audit.Sync()
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
