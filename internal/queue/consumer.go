package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"
)

const (
    auditFileName = "reservations.log"
    dedupeWindow  = 4096
)

// AuditConsumer listens to the reservation.events queue and appends one
// line per event to <LogDir>/reservations.log.  Events already seen in
// the recent window are acknowledged without being written again.
type AuditConsumer struct {
    url    string
    logDir string
    logger *log.Logger

    mu    sync.Mutex
    seen  map[string]struct{}
    order []string
}

// NewAuditConsumer returns a consumer for the broker at url writing into
// logDir.
func NewAuditConsumer(url, logDir string, logger *log.Logger) *AuditConsumer {
    return &AuditConsumer{
        url:    url,
        logDir: logDir,
        logger: logger,
        seen:   make(map[string]struct{}),
    }
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// until ctx is cancelled.  Lost connections are redialled with a capped
// exponential backoff; Run only returns once ctx is done.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.logger.Warnj(log.JSON{"component": "audit-consumer", "error": err.Error(), "retry_in": backoff.String()})
            if !wait(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.logger.Warnj(log.JSON{"component": "audit-consumer", "msg": "consume loop ended, reconnecting", "error": err.Error()})
        if !wait(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func wait(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger.Warnj(log.JSON{"component": "audit-consumer", "msg": "set QoS failed", "error": err.Error()})
    }

    if _, err := ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.ConsumeWithContext(ctx, ReservationQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.Handle(d.MessageId, d.Body); err != nil {
            c.logger.Errorj(log.JSON{"component": "audit-consumer", "message_id": d.MessageId, "error": err.Error()})
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// Handle decodes one message and appends it to the audit log.  messageID
// falls back to the event id carried in the body.
func (c *AuditConsumer) Handle(messageID string, body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := ev.Validate(); err != nil {
        return fmt.Errorf("invalid event: %w", err)
    }
    if messageID == "" {
        messageID = ev.EventID
    }
    if c.remember(messageID) {
        c.logger.Debugj(log.JSON{"component": "audit-consumer", "msg": "duplicate delivery dropped", "event_id": messageID})
        return nil
    }

    if err := os.MkdirAll(c.logDir, 0o755); err != nil {
        c.forget(messageID)
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.logDir, auditFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        c.forget(messageID)
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(ev.AuditLine()); err != nil {
        c.forget(messageID)
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// remember records id and reports whether it had been seen already.
func (c *AuditConsumer) remember(id string) bool {
    c.mu.Lock()
    defer c.mu.Unlock()
    if _, ok := c.seen[id]; ok {
        return true
    }
    c.seen[id] = struct{}{}
    c.order = append(c.order, id)
    if len(c.order) > dedupeWindow {
        delete(c.seen, c.order[0])
        c.order = c.order[1:]
    }
    return false
}

func (c *AuditConsumer) forget(id string) {
    c.mu.Lock()
    defer c.mu.Unlock()
    delete(c.seen, id)
}
