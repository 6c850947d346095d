package service

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/flight-seat-reservation/internal/queue"
)

// AMQPPublisher publishes reservation events to the "reservation.events"
// queue.  The broker connection is dialled on first use and redialled when
// it drops; a channel is opened per message.  Messages are persistent.
type AMQPPublisher struct {
    url    string
    logger *log.Logger

    mu   sync.Mutex
    conn *amqp.Connection
}

// NewAMQPPublisher returns a publisher for the broker at url.  No
// connection is made until the first Publish.
func NewAMQPPublisher(url string, logger *log.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: url, logger: logger}
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn, nil
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    p.conn = conn
    return conn, nil
}

// Publish sends event to the queue.  Any error is logged and returned so
// the caller can choose to ignore it.
func (p *AMQPPublisher) Publish(ctx context.Context, event q.ReservationEvent) error {
    conn, err := p.connection()
    if err != nil {
        p.logger.Warnj(log.JSON{"component": "publisher", "msg": "dial failed", "error": err.Error()})
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        p.logger.Warnj(log.JSON{"component": "publisher", "msg": "channel open failed", "error": err.Error()})
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.ReservationQueue, // name
        true,               // durable
        false,              // autoDelete
        false,              // exclusive
        false,              // noWait
        nil,                // args
    ); err != nil {
        p.logger.Warnj(log.JSON{"component": "publisher", "msg": "queue declare failed", "error": err.Error()})
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    event.EventID,
        Type:         string(event.Type),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",                 // default exchange
        q.ReservationQueue, // routing key = queue name
        false,              // mandatory
        false,              // immediate
        pub,
    ); err != nil {
        p.logger.Warnj(log.JSON{"component": "publisher", "msg": "publish failed", "event_id": event.EventID, "error": err.Error()})
        return err
    }
    return nil
}

// Close closes the broker connection, if any.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return nil
    }
    return p.conn.Close()
}
