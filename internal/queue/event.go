// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "fmt"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// ReservationQueue is the durable queue carrying reservation lifecycle
// events.
const ReservationQueue = "reservation.events"

// EventType names a reservation lifecycle change.
type EventType string

const (
    EventCreated   EventType = "reservation.created"
    EventCancelled EventType = "reservation.cancelled"
    EventConfirmed EventType = "reservation.confirmed"
    EventCompleted EventType = "reservation.completed"
)

// ReservationEvent is published after a reservation write commits.  It
// carries enough information for downstream consumers to audit or notify
// without querying the primary database.  EventID is unique per event and
// doubles as the AMQP message id so consumers can drop redeliveries.
type ReservationEvent struct {
    EventID         string    `json:"event_id"`
    Type            EventType `json:"type"`
    ReservationID   uint64    `json:"reservation_id"`
    UserID          uint64    `json:"user_id"`
    FlightID        uint64    `json:"flight_id"`
    FarePriceID     uint64    `json:"fare_price_id"`
    SeatNumber      string    `json:"seat_number"`
    FareClass       string    `json:"fare_class"`
    TotalPriceCents int64     `json:"total_price_cents"`
    Currency        string    `json:"currency"`
    Status          string    `json:"status"`
    OccurredAt      string    `json:"occurred_at"`
}

// NewReservationEvent builds an event for res with a fresh id.
func NewReservationEvent(typ EventType, res *model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:         uuid.NewString(),
        Type:            typ,
        ReservationID:   res.ID,
        UserID:          res.UserID,
        FlightID:        res.FlightID,
        FarePriceID:     res.FarePriceID,
        SeatNumber:      res.SeatNumber,
        FareClass:       string(res.FareClass),
        TotalPriceCents: res.TotalPriceCents,
        Currency:        res.Currency,
        Status:          string(res.Status),
        OccurredAt:      at.UTC().Format(time.RFC3339),
    }
}

// Validate rejects events that cannot be attributed to a reservation.
func (e ReservationEvent) Validate() error {
    if _, err := uuid.Parse(e.EventID); err != nil {
        return fmt.Errorf("event_id: %w", err)
    }
    switch e.Type {
    case EventCreated, EventCancelled, EventConfirmed, EventCompleted:
    default:
        return fmt.Errorf("unknown event type %q", e.Type)
    }
    if e.ReservationID == 0 {
        return fmt.Errorf("missing reservation_id")
    }
    return nil
}

// AuditLine renders the event as a single log line.
func (e ReservationEvent) AuditLine() string {
    return fmt.Sprintf("[%s] %s | event_id=%s | reservation_id=%d | user_id=%d | flight_id=%d | fare=%s | seat=%s | total=%d %s | status=%s\n",
        e.OccurredAt, e.Type, e.EventID, e.ReservationID, e.UserID, e.FlightID, e.FareClass, e.SeatNumber,
        e.TotalPriceCents, e.Currency, e.Status)
}
