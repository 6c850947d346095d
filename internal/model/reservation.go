package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "PENDING"
    StatusConfirmed ReservationStatus = "CONFIRMED"
    StatusCancelled ReservationStatus = "CANCELLED"
    StatusCompleted ReservationStatus = "COMPLETED"
)

// transitions lists the legal moves out of each status.  Terminal
// statuses have no entry.
var transitions = map[ReservationStatus][]ReservationStatus{
    StatusPending:   {StatusConfirmed, StatusCancelled},
    StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
        return true
    }
    return false
}

// IsActive reports whether a reservation in this status still holds a seat.
func (s ReservationStatus) IsActive() bool {
    return s == StatusPending || s == StatusConfirmed
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
    return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
    for _, allowed := range transitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// Reservation records a user's seat on a flight at a specific fare.  It
// is the only entity holding foreign references (user, flight, fare);
// it is never physically deleted, only moved to a terminal status.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who owns the reservation.
//  FlightID        – flight being booked.
//  FarePriceID     – fare the seat was taken from.
//  SeatNumber      – seat identifier, unique among active reservations on the flight.
//  FareClass       – fare class copied from the fare at booking time.
//  TotalPriceCents – price charged, copied from the fare at booking time.
//  Currency        – ISO-4217 currency code.
//  Status          – lifecycle state.
//  CreatedAt       – creation timestamp.
//  CancelledAt     – cancellation timestamp (nil unless cancelled).
type Reservation struct {
    ID              uint64            `json:"id"`                // reservations.id
    UserID          uint64            `json:"user_id"`           // reservations.user_id
    FlightID        uint64            `json:"flight_id"`         // reservations.flight_id
    FarePriceID     uint64            `json:"fare_price_id"`     // reservations.fare_price_id
    SeatNumber      string            `json:"seat_number"`       // reservations.seat_number
    FareClass       FareClass         `json:"fare_class"`        // reservations.fare_class
    TotalPriceCents int64             `json:"total_price_cents"` // reservations.total_price_cents
    Currency        string            `json:"currency"`          // reservations.currency
    Status          ReservationStatus `json:"status"`            // reservations.status
    CreatedAt       time.Time         `json:"created_at"`        // reservations.created_at
    CancelledAt     *time.Time        `json:"cancelled_at"`      // reservations.cancelled_at (nullable)
}
