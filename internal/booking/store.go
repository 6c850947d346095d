// Package booking runs reservation writes as single units of work.  The
// coordinator never touches *sql.Tx directly; it is handed a Tx whose
// readers and writers are all bound to the same underlying transaction,
// so fare decrement, seat allocation and ledger insert commit or roll
// back together.
package booking

import (
    "context"
    "time"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// FlightReader loads flights for booking decisions.
type FlightReader interface {
    Flight(ctx context.Context, id uint64) (*model.Flight, error)
}

// FareInventory holds the per-fare seat counters.  TryReserveSeat must be
// a conditional decrement; it returns ErrInsufficientSeats instead of
// letting remaining seats go negative.
type FareInventory interface {
    Fare(ctx context.Context, id uint64) (*model.FarePrice, error)
    TryReserveSeat(ctx context.Context, id uint64) error
    ReleaseSeat(ctx context.Context, id uint64) error
}

// SeatLedger lists seats held by active reservations on a flight.
type SeatLedger interface {
    ActiveSeatNumbers(ctx context.Context, flightID uint64) ([]string, error)
}

// ReservationLedger is the transactional view of the reservations table.
type ReservationLedger interface {
    SeatLedger
    Insert(ctx context.Context, res *model.Reservation) error
    GetActiveForUserAndFlight(ctx context.Context, userID, flightID uint64) (*model.Reservation, error)
    GetByIDForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)
    UpdateStatus(ctx context.Context, id uint64, from, to model.ReservationStatus, at time.Time) error
}

// Tx exposes the stores participating in one transaction.
type Tx interface {
    Flights() FlightReader
    Inventory() FareInventory
    Ledger() ReservationLedger
}

// Store opens units of work.  WithinTx commits when fn returns nil and
// rolls back on every other exit path.
type Store interface {
    WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
