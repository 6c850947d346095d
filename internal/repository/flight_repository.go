// Package repository contains data access logic for the flight domain.
// This file reads flights; flights are maintained by the catalog service
// and are read-only here.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// FlightRepo reads flights.
type FlightRepo struct {
    db *sql.DB
}

// NewFlightRepo constructs a FlightRepo with the given DB handle.
func NewFlightRepo(db *sql.DB) *FlightRepo {
    return &FlightRepo{db: db}
}

const flightColumns = `id, flight_number, origin, destination, departs_at, arrives_at, status, seat_capacity, created_at, updated_at`

func scanFlight(row interface{ Scan(...any) error }) (*model.Flight, error) {
    var f model.Flight
    var status string
    err := row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartsAt, &f.ArrivesAt,
        &status, &f.SeatCapacity, &f.CreatedAt, &f.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrFlightNotFound
        }
        return nil, Classify(err)
    }
    f.Status = model.FlightStatus(status)
    f.DepartsAt = f.DepartsAt.UTC()
    f.ArrivesAt = f.ArrivesAt.UTC()
    return &f, nil
}

// GetByID retrieves a flight outside of any transaction.  It returns
// ErrFlightNotFound if there is no matching row.
func (r *FlightRepo) GetByID(ctx context.Context, id uint64) (*model.Flight, error) {
    const q = `SELECT ` + flightColumns + ` FROM flights WHERE id = ? AND is_deleted = 0`
    return scanFlight(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDTx retrieves a flight inside the caller's transaction.  The row
// is read, not locked: fare rows are the only contended resource.
func (r *FlightRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Flight, error) {
    const q = `SELECT ` + flightColumns + ` FROM flights WHERE id = ? AND is_deleted = 0`
    return scanFlight(tx.QueryRowContext(ctx, q, id))
}
