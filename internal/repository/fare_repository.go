package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// FareRepo is the fare inventory.  It owns the remaining_seats column of
// fare_prices and mutates it only through conditional single-statement
// updates, so two transactions racing for the last seat can never both
// succeed: the second one finds the guard false and affects zero rows.
// Every read applies is_deleted = 0 explicitly.
type FareRepo struct {
    db *sql.DB
}

// NewFareRepo returns a new FareRepo bound to the given database.
func NewFareRepo(db *sql.DB) *FareRepo { return &FareRepo{db: db} }

const fareColumns = `id, flight_id, fare_class, price_cents, currency, seats_allotted, remaining_seats, created_at, updated_at`

func scanFare(row interface{ Scan(...any) error }) (*model.FarePrice, error) {
    var f model.FarePrice
    var class string
    err := row.Scan(&f.ID, &f.FlightID, &class, &f.PriceCents, &f.Currency,
        &f.SeatsAllotted, &f.RemainingSeats, &f.CreatedAt, &f.UpdatedAt)
    if err != nil {
        return nil, err
    }
    f.FareClass = model.FareClass(class)
    return &f, nil
}

// GetByIDTx loads a fare inside the caller's transaction.  It returns
// ErrFareNotFound when the fare does not exist or is soft-deleted.
func (r *FareRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.FarePrice, error) {
    const q = `SELECT ` + fareColumns + ` FROM fare_prices WHERE id = ? AND is_deleted = 0`
    f, err := scanFare(tx.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrFareNotFound
        }
        return nil, Classify(err)
    }
    return f, nil
}

// TryReserveSeatTx takes one seat from the fare.  The decrement is a
// compare-and-decrement guarded by remaining_seats > 0; when no row is
// affected the fare is looked up to tell ErrFareNotFound from
// ErrInsufficientSeats.  The change becomes visible only when the
// caller commits.
func (r *FareRepo) TryReserveSeatTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    const q = `UPDATE fare_prices
               SET remaining_seats = remaining_seats - 1, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND is_deleted = 0 AND remaining_seats > 0`
    res, err := tx.ExecContext(ctx, q, id)
    if err != nil {
        return Classify(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return Classify(err)
    }
    if n == 1 {
        return nil
    }
    ok, err := r.existsTx(ctx, tx, id)
    if err != nil {
        return err
    }
    if !ok {
        return ErrFareNotFound
    }
    return ErrInsufficientSeats
}

// ReleaseSeatTx returns one seat to the fare.  The increment is guarded
// by remaining_seats < seats_allotted so a double release can never push
// the inventory above its original allotment; callers still guarantee at
// most one release per cancelled reservation.
func (r *FareRepo) ReleaseSeatTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    const q = `UPDATE fare_prices
               SET remaining_seats = remaining_seats + 1, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND is_deleted = 0 AND remaining_seats < seats_allotted`
    res, err := tx.ExecContext(ctx, q, id)
    if err != nil {
        return Classify(err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return Classify(err)
    }
    if n == 1 {
        return nil
    }
    ok, err := r.existsTx(ctx, tx, id)
    if err != nil {
        return err
    }
    if !ok {
        return ErrFareNotFound
    }
    return ErrInventoryFull
}

func (r *FareRepo) existsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    const q = `SELECT EXISTS (SELECT 1 FROM fare_prices WHERE id = ? AND is_deleted = 0)`
    var exists bool
    if err := tx.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
        return false, Classify(err)
    }
    return exists, nil
}

// ListByFlight returns the fares of a flight ordered by price.  It is a
// catalog read: seat counts it returns are a snapshot and must never be
// used to decide a booking.
func (r *FareRepo) ListByFlight(ctx context.Context, flightID uint64) ([]model.FarePrice, error) {
    const q = `SELECT ` + fareColumns + ` FROM fare_prices
               WHERE flight_id = ? AND is_deleted = 0
               ORDER BY price_cents ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, flightID)
    if err != nil {
        return nil, Classify(err)
    }
    defer rows.Close()
    fares := make([]model.FarePrice, 0)
    for rows.Next() {
        f, err := scanFare(rows)
        if err != nil {
            return nil, err
        }
        fares = append(fares, *f)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return fares, nil
}
