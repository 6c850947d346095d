package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// ReservationRepo is the reservation ledger.  Rows are never deleted;
// cancellation and completion are status transitions.  Every read applies
// is_deleted = 0 explicitly.  All timestamp fields are stored in UTC.
//
// Two unique indexes back the ledger invariants under concurrency:
// (user_id, flight_id, active_marker) allows one active reservation per
// user and flight, and (flight_id, active_seat) keeps seat numbers unique
// among active reservations.  Both generated columns are NULL once a
// reservation leaves PENDING/CONFIRMED.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, flight_id, fare_price_id, seat_number, fare_class,
       total_price_cents, currency, status, created_at, cancelled_at`

const activeStatuses = `('PENDING', 'CONFIRMED')`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
    var res model.Reservation
    var class, status string
    var cancelledAt sql.NullTime
    err := row.Scan(&res.ID, &res.UserID, &res.FlightID, &res.FarePriceID, &res.SeatNumber, &class,
        &res.TotalPriceCents, &res.Currency, &status, &res.CreatedAt, &cancelledAt)
    if err != nil {
        return nil, err
    }
    res.FareClass = model.FareClass(class)
    res.Status = model.ReservationStatus(status)
    res.CreatedAt = res.CreatedAt.UTC()
    if cancelledAt.Valid {
        t := cancelledAt.Time.UTC()
        res.CancelledAt = &t
    }
    return &res, nil
}

// InsertTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID.  A unique key violation
// means a concurrent transaction committed a conflicting active
// reservation after this one read the ledger; it is reported as transient
// so the whole booking is re-run and the conflict is detected by the
// regular checks.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations
               (user_id, flight_id, fare_price_id, seat_number, fare_class, total_price_cents, currency, status, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q,
        res.UserID, res.FlightID, res.FarePriceID, res.SeatNumber, string(res.FareClass),
        res.TotalPriceCents, res.Currency, string(res.Status), res.CreatedAt.UTC())
    if err != nil {
        if isDuplicateEntry(err) {
            return Transient(fmt.Errorf("reservation insert collided: %w", err))
        }
        return Classify(err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return Classify(err)
    }
    res.ID = uint64(id)
    return nil
}

// GetActiveForUserAndFlightTx returns the user's active reservation on the
// flight, or nil when there is none.  The row is locked for the rest of
// the transaction.
func (r *ReservationRepo) GetActiveForUserAndFlightTx(ctx context.Context, tx *sql.Tx, userID, flightID uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE user_id = ? AND flight_id = ? AND status IN ` + activeStatuses + ` AND is_deleted = 0
               LIMIT 1 FOR UPDATE`
    res, err := scanReservation(tx.QueryRowContext(ctx, q, userID, flightID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, nil
        }
        return nil, Classify(err)
    }
    return res, nil
}

// GetByIDForUpdateTx loads a reservation and locks it until the
// transaction ends, so a concurrent cancellation waits and then observes
// the terminal status.  It returns ErrReservationNotFound when absent.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE id = ? AND is_deleted = 0 FOR UPDATE`
    res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, Classify(err)
    }
    return res, nil
}

// UpdateStatusTx moves a reservation from one status to another.  The
// update is conditional on the current status so a stale caller cannot
// overwrite a transition committed by someone else.  Moving to CANCELLED
// stamps cancelled_at with at.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.ReservationStatus, at time.Time) error {
    var (
        result sql.Result
        err    error
    )
    if to == model.StatusCancelled {
        const q = `UPDATE reservations SET status = ?, cancelled_at = ?, updated_at = UTC_TIMESTAMP()
                   WHERE id = ? AND status = ? AND is_deleted = 0`
        result, err = tx.ExecContext(ctx, q, string(to), at.UTC(), id, string(from))
    } else {
        const q = `UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP()
                   WHERE id = ? AND status = ? AND is_deleted = 0`
        result, err = tx.ExecContext(ctx, q, string(to), id, string(from))
    }
    if err != nil {
        return Classify(err)
    }
    n, err := result.RowsAffected()
    if err != nil {
        return Classify(err)
    }
    if n == 0 {
        return fmt.Errorf("reservation %d is no longer %s: %w", id, from, ErrConflict)
    }
    return nil
}

// ActiveSeatNumbersTx lists the seat numbers held by active reservations
// on a flight.
func (r *ReservationRepo) ActiveSeatNumbersTx(ctx context.Context, tx *sql.Tx, flightID uint64) ([]string, error) {
    const q = `SELECT seat_number FROM reservations
               WHERE flight_id = ? AND status IN ` + activeStatuses + ` AND is_deleted = 0`
    rows, err := tx.QueryContext(ctx, q, flightID)
    if err != nil {
        return nil, Classify(err)
    }
    defer rows.Close()
    seats := make([]string, 0)
    for rows.Next() {
        var s string
        if err := rows.Scan(&s); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, Classify(err)
    }
    return seats, nil
}

// GetByID returns a single reservation.  It returns
// ErrReservationNotFound when no reservation with the ID exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? AND is_deleted = 0`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrReservationNotFound
        }
        return nil, Classify(err)
    }
    return res, nil
}

// ListByUser returns all reservations of a user, newest first.  When the
// user has none, an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
               WHERE user_id = ? AND is_deleted = 0
               ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, Classify(err)
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    if err := rows.Err(); err != nil {
        return nil, Classify(err)
    }
    return out, nil
}
