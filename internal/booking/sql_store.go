package booking

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// SQLStore implements Store on MySQL.  Transactions run at READ COMMITTED;
// correctness comes from row locks (FOR UPDATE on reservations, the
// conditional UPDATE on fare_prices) and the ledger's unique indexes, not
// from the isolation level.
type SQLStore struct {
    db           *sql.DB
    flights      *repository.FlightRepo
    fares        *repository.FareRepo
    reservations *repository.ReservationRepo
}

// NewSQLStore wires the repositories into a Store.  All arguments must be
// non-nil.
func NewSQLStore(db *sql.DB, flights *repository.FlightRepo, fares *repository.FareRepo, reservations *repository.ReservationRepo) *SQLStore {
    if db == nil || flights == nil || fares == nil || reservations == nil {
        panic("nil dependency passed to NewSQLStore")
    }
    return &SQLStore{db: db, flights: flights, fares: fares, reservations: reservations}
}

// WithinTx begins a transaction, runs fn and commits.  If fn fails or
// panics the transaction is rolled back.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
    if err != nil {
        return repository.Classify(err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(ctx, &sqlTx{store: s, tx: tx}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return repository.Classify(err)
    }
    committed = true
    return nil
}

type sqlTx struct {
    store *SQLStore
    tx    *sql.Tx
}

func (t *sqlTx) Flights() FlightReader { return sqlFlights{t} }
func (t *sqlTx) Inventory() FareInventory { return sqlInventory{t} }
func (t *sqlTx) Ledger() ReservationLedger { return sqlLedger{t} }

type sqlFlights struct{ *sqlTx }

func (f sqlFlights) Flight(ctx context.Context, id uint64) (*model.Flight, error) {
    return f.store.flights.GetByIDTx(ctx, f.tx, id)
}

type sqlInventory struct{ *sqlTx }

func (i sqlInventory) Fare(ctx context.Context, id uint64) (*model.FarePrice, error) {
    return i.store.fares.GetByIDTx(ctx, i.tx, id)
}

func (i sqlInventory) TryReserveSeat(ctx context.Context, id uint64) error {
    return i.store.fares.TryReserveSeatTx(ctx, i.tx, id)
}

func (i sqlInventory) ReleaseSeat(ctx context.Context, id uint64) error {
    return i.store.fares.ReleaseSeatTx(ctx, i.tx, id)
}

type sqlLedger struct{ *sqlTx }

func (l sqlLedger) Insert(ctx context.Context, res *model.Reservation) error {
    return l.store.reservations.InsertTx(ctx, l.tx, res)
}

func (l sqlLedger) GetActiveForUserAndFlight(ctx context.Context, userID, flightID uint64) (*model.Reservation, error) {
    return l.store.reservations.GetActiveForUserAndFlightTx(ctx, l.tx, userID, flightID)
}

func (l sqlLedger) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
    return l.store.reservations.GetByIDForUpdateTx(ctx, l.tx, id)
}

func (l sqlLedger) UpdateStatus(ctx context.Context, id uint64, from, to model.ReservationStatus, at time.Time) error {
    return l.store.reservations.UpdateStatusTx(ctx, l.tx, id, from, to, at)
}

func (l sqlLedger) ActiveSeatNumbers(ctx context.Context, flightID uint64) ([]string, error) {
    return l.store.reservations.ActiveSeatNumbersTx(ctx, l.tx, flightID)
}
