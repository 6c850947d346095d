package booking

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

var guardedDecrementSQL = "^" + regexp.QuoteMeta("UPDATE fare_prices SET remaining_seats = remaining_seats - 1, updated_at = UTC_TIMESTAMP() "+
    "WHERE id = ? AND is_deleted = 0 AND remaining_seats > 0") + "$"

func newSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    store := NewSQLStore(db, repository.NewFlightRepo(db), repository.NewFareRepo(db), repository.NewReservationRepo(db))
    return store, mock
}

func TestSQLStore_CommitsOnSuccess(t *testing.T) {
    store, mock := newSQLStore(t)
    mock.ExpectBegin()
    mock.ExpectExec(guardedDecrementSQL).
        WithArgs(10).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
        return tx.Inventory().TryReserveSeat(ctx, 10)
    })
    assert.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_RollsBackOnError(t *testing.T) {
    store, mock := newSQLStore(t)
    mock.ExpectBegin()
    mock.ExpectExec(guardedDecrementSQL).
        WithArgs(10).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
        WillReturnError(errors.New("boom"))
    mock.ExpectRollback()

    err := store.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
        if err := tx.Inventory().TryReserveSeat(ctx, 10); err != nil {
            return err
        }
        return tx.Ledger().Insert(ctx, newTestReservation())
    })
    assert.EqualError(t, err, "boom")
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_RollsBackOnPanic(t *testing.T) {
    store, mock := newSQLStore(t)
    mock.ExpectBegin()
    mock.ExpectRollback()

    assert.Panics(t, func() {
        _ = store.WithinTx(context.Background(), func(context.Context, Tx) error {
            panic("bug")
        })
    })
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ClassifiesCommitFailure(t *testing.T) {
    store, mock := newSQLStore(t)
    mock.ExpectBegin()
    mock.ExpectCommit().WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})

    err := store.WithinTx(context.Background(), func(context.Context, Tx) error { return nil })
    assert.ErrorIs(t, err, repository.ErrTransient)
}

func TestCoordinator_OverSQLStore(t *testing.T) {
    store, mock := newSQLStore(t)
    now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
    flightCols := []string{"id", "flight_number", "origin", "destination", "departs_at", "arrives_at",
        "status", "seat_capacity", "created_at", "updated_at"}
    fareCols := []string{"id", "flight_id", "fare_class", "price_cents", "currency", "seats_allotted",
        "remaining_seats", "created_at", "updated_at"}

    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FROM flights WHERE id = ?")).WithArgs(1).WillReturnRows(
        sqlmock.NewRows(flightCols).AddRow(1, "LH100", "FRA", "JFK", now.Add(24*time.Hour), now.Add(33*time.Hour),
            "SCHEDULED", 180, now, now))
    mock.ExpectQuery(regexp.QuoteMeta("FROM fare_prices WHERE id = ?")).WithArgs(10).WillReturnRows(
        sqlmock.NewRows(fareCols).AddRow(10, 1, "ECONOMY", 19900, "EUR", 100, 1, now, now))
    mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND flight_id = ? AND status IN ('PENDING', 'CONFIRMED') AND is_deleted = 0 LIMIT 1 FOR UPDATE") + "$").WithArgs(100, 1).
        WillReturnRows(sqlmock.NewRows([]string{"id"}))
    mock.ExpectExec(guardedDecrementSQL).
        WithArgs(10).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT seat_number FROM reservations")).WithArgs(1).
        WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("1A"))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
        WithArgs(100, 1, 10, "1B", "ECONOMY", 19900, "EUR", "CONFIRMED", sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(77, 1))
    mock.ExpectCommit()

    c := NewCoordinator(store, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))
    res, err := c.CreateReservation(context.Background(), CreateParams{UserID: 100, FlightID: 1, FarePriceID: 10})
    require.NoError(t, err)
    assert.Equal(t, uint64(77), res.ID)
    assert.Equal(t, "1B", res.SeatNumber)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestReservation() *model.Reservation {
    return &model.Reservation{
        UserID:          100,
        FlightID:        1,
        FarePriceID:     10,
        SeatNumber:      "1A",
        FareClass:       model.FareEconomy,
        TotalPriceCents: 19900,
        Currency:        "EUR",
        Status:          model.StatusConfirmed,
        CreatedAt:       time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
    }
}
