package booking

import (
    "context"
    "database/sql/driver"
    "errors"
    "fmt"
    "time"

    "github.com/labstack/gommon/log"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// Coordinator runs reservation writes as atomic units of work with a
// bounded retry on transient failures.  It holds no mutable state shared
// between requests; seat counts live only in the store.
type Coordinator struct {
    store       Store
    seats       *SeatAllocator
    policy      RetryPolicy
    autoConfirm bool
    logger      *log.Logger
    now         func() time.Time
    sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
    return func(c *Coordinator) { c.policy = p.normalized() }
}

// WithAutoConfirm controls whether new reservations start CONFIRMED
// (the default) or PENDING.
func WithAutoConfirm(v bool) Option {
    return func(c *Coordinator) { c.autoConfirm = v }
}

// WithSeatAllocator overrides the allocator built from DefaultSeatLayout.
func WithSeatAllocator(a *SeatAllocator) Option {
    return func(c *Coordinator) { c.seats = a }
}

// WithLogger sets the logger used for retry and outcome entries.
func WithLogger(l *log.Logger) Option {
    return func(c *Coordinator) { c.logger = l }
}

// WithClock sets the time source used for bookability checks and
// timestamps.
func WithClock(now func() time.Time) Option {
    return func(c *Coordinator) { c.now = now }
}

// NewCoordinator returns a Coordinator over store.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
    if store == nil {
        panic("nil store passed to NewCoordinator")
    }
    c := &Coordinator{
        store:       store,
        seats:       NewSeatAllocator(DefaultSeatLayout),
        policy:      DefaultRetryPolicy(),
        autoConfirm: true,
        logger:      log.New("booking"),
        now:         time.Now,
        sleep:       sleepContext,
    }
    for _, opt := range opts {
        opt(c)
    }
    return c
}

// CreateParams identifies what to book.  SeatNumber is optional.
type CreateParams struct {
    UserID      uint64
    FlightID    uint64
    FarePriceID uint64
    SeatNumber  string
}

// CreateReservation books one seat on a fare.  The flight and fare are
// checked, the user must not already hold an active reservation on the
// flight, one seat is taken from the fare, a seat number is allocated and
// the reservation is inserted, all in one transaction.
func (c *Coordinator) CreateReservation(ctx context.Context, p CreateParams) (*model.Reservation, error) {
    var out *model.Reservation
    err := c.run(ctx, "create", func(ctx context.Context, tx Tx) error {
        out = nil
        now := c.now().UTC()

        flight, err := tx.Flights().Flight(ctx, p.FlightID)
        if err != nil {
            return err
        }
        if !flight.Bookable(now) {
            return repository.ErrFlightNotBookable
        }

        fare, err := tx.Inventory().Fare(ctx, p.FarePriceID)
        if err != nil {
            return err
        }
        if fare.FlightID != flight.ID {
            return repository.ErrFareNotFound
        }

        existing, err := tx.Ledger().GetActiveForUserAndFlight(ctx, p.UserID, flight.ID)
        if err != nil {
            return err
        }
        if existing != nil {
            return repository.ErrAlreadyBooked
        }

        if err := tx.Inventory().TryReserveSeat(ctx, fare.ID); err != nil {
            return err
        }

        seat, err := c.seats.Allocate(ctx, tx.Ledger(), flight, p.SeatNumber)
        if err != nil {
            return err
        }

        status := model.StatusPending
        if c.autoConfirm {
            status = model.StatusConfirmed
        }
        res := &model.Reservation{
            UserID:          p.UserID,
            FlightID:        flight.ID,
            FarePriceID:     fare.ID,
            SeatNumber:      seat,
            FareClass:       fare.FareClass,
            TotalPriceCents: fare.PriceCents,
            Currency:        fare.Currency,
            Status:          status,
            CreatedAt:       now,
        }
        if err := tx.Ledger().Insert(ctx, res); err != nil {
            return err
        }
        out = res
        return nil
    })
    if err != nil {
        c.logger.Infoj(log.JSON{"op": "create", "user_id": p.UserID, "flight_id": p.FlightID,
            "fare_price_id": p.FarePriceID, "outcome": repository.KindOf(err), "error": err.Error()})
        return nil, err
    }
    c.logger.Infoj(log.JSON{"op": "create", "reservation_id": out.ID, "user_id": out.UserID,
        "flight_id": out.FlightID, "fare_price_id": out.FarePriceID, "seat": out.SeatNumber, "outcome": "ok"})
    return out, nil
}

// CancelReservation cancels a reservation owned by userID and returns
// its seat to the fare.  Cancelling a reservation that is already
// CANCELLED or COMPLETED fails with ErrAlreadyTerminal, so a seat is
// restored at most once.
func (c *Coordinator) CancelReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
    var out *model.Reservation
    err := c.run(ctx, "cancel", func(ctx context.Context, tx Tx) error {
        out = nil
        res, err := tx.Ledger().GetByIDForUpdate(ctx, id)
        if err != nil {
            return err
        }
        if res.UserID != userID {
            return repository.ErrNotOwner
        }
        if res.Status.IsTerminal() {
            return repository.ErrAlreadyTerminal
        }
        at := c.now().UTC()
        if err := tx.Ledger().UpdateStatus(ctx, res.ID, res.Status, model.StatusCancelled, at); err != nil {
            return err
        }
        if err := tx.Inventory().ReleaseSeat(ctx, res.FarePriceID); err != nil {
            return err
        }
        res.Status = model.StatusCancelled
        res.CancelledAt = &at
        out = res
        return nil
    })
    c.logOutcome("cancel", id, userID, err)
    if err != nil {
        return nil, err
    }
    return out, nil
}

// ConfirmReservation moves a PENDING reservation owned by userID to
// CONFIRMED.
func (c *Coordinator) ConfirmReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
    owner := userID
    res, err := c.transition(ctx, "confirm", id, &owner, model.StatusConfirmed)
    c.logOutcome("confirm", id, userID, err)
    return res, err
}

// CompleteReservation marks a CONFIRMED reservation as flown.  The seat
// stays consumed; completion is not restricted to the owner.
func (c *Coordinator) CompleteReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
    res, err := c.transition(ctx, "complete", id, nil, model.StatusCompleted)
    c.logOutcome("complete", id, 0, err)
    return res, err
}

func (c *Coordinator) transition(ctx context.Context, op string, id uint64, owner *uint64, to model.ReservationStatus) (*model.Reservation, error) {
    var out *model.Reservation
    err := c.run(ctx, op, func(ctx context.Context, tx Tx) error {
        out = nil
        res, err := tx.Ledger().GetByIDForUpdate(ctx, id)
        if err != nil {
            return err
        }
        if owner != nil && res.UserID != *owner {
            return repository.ErrNotOwner
        }
        if !res.Status.CanTransitionTo(to) {
            return fmt.Errorf("%w: %s to %s", repository.ErrInvalidTransition, res.Status, to)
        }
        if err := tx.Ledger().UpdateStatus(ctx, res.ID, res.Status, to, c.now().UTC()); err != nil {
            return err
        }
        res.Status = to
        out = res
        return nil
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

func (c *Coordinator) logOutcome(op string, id, userID uint64, err error) {
    entry := log.JSON{"op": op, "reservation_id": id, "outcome": "ok"}
    if userID != 0 {
        entry["user_id"] = userID
    }
    if err != nil {
        entry["outcome"] = repository.KindOf(err)
        entry["error"] = err.Error()
    }
    c.logger.Infoj(entry)
}

// run executes fn in a fresh transaction until it succeeds, fails with a
// non-transient error, or the attempts are used up.
func (c *Coordinator) run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
    var err error
    for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
        err = c.attempt(ctx, fn)
        if err == nil || !errors.Is(err, repository.ErrTransient) {
            return err
        }
        if attempt == c.policy.MaxAttempts || ctx.Err() != nil {
            break
        }
        d := c.policy.Backoff(attempt)
        c.logger.Warnj(log.JSON{"op": op, "attempt": attempt, "backoff": d.String(), "error": err.Error()})
        if c.sleep(ctx, d) != nil {
            break
        }
    }
    c.logger.Errorj(log.JSON{"op": op, "attempts": c.policy.MaxAttempts, "error": err.Error()})
    return fmt.Errorf("%s reservation: retries exhausted: %w", op, err)
}

func (c *Coordinator) attempt(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
    if c.policy.AttemptTimeout <= 0 {
        return c.store.WithinTx(ctx, fn)
    }
    actx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
    defer cancel()
    err := c.store.WithinTx(actx, fn)
    if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && cutShort(err) {
        return repository.Transient(err)
    }
    return err
}

// cutShort reports whether err came from the attempt being aborted rather
// than from a booking decision.
func cutShort(err error) bool {
    return errors.Is(err, context.DeadlineExceeded) ||
        errors.Is(err, context.Canceled) ||
        errors.Is(err, driver.ErrBadConn)
}
