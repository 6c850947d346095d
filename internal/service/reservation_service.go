// Package service holds the reservation use cases exposed to the HTTP
// layer and the publisher that fans committed changes out to the broker.
package service

import (
    "context"
    "time"

    "github.com/labstack/gommon/log"

    "github.com/iliyamo/flight-seat-reservation/internal/booking"
    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/queue"
    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// UserDirectory answers whether a user account exists.
type UserDirectory interface {
    Exists(ctx context.Context, id uint64) (bool, error)
}

// Booker performs reservation writes atomically.
type Booker interface {
    CreateReservation(ctx context.Context, p booking.CreateParams) (*model.Reservation, error)
    CancelReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error)
    ConfirmReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error)
    CompleteReservation(ctx context.Context, id uint64) (*model.Reservation, error)
}

// ReservationReader serves read-only ledger queries.
type ReservationReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// Publisher delivers reservation events after commit.
type Publisher interface {
    Publish(ctx context.Context, event queue.ReservationEvent) error
}

const publishTimeout = 3 * time.Second

// ReservationService is the entry point for reservation use cases.
type ReservationService struct {
    users     UserDirectory
    booker    Booker
    reader    ReservationReader
    publisher Publisher
    logger    *log.Logger
    now       func() time.Time
}

// NewReservationService wires the collaborators.  publisher may be nil,
// in which case no events are emitted.
func NewReservationService(users UserDirectory, booker Booker, reader ReservationReader, publisher Publisher, logger *log.Logger) *ReservationService {
    if users == nil || booker == nil || reader == nil || logger == nil {
        panic("nil dependency passed to NewReservationService")
    }
    return &ReservationService{
        users:     users,
        booker:    booker,
        reader:    reader,
        publisher: publisher,
        logger:    logger,
        now:       time.Now,
    }
}

// CreateReservation books a seat for userID.  seatNumber is optional.
func (s *ReservationService) CreateReservation(ctx context.Context, userID, flightID, farePriceID uint64, seatNumber string) (*model.Reservation, error) {
    if userID == 0 || flightID == 0 || farePriceID == 0 {
        return nil, repository.ErrInvalidID
    }
    ok, err := s.users.Exists(ctx, userID)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, repository.ErrUserNotFound
    }
    res, err := s.booker.CreateReservation(ctx, booking.CreateParams{
        UserID:      userID,
        FlightID:    flightID,
        FarePriceID: farePriceID,
        SeatNumber:  seatNumber,
    })
    if err != nil {
        return nil, err
    }
    s.publish(ctx, queue.EventCreated, res)
    return res, nil
}

// CancelReservation cancels a reservation owned by userID.
func (s *ReservationService) CancelReservation(ctx context.Context, id, userID uint64) error {
    if id == 0 || userID == 0 {
        return repository.ErrInvalidID
    }
    res, err := s.booker.CancelReservation(ctx, id, userID)
    if err != nil {
        return err
    }
    s.publish(ctx, queue.EventCancelled, res)
    return nil
}

// ConfirmReservation confirms a pending reservation owned by userID.
func (s *ReservationService) ConfirmReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
    if id == 0 || userID == 0 {
        return nil, repository.ErrInvalidID
    }
    res, err := s.booker.ConfirmReservation(ctx, id, userID)
    if err != nil {
        return nil, err
    }
    s.publish(ctx, queue.EventConfirmed, res)
    return res, nil
}

// CompleteReservation marks a confirmed reservation as flown.
func (s *ReservationService) CompleteReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
    if id == 0 {
        return nil, repository.ErrInvalidID
    }
    res, err := s.booker.CompleteReservation(ctx, id)
    if err != nil {
        return nil, err
    }
    s.publish(ctx, queue.EventCompleted, res)
    return res, nil
}

// GetReservation returns a reservation by id.
func (s *ReservationService) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
    if id == 0 {
        return nil, repository.ErrInvalidID
    }
    return s.reader.GetByID(ctx, id)
}

// GetReservationForUser returns a reservation only if userID owns it.
// Reservations of other users are reported as not found.
func (s *ReservationService) GetReservationForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
    res, err := s.GetReservation(ctx, id)
    if err != nil {
        return nil, err
    }
    if res.UserID != userID {
        return nil, repository.ErrReservationNotFound
    }
    return res, nil
}

// ListReservationsForUser returns every reservation of userID, newest
// first.  The result is never nil.
func (s *ReservationService) ListReservationsForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    if userID == 0 {
        return nil, repository.ErrInvalidID
    }
    list, err := s.reader.ListByUser(ctx, userID)
    if err != nil {
        return nil, err
    }
    if list == nil {
        list = []model.Reservation{}
    }
    return list, nil
}

// publish emits an event for a committed change.  The write already
// succeeded, so failures are only logged.
func (s *ReservationService) publish(ctx context.Context, typ queue.EventType, res *model.Reservation) {
    if s.publisher == nil {
        return
    }
    ev := queue.NewReservationEvent(typ, res, s.now())
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
    defer cancel()
    if err := s.publisher.Publish(pctx, ev); err != nil {
        s.logger.Warnj(log.JSON{"component": "reservation-service", "msg": "event not published",
            "event_id": ev.EventID, "type": string(typ), "reservation_id": res.ID, "error": err.Error()})
    }
}
