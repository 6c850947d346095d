package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flight-seat-reservation/internal/middleware"
    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// ReservationService is the subset of the reservation use cases the HTTP
// layer calls.
type ReservationService interface {
    CreateReservation(ctx context.Context, userID, flightID, farePriceID uint64, seatNumber string) (*model.Reservation, error)
    CancelReservation(ctx context.Context, id, userID uint64) error
    ConfirmReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error)
    CompleteReservation(ctx context.Context, id uint64) (*model.Reservation, error)
    GetReservationForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error)
    ListReservationsForUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// ReservationHandler exposes reservation endpoints.  All methods assume
// JWTAuth and role validation have already run.
type ReservationHandler struct {
    svc ReservationService
}

// NewReservationHandler panics if svc is nil.
func NewReservationHandler(svc ReservationService) *ReservationHandler {
    if svc == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{svc: svc}
}

type createReservationRequest struct {
    FarePriceID uint64 `json:"fare_price_id"`
    SeatNumber  string `json:"seat_number"`
}

// Create handles POST /v1/flights/:id/reservations.  The body carries
// fare_price_id and an optional seat_number.  It returns 201 with the
// reservation.
func (h *ReservationHandler) Create(c echo.Context) error {
    userID, ok := middleware.UserID(c)
    if !ok {
        return unauthorized(c)
    }
    flightID, err := parseID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid flight id")
    }
    var body createReservationRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.FarePriceID == 0 {
        return badRequest(c, "fare_price_id is required")
    }
    res, err := h.svc.CreateReservation(c.Request().Context(), userID, flightID, body.FarePriceID, body.SeatNumber)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    userID, ok := middleware.UserID(c)
    if !ok {
        return unauthorized(c)
    }
    items, err := h.svc.ListReservationsForUser(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /v1/reservations/:id.  Reservations of other users are
// reported as 404.
func (h *ReservationHandler) Get(c echo.Context) error {
    userID, ok := middleware.UserID(c)
    if !ok {
        return unauthorized(c)
    }
    id, err := parseID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.svc.GetReservationForUser(c.Request().Context(), id, userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id.  The reservation is kept
// with status CANCELLED; the response is 204.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    userID, ok := middleware.UserID(c)
    if !ok {
        return unauthorized(c)
    }
    id, err := parseID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid reservation id")
    }
    if err := h.svc.CancelReservation(c.Request().Context(), id, userID); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Confirm handles POST /v1/reservations/:id/confirm.
func (h *ReservationHandler) Confirm(c echo.Context) error {
    userID, ok := middleware.UserID(c)
    if !ok {
        return unauthorized(c)
    }
    id, err := parseID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.svc.ConfirmReservation(c.Request().Context(), id, userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Complete handles POST /v1/admin/reservations/:id/complete.
func (h *ReservationHandler) Complete(c echo.Context) error {
    id, err := parseID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid reservation id")
    }
    res, err := h.svc.CompleteReservation(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

func parseID(s string) (uint64, error) {
    id, err := strconv.ParseUint(s, 10, 64)
    if err != nil {
        return 0, err
    }
    if id == 0 {
        return 0, strconv.ErrRange
    }
    return id, nil
}
