package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
)

// FlightReader loads a single flight.
type FlightReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Flight, error)
}

// FareLister lists the fares of a flight.
type FareLister interface {
    ListByFlight(ctx context.Context, flightID uint64) ([]model.FarePrice, error)
}

// FlightHandler serves the public, cacheable flight view.
type FlightHandler struct {
    flights FlightReader
    fares   FareLister
}

func NewFlightHandler(flights FlightReader, fares FareLister) *FlightHandler {
    if flights == nil || fares == nil {
        panic("nil repository passed to NewFlightHandler")
    }
    return &FlightHandler{flights: flights, fares: fares}
}

type fareView struct {
    ID         uint64          `json:"id"`
    FareClass  model.FareClass `json:"fare_class"`
    PriceCents int64           `json:"price_cents"`
    Currency   string          `json:"currency"`
}

type flightView struct {
    ID           uint64             `json:"id"`
    FlightNumber string             `json:"flight_number"`
    Origin       string             `json:"origin"`
    Destination  string             `json:"destination"`
    DepartsAt    string             `json:"departs_at"`
    ArrivesAt    string             `json:"arrives_at"`
    Status       model.FlightStatus `json:"status"`
    Fares        []fareView         `json:"fares"`
}

// Get handles GET /v1/flights/:id.  The response lists fares by class,
// price and currency only; remaining seat counts are deliberately absent
// because this endpoint is served from cache.
func (h *FlightHandler) Get(c echo.Context) error {
    id, err := parseID(c.Param("id"))
    if err != nil {
        return badRequest(c, "invalid flight id")
    }
    ctx := c.Request().Context()
    f, err := h.flights.GetByID(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    fares, err := h.fares.ListByFlight(ctx, id)
    if err != nil {
        return writeError(c, err)
    }
    out := flightView{
        ID:           f.ID,
        FlightNumber: f.FlightNumber,
        Origin:       f.Origin,
        Destination:  f.Destination,
        DepartsAt:    f.DepartsAt.UTC().Format(time.RFC3339),
        ArrivesAt:    f.ArrivesAt.UTC().Format(time.RFC3339),
        Status:       f.Status,
        Fares:        make([]fareView, 0, len(fares)),
    }
    for _, fp := range fares {
        out.Fares = append(out.Fares, fareView{ID: fp.ID, FareClass: fp.FareClass, PriceCents: fp.PriceCents, Currency: fp.Currency})
    }
    return c.JSON(http.StatusOK, out)
}
