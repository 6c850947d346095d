package model

import "time"

// FareClass is a priced seating tier on a flight.
type FareClass string

const (
    FareEconomy        FareClass = "ECONOMY"
    FarePremiumEconomy FareClass = "PREMIUM_ECONOMY"
    FareBusiness       FareClass = "BUSINESS"
    FareFirst          FareClass = "FIRST"
)

// Valid reports whether c is one of the known fare classes.
func (c FareClass) Valid() bool {
    switch c {
    case FareEconomy, FarePremiumEconomy, FareBusiness, FareFirst:
        return true
    }
    return false
}

// FarePrice is the price and seat allotment of one fare class on one
// flight.  RemainingSeats is only ever changed through the fare
// inventory's conditional decrement and increment, never written directly.
//
// Fields:
//  ID             – primary key identifier.
//  FlightID       – flight that owns the fare.
//  FareClass      – seating tier.
//  PriceCents     – price per seat in minor currency units.
//  Currency       – ISO-4217 currency code.
//  SeatsAllotted  – seats originally allotted to the fare.
//  RemainingSeats – seats still available (never negative).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type FarePrice struct {
    ID             uint64    // fare_prices.id
    FlightID       uint64    // fare_prices.flight_id
    FareClass      FareClass // fare_prices.fare_class
    PriceCents     int64     // fare_prices.price_cents
    Currency       string    // fare_prices.currency
    SeatsAllotted  uint32    // fare_prices.seats_allotted
    RemainingSeats uint32    // fare_prices.remaining_seats
    CreatedAt      time.Time // fare_prices.created_at
    UpdatedAt      time.Time // fare_prices.updated_at
}
