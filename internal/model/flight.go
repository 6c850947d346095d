package model

import "time"

// FlightStatus is the operational state of a flight.
type FlightStatus string

const (
    FlightScheduled FlightStatus = "SCHEDULED"
    FlightBoarding  FlightStatus = "BOARDING"
    FlightDelayed   FlightStatus = "DELAYED"
    FlightDeparted  FlightStatus = "DEPARTED"
    FlightCancelled FlightStatus = "CANCELLED"
    FlightCompleted FlightStatus = "COMPLETED"
)

// Flight represents a scheduled flight between two airports.  Flights
// own their fare prices; they never reference reservations.
//
// Fields:
//  ID           – primary key identifier.
//  FlightNumber – carrier flight number (e.g. "KL1234").
//  Origin       – IATA code of the departure airport.
//  Destination  – IATA code of the arrival airport.
//  DepartsAt    – scheduled departure (UTC).
//  ArrivesAt    – scheduled arrival (UTC).
//  Status       – current FlightStatus.
//  SeatCapacity – number of physical seats on the aircraft.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Flight struct {
    ID           uint64       // flights.id
    FlightNumber string       // flights.flight_number
    Origin       string       // flights.origin
    Destination  string       // flights.destination
    DepartsAt    time.Time    // flights.departs_at
    ArrivesAt    time.Time    // flights.arrives_at
    Status       FlightStatus // flights.status
    SeatCapacity uint32       // flights.seat_capacity
    CreatedAt    time.Time    // flights.created_at
    UpdatedAt    time.Time    // flights.updated_at
}

// Bookable reports whether new reservations may be taken on the flight at
// the given instant.  Cancelled and completed flights are closed for good;
// any other flight closes once its departure time has passed.
func (f *Flight) Bookable(now time.Time) bool {
    if f.Status == FlightCancelled || f.Status == FlightCompleted {
        return false
    }
    return f.DepartsAt.After(now)
}
