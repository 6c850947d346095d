package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/flight-seat-reservation/internal/handler"    // import the handlers that implement the endpoints
    "github.com/iliyamo/flight-seat-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    // Liveness answers as long as the process runs.
    e.GET("/healthz", handler.Health)
    // Readiness fails while MySQL is unreachable.
    e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers the unauthenticated flight catalog.  cache is
// the Redis response cache; it only ever fronts these routes because
// reservation state must never be served stale.
func RegisterPublic(e *echo.Echo, f *handler.FlightHandler, cache echo.MiddlewareFunc) {
    g := e.Group("/v1", cache)
    // Flight details with the fares on sale.  No seat counts are exposed.
    g.GET("/flights/:id", f.Get)
}

// RegisterReservations registers the reservation endpoints under /v1.  All
// routes require a valid JWT and either the CUSTOMER or ADMIN role.
// limiter is the token-bucket middleware applied to write endpoints only.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin),
    )

    // ---- Writes (rate limited) ----
    g.POST("/flights/:id/reservations", h.Create, limiter)
    g.DELETE("/reservations/:id", h.Cancel, limiter)
    g.POST("/reservations/:id/confirm", h.Confirm, limiter)

    // ---- Reads ----
    g.GET("/my-reservations", h.ListMine)
    g.GET("/reservations/:id", h.Get)

    // ---- Admin ----
    // Completing a reservation happens after the flight has flown; only
    // operators may do it.
    admin := e.Group(
        "/v1/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(middleware.RoleAdmin),
    )
    admin.POST("/reservations/:id/complete", h.Complete)
}
