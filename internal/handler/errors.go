package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/labstack/gommon/log"

    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// errorStatus maps an error kind to its HTTP status.
func errorStatus(err error) int {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, repository.ErrConflict):
        return http.StatusConflict
    case errors.Is(err, repository.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, repository.ErrInvalid):
        return http.StatusBadRequest
    case errors.Is(err, repository.ErrTransient):
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// writeError renders err as {"error": ..., "code": ...}.  The code is the
// stable kind name clients branch on; internal errors are logged and
// reported without detail.
func writeError(c echo.Context, err error) error {
    status := errorStatus(err)
    code := repository.KindOf(err)
    msg := err.Error()
    switch status {
    case http.StatusInternalServerError:
        c.Logger().Errorj(log.JSON{"path": c.Path(), "error": err.Error()})
        msg = "internal error"
    case http.StatusServiceUnavailable:
        c.Response().Header().Set("Retry-After", "1")
        msg = "temporarily unavailable, please retry"
    }
    return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid"})
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthorized"})
}
