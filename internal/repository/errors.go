// Package repository defines error types that are reused across multiple
// repositories and by the booking layer above them.  Every error returned
// to callers wraps exactly one of the kind sentinels below so that higher
// layers such as handlers can branch with errors.Is.  ErrNotFound,
// ErrConflict, ErrForbidden and ErrInvalid are surfaced untouched;
// ErrTransient marks contention the caller may retry.
package repository

import (
    "context"
    "database/sql/driver"
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"
)

// Kind sentinels.
var (
    ErrNotFound  = errors.New("not found")
    ErrConflict  = errors.New("conflict")
    ErrForbidden = errors.New("forbidden")
    ErrInvalid   = errors.New("invalid")
    ErrTransient = errors.New("transient")
)

// NotFound errors.
var (
    ErrFlightNotFound      = fmt.Errorf("%w: flight not found", ErrNotFound)
    ErrFareNotFound        = fmt.Errorf("%w: fare not found", ErrNotFound)
    ErrReservationNotFound = fmt.Errorf("%w: reservation not found", ErrNotFound)
    ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)
)

// Conflict errors.
var (
    ErrInsufficientSeats = fmt.Errorf("%w: insufficient seats", ErrConflict)
    ErrAlreadyBooked     = fmt.Errorf("%w: already booked", ErrConflict)
    ErrSeatTaken         = fmt.Errorf("%w: seat taken", ErrConflict)
    ErrNoSeatAvailable   = fmt.Errorf("%w: no seat available", ErrConflict)
    ErrAlreadyTerminal   = fmt.Errorf("%w: reservation already cancelled or completed", ErrConflict)
    ErrFlightNotBookable = fmt.Errorf("%w: flight not bookable", ErrConflict)
    ErrInvalidTransition = fmt.Errorf("%w: illegal status transition", ErrConflict)
    ErrInventoryFull     = fmt.Errorf("%w: fare inventory already at allotment", ErrConflict)
)

// Forbidden and Invalid errors.
var (
    ErrNotOwner    = fmt.Errorf("%w: reservation belongs to another user", ErrForbidden)
    ErrInvalidSeat = fmt.Errorf("%w: malformed seat number", ErrInvalid)
    ErrInvalidID   = fmt.Errorf("%w: malformed identifier", ErrInvalid)
)

// MySQL server error numbers that indicate contention rather than a bug.
const (
    mysqlDuplicateEntry  = 1062
    mysqlLockWaitTimeout = 1205
    mysqlDeadlock        = 1213
)

// transientError wraps a driver error so that errors.Is matches both
// ErrTransient and the original cause.
type transientError struct {
    cause error
}

func (e *transientError) Error() string { return "transient: " + e.cause.Error() }

func (e *transientError) Is(target error) bool { return target == ErrTransient }

func (e *transientError) Unwrap() error { return e.cause }

// Transient marks err as retryable.  A nil err stays nil.
func Transient(err error) error {
    if err == nil || errors.Is(err, ErrTransient) {
        return err
    }
    return &transientError{cause: err}
}

// Classify converts persistence failures caused by concurrent writers into
// ErrTransient.  Deadlocks, lock wait timeouts, broken connections and
// expired statement deadlines are all safe to retry because the enclosing
// transaction is rolled back as a whole.  Other errors pass through.
func Classify(err error) error {
    if err == nil {
        return nil
    }
    var myErr *mysql.MySQLError
    if errors.As(err, &myErr) {
        switch myErr.Number {
        case mysqlDeadlock, mysqlLockWaitTimeout:
            return Transient(err)
        }
    }
    if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
        return Transient(err)
    }
    if errors.Is(err, context.DeadlineExceeded) {
        return Transient(err)
    }
    return err
}

// isDuplicateEntry reports whether err is a MySQL unique key violation.
func isDuplicateEntry(err error) bool {
    var myErr *mysql.MySQLError
    return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// KindOf returns a stable code naming the kind of err.  Callers such as
// the HTTP layer use it to build machine-readable responses.
func KindOf(err error) string {
    switch {
    case err == nil:
        return ""
    case errors.Is(err, ErrNotFound):
        return "not_found"
    case errors.Is(err, ErrConflict):
        return "conflict"
    case errors.Is(err, ErrForbidden):
        return "forbidden"
    case errors.Is(err, ErrInvalid):
        return "invalid"
    case errors.Is(err, ErrTransient):
        return "transient"
    }
    return "internal"
}
