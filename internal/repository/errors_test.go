package repository

import (
    "context"
    "database/sql/driver"
    "errors"
    "fmt"
    "testing"

    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
    tests := []struct {
        name          string
        err           error
        wantTransient bool
    }{
        {"nil", nil, false},
        {"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
        {"lock wait timeout", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, true},
        {"wrapped deadlock", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1213}), true},
        {"bad conn", driver.ErrBadConn, true},
        {"deadline", context.DeadlineExceeded, true},
        {"syntax error", &mysql.MySQLError{Number: 1064, Message: "syntax"}, false},
        {"canceled", context.Canceled, false},
        {"plain", errors.New("boom"), false},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            got := Classify(tt.err)
            assert.Equal(t, tt.wantTransient, errors.Is(got, ErrTransient))
            if tt.err != nil {
                assert.ErrorIs(t, got, tt.err)
            }
        })
    }
}

func TestTransient_DoesNotDoubleWrap(t *testing.T) {
    first := Transient(errors.New("x"))
    assert.Same(t, first, Transient(first))
    assert.Nil(t, Transient(nil))
}

func TestKindOf(t *testing.T) {
    assert.Equal(t, "not_found", KindOf(ErrFareNotFound))
    assert.Equal(t, "conflict", KindOf(ErrInsufficientSeats))
    assert.Equal(t, "conflict", KindOf(ErrAlreadyBooked))
    assert.Equal(t, "forbidden", KindOf(ErrNotOwner))
    assert.Equal(t, "invalid", KindOf(ErrInvalidSeat))
    assert.Equal(t, "transient", KindOf(Transient(errors.New("deadlock"))))
    assert.Equal(t, "internal", KindOf(errors.New("boom")))
    assert.Equal(t, "", KindOf(nil))
}

func TestSpecificErrorsKeepTheirMessage(t *testing.T) {
    assert.Equal(t, "conflict: insufficient seats", ErrInsufficientSeats.Error())
    assert.Equal(t, "conflict: already booked", ErrAlreadyBooked.Error())
}
