package config

import (
    "strings"
    "time"
)

// BookingConfig tunes the booking transaction coordinator.
type BookingConfig struct {
    MaxAttempts    int           // attempts per reservation write, including the first
    BackoffBase    time.Duration // ceiling of the first jittered pause
    BackoffMax     time.Duration // cap for the jittered pause
    AttemptTimeout time.Duration // deadline of a single transaction attempt
    AutoConfirm    bool          // create reservations as CONFIRMED instead of PENDING
    SeatLetters    string        // seat letters of one cabin row
    MaxRows        int           // cabin rows used when a flight has no capacity set
}

// LoadBookingConfig reads BOOKING_* variables.  Out-of-range values fall
// back to safe minimums rather than failing startup.
func LoadBookingConfig() BookingConfig {
    c := BookingConfig{
        MaxAttempts:    envInt("BOOKING_MAX_ATTEMPTS", 3),
        BackoffBase:    envDur("BOOKING_BACKOFF_BASE", 20*time.Millisecond),
        BackoffMax:     envDur("BOOKING_BACKOFF_MAX", 250*time.Millisecond),
        AttemptTimeout: envDur("BOOKING_ATTEMPT_TIMEOUT", 5*time.Second),
        AutoConfirm:    envBool("BOOKING_AUTO_CONFIRM", true),
        SeatLetters:    seatLetters(envStr("BOOKING_SEAT_LETTERS", "ABCDEF")),
        MaxRows:        envInt("BOOKING_MAX_ROWS", 60),
    }
    if c.MaxAttempts < 1 {
        c.MaxAttempts = 1
    }
    if c.BackoffBase < 0 {
        c.BackoffBase = 0
    }
    if c.BackoffMax < c.BackoffBase {
        c.BackoffMax = c.BackoffBase
    }
    if c.SeatLetters == "" {
        c.SeatLetters = "ABCDEF"
    }
    if c.MaxRows < 1 || c.MaxRows > 999 {
        c.MaxRows = 60
    }
    return c
}

// seatLetters upper-cases raw and keeps the first occurrence of each A-Z
// letter, the only characters a seat number may end in.
func seatLetters(raw string) string {
    var b strings.Builder
    for _, r := range strings.ToUpper(raw) {
        if r < 'A' || r > 'Z' || strings.ContainsRune(b.String(), r) {
            continue
        }
        b.WriteRune(r)
    }
    return b.String()
}
