package booking

import (
    "context"
    "fmt"
    "regexp"
    "strconv"
    "strings"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

var seatPattern = regexp.MustCompile(`^[1-9][0-9]{0,2}[A-Z]$`)

// SeatLayout describes the cabin grid.  Letters lists the seats of one
// row in order; MaxRows bounds the grid when a flight has no declared
// capacity.
type SeatLayout struct {
    Letters string
    MaxRows int
}

// DefaultSeatLayout is a single-aisle cabin with six seats per row.
var DefaultSeatLayout = SeatLayout{Letters: "ABCDEF", MaxRows: 60}

// SeatAllocator assigns seat numbers such as "12C".  Slots are numbered in
// row-major order; slot 0 is "1A".
type SeatAllocator struct {
    layout SeatLayout
}

// NewSeatAllocator returns an allocator for the given layout.  Letters
// must be distinct capitals A-Z and MaxRows must fit the three-digit row
// numbers a seat can carry.
func NewSeatAllocator(layout SeatLayout) *SeatAllocator {
    if layout.Letters == "" || layout.MaxRows <= 0 || layout.MaxRows > 999 {
        panic("invalid seat layout")
    }
    for i := 0; i < len(layout.Letters); i++ {
        c := layout.Letters[i]
        if c < 'A' || c > 'Z' || strings.IndexByte(layout.Letters[:i], c) >= 0 {
            panic(fmt.Sprintf("invalid seat letters %q", layout.Letters))
        }
    }
    return &SeatAllocator{layout: layout}
}

// NormalizeSeat trims and upper-cases a seat number supplied by a client.
func NormalizeSeat(seat string) string {
    return strings.ToUpper(strings.TrimSpace(seat))
}

// Allocate returns the seat for a new reservation on flight.  A requested
// seat is validated and checked against active reservations; otherwise the
// lowest free slot is chosen, so concurrent bookers converge on the same
// candidate and the loser is caught by the ledger's seat index.
func (a *SeatAllocator) Allocate(ctx context.Context, ledger SeatLedger, flight *model.Flight, requested string) (string, error) {
    var want string
    if requested != "" {
        want = NormalizeSeat(requested)
        if _, err := a.slot(flight, want); err != nil {
            return "", err
        }
    }
    held, err := ledger.ActiveSeatNumbers(ctx, flight.ID)
    if err != nil {
        return "", err
    }
    taken := make(map[string]struct{}, len(held))
    for _, s := range held {
        taken[s] = struct{}{}
    }
    if want != "" {
        if _, ok := taken[want]; ok {
            return "", repository.ErrSeatTaken
        }
        return want, nil
    }
    for i := 0; i < a.capacity(flight); i++ {
        seat := a.seatAt(i)
        if _, ok := taken[seat]; !ok {
            return seat, nil
        }
    }
    return "", repository.ErrNoSeatAvailable
}

func (a *SeatAllocator) capacity(flight *model.Flight) int {
    grid := a.layout.MaxRows * len(a.layout.Letters)
    if flight.SeatCapacity > 0 && int(flight.SeatCapacity) < grid {
        return int(flight.SeatCapacity)
    }
    return grid
}

func (a *SeatAllocator) seatAt(slot int) string {
    perRow := len(a.layout.Letters)
    return strconv.Itoa(slot/perRow+1) + string(a.layout.Letters[slot%perRow])
}

// slot converts a normalized seat number to its slot index, rejecting
// seats that are malformed or outside the flight's cabin.
func (a *SeatAllocator) slot(flight *model.Flight, seat string) (int, error) {
    if !seatPattern.MatchString(seat) {
        return 0, fmt.Errorf("%w: %q", repository.ErrInvalidSeat, seat)
    }
    row, _ := strconv.Atoi(seat[:len(seat)-1])
    col := strings.IndexByte(a.layout.Letters, seat[len(seat)-1])
    if col < 0 || row > a.layout.MaxRows {
        return 0, fmt.Errorf("%w: %q is not in the cabin", repository.ErrInvalidSeat, seat)
    }
    idx := (row-1)*len(a.layout.Letters) + col
    if idx >= a.capacity(flight) {
        return 0, fmt.Errorf("%w: %q exceeds flight capacity", repository.ErrInvalidSeat, seat)
    }
    return idx, nil
}
