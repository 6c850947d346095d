package booking

import (
    "context"
    "errors"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/flight-seat-reservation/internal/model"
    "github.com/iliyamo/flight-seat-reservation/internal/repository"
)

// memStore is an in-memory Store with two modes.  By default each unit of
// work holds the store lock, mutates a copy of the state and swaps it in on
// success, so units of work are serial and a failed one leaves nothing
// behind.
//
// With rowLocks set, units of work run concurrently the way InnoDB runs
// them: the store lock is only held inside a single read or write, writes
// lock the row they touch until the unit of work ends, and plain reads
// never block.  Anything a caller does between a read and a write can then
// race with other units of work, so only guarded writes keep the counters
// right.
type memStore struct {
    mu    sync.Mutex
    state memState
    txs   int

    // insertErrs are returned, in order, by the next Insert calls.
    insertErrs []error

    rowLocks bool
    released *sync.Cond
    owners   map[rowKey]*lockingTx
    pending  map[uint64]*lockingTx // uncommitted inserts by reservation ID
}

type rowKey struct {
    table string
    id    uint64
}

type memState struct {
    flights      map[uint64]model.Flight
    fares        map[uint64]model.FarePrice
    reservations map[uint64]model.Reservation
    nextID       uint64
}

func newMemStore() *memStore {
    m := &memStore{
        state: memState{
            flights:      map[uint64]model.Flight{},
            fares:        map[uint64]model.FarePrice{},
            reservations: map[uint64]model.Reservation{},
            nextID:       1,
        },
        owners:  map[rowKey]*lockingTx{},
        pending: map[uint64]*lockingTx{},
    }
    m.released = sync.NewCond(&m.mu)
    return m
}

func newRowLockingMemStore() *memStore {
    m := newMemStore()
    m.rowLocks = true
    return m
}

func (s memState) clone() memState {
    out := memState{
        flights:      make(map[uint64]model.Flight, len(s.flights)),
        fares:        make(map[uint64]model.FarePrice, len(s.fares)),
        reservations: make(map[uint64]model.Reservation, len(s.reservations)),
        nextID:       s.nextID,
    }
    for k, v := range s.flights {
        out.flights[k] = v
    }
    for k, v := range s.fares {
        out.fares[k] = v
    }
    for k, v := range s.reservations {
        out.reservations[k] = v
    }
    return out
}

func (m *memStore) addFlight(f model.Flight) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.state.flights[f.ID] = f
}

func (m *memStore) addFare(f model.FarePrice) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.state.fares[f.ID] = f
}

func (m *memStore) failInserts(errs ...error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.insertErrs = append(m.insertErrs, errs...)
}

func (m *memStore) fare(id uint64) model.FarePrice {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.state.fares[id]
}

func (m *memStore) reservations() []model.Reservation {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := make([]model.Reservation, 0, len(m.state.reservations))
    for _, r := range m.state.reservations {
        out = append(out, r)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
    return out
}

func (m *memStore) activeOnFare(fareID uint64) int {
    n := 0
    for _, r := range m.reservations() {
        if r.FarePriceID == fareID && r.Status.IsActive() {
            n++
        }
    }
    return n
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
    if m.rowLocks {
        return m.withinLockingTx(ctx, fn)
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    m.txs++
    if err := ctx.Err(); err != nil {
        return repository.Classify(err)
    }
    work := m.state.clone()
    if err := fn(ctx, &memTx{store: m, st: &work}); err != nil {
        return err
    }
    m.state = work
    return nil
}

type memTx struct {
    store *memStore
    st    *memState
}

func (t *memTx) Flights() FlightReader     { return t }
func (t *memTx) Inventory() FareInventory  { return t }
func (t *memTx) Ledger() ReservationLedger { return t }

func (t *memTx) Flight(_ context.Context, id uint64) (*model.Flight, error) {
    f, ok := t.st.flights[id]
    if !ok {
        return nil, repository.ErrFlightNotFound
    }
    return &f, nil
}

func (t *memTx) Fare(_ context.Context, id uint64) (*model.FarePrice, error) {
    f, ok := t.st.fares[id]
    if !ok {
        return nil, repository.ErrFareNotFound
    }
    return &f, nil
}

func (t *memTx) TryReserveSeat(_ context.Context, id uint64) error {
    f, ok := t.st.fares[id]
    if !ok {
        return repository.ErrFareNotFound
    }
    if f.RemainingSeats == 0 {
        return repository.ErrInsufficientSeats
    }
    f.RemainingSeats--
    t.st.fares[id] = f
    return nil
}

func (t *memTx) ReleaseSeat(_ context.Context, id uint64) error {
    f, ok := t.st.fares[id]
    if !ok {
        return repository.ErrFareNotFound
    }
    if f.RemainingSeats >= f.SeatsAllotted {
        return repository.ErrInventoryFull
    }
    f.RemainingSeats++
    t.st.fares[id] = f
    return nil
}

func (t *memTx) Insert(_ context.Context, res *model.Reservation) error {
    if len(t.store.insertErrs) > 0 {
        err := t.store.insertErrs[0]
        t.store.insertErrs = t.store.insertErrs[1:]
        return err
    }
    for _, r := range t.st.reservations {
        if !r.Status.IsActive() {
            continue
        }
        if r.UserID == res.UserID && r.FlightID == res.FlightID {
            return repository.Transient(errors.New("duplicate active reservation"))
        }
        if r.FlightID == res.FlightID && r.SeatNumber == res.SeatNumber {
            return repository.Transient(errors.New("duplicate active seat"))
        }
    }
    res.ID = t.st.nextID
    t.st.nextID++
    t.st.reservations[res.ID] = *res
    return nil
}

func (t *memTx) GetActiveForUserAndFlight(_ context.Context, userID, flightID uint64) (*model.Reservation, error) {
    for _, r := range t.st.reservations {
        if r.UserID == userID && r.FlightID == flightID && r.Status.IsActive() {
            return &r, nil
        }
    }
    return nil, nil
}

func (t *memTx) GetByIDForUpdate(_ context.Context, id uint64) (*model.Reservation, error) {
    r, ok := t.st.reservations[id]
    if !ok {
        return nil, repository.ErrReservationNotFound
    }
    return &r, nil
}

func (t *memTx) UpdateStatus(_ context.Context, id uint64, from, to model.ReservationStatus, at time.Time) error {
    r, ok := t.st.reservations[id]
    if !ok || r.Status != from {
        return repository.ErrConflict
    }
    r.Status = to
    if to == model.StatusCancelled {
        r.CancelledAt = &at
    }
    t.st.reservations[id] = r
    return nil
}

func (t *memTx) ActiveSeatNumbers(_ context.Context, flightID uint64) ([]string, error) {
    seats := make([]string, 0)
    for _, r := range t.st.reservations {
        if r.FlightID == flightID && r.Status.IsActive() {
            seats = append(seats, r.SeatNumber)
        }
    }
    return seats, nil
}

func (m *memStore) withinLockingTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
    m.mu.Lock()
    m.txs++
    m.mu.Unlock()
    if err := ctx.Err(); err != nil {
        return repository.Classify(err)
    }

    tx := &lockingTx{store: m}
    committed := false
    defer func() { m.finish(tx, committed) }()
    if err := fn(ctx, tx); err != nil {
        return err
    }
    committed = true
    return nil
}

// finish undoes the writes of a failed unit of work, publishes its inserts
// and releases its row locks.
func (m *memStore) finish(tx *lockingTx, committed bool) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if !committed {
        for i := len(tx.undo) - 1; i >= 0; i-- {
            tx.undo[i]()
        }
    }
    for _, id := range tx.inserted {
        delete(m.pending, id)
    }
    for _, k := range tx.held {
        delete(m.owners, k)
    }
    m.released.Broadcast()
}

// lockingTx writes in place under row locks and keeps an undo log.  Its
// methods take the store lock for one step at a time.
type lockingTx struct {
    store    *memStore
    held     []rowKey
    inserted []uint64
    undo     []func()
}

func (t *lockingTx) Flights() FlightReader     { return t }
func (t *lockingTx) Inventory() FareInventory  { return t }
func (t *lockingTx) Ledger() ReservationLedger { return t }

// lock blocks until t owns the row.  The store lock must be held.
func (t *lockingTx) lock(k rowKey) {
    m := t.store
    for {
        owner, ok := m.owners[k]
        if !ok {
            m.owners[k] = t
            t.held = append(t.held, k)
            return
        }
        if owner == t {
            return
        }
        m.released.Wait()
    }
}

// visible hides reservations inserted by other units of work still in
// flight.
func (t *lockingTx) visible(id uint64) bool {
    owner, ok := t.store.pending[id]
    return !ok || owner == t
}

func (t *lockingTx) Flight(_ context.Context, id uint64) (*model.Flight, error) {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    f, ok := m.state.flights[id]
    if !ok {
        return nil, repository.ErrFlightNotFound
    }
    return &f, nil
}

func (t *lockingTx) Fare(_ context.Context, id uint64) (*model.FarePrice, error) {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    f, ok := m.state.fares[id]
    if !ok {
        return nil, repository.ErrFareNotFound
    }
    return &f, nil
}

func (t *lockingTx) TryReserveSeat(_ context.Context, id uint64) error {
    return t.writeFare(id, func(f *model.FarePrice) error {
        if f.RemainingSeats == 0 {
            return repository.ErrInsufficientSeats
        }
        f.RemainingSeats--
        return nil
    })
}

func (t *lockingTx) ReleaseSeat(_ context.Context, id uint64) error {
    return t.writeFare(id, func(f *model.FarePrice) error {
        if f.RemainingSeats >= f.SeatsAllotted {
            return repository.ErrInventoryFull
        }
        f.RemainingSeats++
        return nil
    })
}

// setRemaining overwrites the counter without a guard.
func (t *lockingTx) setRemaining(id uint64, remaining uint32) error {
    return t.writeFare(id, func(f *model.FarePrice) error {
        f.RemainingSeats = remaining
        return nil
    })
}

// writeFare locks the fare row and applies update to its current value.
func (t *lockingTx) writeFare(id uint64, update func(f *model.FarePrice) error) error {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.state.fares[id]; !ok {
        return repository.ErrFareNotFound
    }
    t.lock(rowKey{"fare_prices", id})
    prev := m.state.fares[id]
    f := prev
    if err := update(&f); err != nil {
        return err
    }
    m.state.fares[id] = f
    t.undo = append(t.undo, func() { m.state.fares[id] = prev })
    return nil
}

// Insert enforces the unique indexes against every active row, including
// rows other units of work have not committed yet.
func (t *lockingTx) Insert(_ context.Context, res *model.Reservation) error {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    if len(m.insertErrs) > 0 {
        err := m.insertErrs[0]
        m.insertErrs = m.insertErrs[1:]
        return err
    }
    for _, r := range m.state.reservations {
        if !r.Status.IsActive() {
            continue
        }
        if r.UserID == res.UserID && r.FlightID == res.FlightID {
            return repository.Transient(errors.New("duplicate active reservation"))
        }
        if r.FlightID == res.FlightID && r.SeatNumber == res.SeatNumber {
            return repository.Transient(errors.New("duplicate active seat"))
        }
    }
    id := m.state.nextID
    m.state.nextID++
    res.ID = id
    m.state.reservations[id] = *res
    m.pending[id] = t
    t.inserted = append(t.inserted, id)
    t.lock(rowKey{"reservations", id})
    t.undo = append(t.undo, func() { delete(m.state.reservations, id) })
    return nil
}

func (t *lockingTx) GetActiveForUserAndFlight(_ context.Context, userID, flightID uint64) (*model.Reservation, error) {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    for id, r := range m.state.reservations {
        if t.visible(id) && r.UserID == userID && r.FlightID == flightID && r.Status.IsActive() {
            return &r, nil
        }
    }
    return nil, nil
}

func (t *lockingTx) GetByIDForUpdate(_ context.Context, id uint64) (*model.Reservation, error) {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.state.reservations[id]; !ok || !t.visible(id) {
        return nil, repository.ErrReservationNotFound
    }
    t.lock(rowKey{"reservations", id})
    r := m.state.reservations[id]
    return &r, nil
}

func (t *lockingTx) UpdateStatus(_ context.Context, id uint64, from, to model.ReservationStatus, at time.Time) error {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.state.reservations[id]; !ok || !t.visible(id) {
        return repository.ErrConflict
    }
    t.lock(rowKey{"reservations", id})
    prev := m.state.reservations[id]
    if prev.Status != from {
        return repository.ErrConflict
    }
    r := prev
    r.Status = to
    if to == model.StatusCancelled {
        r.CancelledAt = &at
    }
    m.state.reservations[id] = r
    t.undo = append(t.undo, func() { m.state.reservations[id] = prev })
    return nil
}

func (t *lockingTx) ActiveSeatNumbers(_ context.Context, flightID uint64) ([]string, error) {
    m := t.store
    m.mu.Lock()
    defer m.mu.Unlock()
    seats := make([]string, 0)
    for id, r := range m.state.reservations {
        if t.visible(id) && r.FlightID == flightID && r.Status.IsActive() {
            seats = append(seats, r.SeatNumber)
        }
    }
    return seats, nil
}
