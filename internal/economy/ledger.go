package economy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/talgya/starmarket/internal/galaxy"
)

var (
	// ErrInsufficientStock is returned when a debit would drive a stockpile
	// below zero. Callers clamp their request; it is never fatal.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownBody is returned for ledger operations on an unregistered body.
	ErrUnknownBody = errors.New("unknown body")
)

// Stock holds the quantity of every resource at one body.
type Stock [galaxy.NumResources]float64

// Entry is one (body, resource) stockpile, used for snapshots and saves.
type Entry struct {
	Body     galaxy.BodyID   `json:"body_id"`
	Resource galaxy.Resource `json:"resource"`
	Quantity float64         `json:"quantity"`
}

// Ledger is the per-body stockpile store. Rows live in an arena indexed by
// body ID; every mutation is applied atomically under the ledger lock.
type Ledger struct {
	mu    sync.RWMutex
	rows  []Stock
	ids   []galaxy.BodyID
	index map[galaxy.BodyID]int
}

// NewLedger creates a ledger with an empty row for each body.
func NewLedger(bodies ...galaxy.BodyID) *Ledger {
	l := &Ledger{index: make(map[galaxy.BodyID]int, len(bodies))}
	for _, id := range bodies {
		l.register(id)
	}
	return l
}

// Register adds an empty row for a body. Registering twice is a no-op.
func (l *Ledger) Register(id galaxy.BodyID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.register(id)
}

func (l *Ledger) register(id galaxy.BodyID) {
	if _, ok := l.index[id]; ok {
		return
	}
	l.index[id] = len(l.rows)
	l.rows = append(l.rows, Stock{})
	l.ids = append(l.ids, id)
}

// Stockpile returns the quantity of a resource at a body. Unknown bodies hold nothing.
func (l *Ledger) Stockpile(id galaxy.BodyID, r galaxy.Resource) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok || int(r) >= galaxy.NumResources {
		return 0
	}
	return l.rows[i][r]
}

// Row returns a copy of every stockpile at a body.
func (l *Ledger) Row(id galaxy.BodyID) (Stock, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return Stock{}, false
	}
	return l.rows[i], true
}

// Adjust applies delta to a stockpile and returns the new quantity. A debit
// that would leave the stockpile negative fails with ErrInsufficientStock and
// leaves the row untouched.
func (l *Ledger) Adjust(id galaxy.BodyID, r galaxy.Resource, delta float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok || int(r) >= galaxy.NumResources {
		return 0, fmt.Errorf("adjust body %d: %w", id, ErrUnknownBody)
	}
	cur := l.rows[i][r]
	next := cur + delta
	if next < 0 {
		return cur, fmt.Errorf("adjust %s at body %d by %.2f (have %.2f): %w",
			r, id, delta, cur, ErrInsufficientStock)
	}
	l.rows[i][r] = next
	return next, nil
}

// Withdraw removes up to want units and returns the amount actually taken.
func (l *Ledger) Withdraw(id galaxy.BodyID, r galaxy.Resource, want float64) float64 {
	if want <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok || int(r) >= galaxy.NumResources {
		return 0
	}
	take := want
	if have := l.rows[i][r]; take > have {
		take = have
	}
	l.rows[i][r] -= take
	return take
}

// Deposit credits qty units. Non-positive quantities are ignored.
func (l *Ledger) Deposit(id galaxy.BodyID, r galaxy.Resource, qty float64) error {
	if qty <= 0 {
		return nil
	}
	_, err := l.Adjust(id, r, qty)
	return err
}

// Set overwrites a stockpile. Used by loaders and scenario setup.
func (l *Ledger) Set(id galaxy.BodyID, r galaxy.Resource, qty float64) error {
	if qty < 0 {
		return fmt.Errorf("set %s at body %d to %.2f: %w", r, id, qty, ErrInsufficientStock)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok || int(r) >= galaxy.NumResources {
		return fmt.Errorf("set body %d: %w", id, ErrUnknownBody)
	}
	l.rows[i][r] = qty
	return nil
}

// Bodies returns the registered body IDs in ascending order.
func (l *Ledger) Bodies() []galaxy.BodyID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := append([]galaxy.BodyID(nil), l.ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entries returns every non-zero stockpile, ordered by body then resource.
func (l *Ledger) Entries() []Entry {
	var out []Entry
	for _, id := range l.Bodies() {
		row, _ := l.Row(id)
		for r, q := range row {
			if q != 0 {
				out = append(out, Entry{Body: id, Resource: galaxy.Resource(r), Quantity: q})
			}
		}
	}
	return out
}

// Total returns the galaxy-wide stockpile of a resource.
func (l *Ledger) Total(r galaxy.Resource) float64 {
	var sum float64
	for _, id := range l.Bodies() {
		sum += l.Stockpile(id, r)
	}
	return sum
}
