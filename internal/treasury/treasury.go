// Package treasury aggregates tax and tariff income and scheduled expenses
// into per-body accounts. Postings are append-only within a tick and summed
// into balances when the tick closes.
package treasury

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/talgya/starmarket/internal/galaxy"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds available funds.
	// Commissioning simply does not happen that tick.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidPosting is returned for postings with the wrong sign or kind.
	ErrInvalidPosting = errors.New("invalid posting")
)

// Kind is the category of a treasury posting.
type Kind uint8

const (
	KindCorporateTax     Kind = iota // rate applied to civilian agent profit
	KindTariff                       // rate applied to cross-empire sales
	KindStateFleetProfit             // 100% of state-fleet profit
	KindSubsidy                      // scheduled expense
	KindConstruction                 // new ships
	KindUpkeep                       // state-fleet running costs
	KindConsumerSpending             // population paying base value for what it consumes
)

// NumKinds is the number of posting kinds.
const NumKinds = 7

var kindNames = [NumKinds]string{"corporate_tax", "tariff", "state_fleet_profit", "subsidy", "construction", "upkeep", "consumer_spending"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown posting kind %q", s)
}

// Income reports whether the kind adds to the balance.
func (k Kind) Income() bool {
	return k <= KindStateFleetProfit || k == KindConsumerSpending
}

// Posting is one committed or pending transaction.
type Posting struct {
	Seq    uint64          `json:"seq" db:"seq"`
	Tick   uint64          `json:"tick" db:"tick"`
	Kind   Kind            `json:"kind" db:"kind"`
	Amount decimal.Decimal `json:"amount" db:"amount"` // positive income, negative expense
	Body   galaxy.BodyID   `json:"body_id" db:"body_id"`
}

// Account is the treasury of one body.
type Account struct {
	Body    galaxy.BodyID            `json:"body_id"`
	Balance decimal.Decimal          `json:"balance"`
	Income  map[Kind]decimal.Decimal `json:"income"`  // this period
	Expense map[Kind]decimal.Decimal `json:"expense"` // this period, as positive amounts
}

func newAccount(body galaxy.BodyID) *Account {
	return &Account{
		Body:    body,
		Income:  make(map[Kind]decimal.Decimal),
		Expense: make(map[Kind]decimal.Decimal),
	}
}

func (a *Account) clone() Account {
	c := Account{Body: a.Body, Balance: a.Balance,
		Income: make(map[Kind]decimal.Decimal, len(a.Income)), Expense: make(map[Kind]decimal.Decimal, len(a.Expense))}
	for k, v := range a.Income {
		c.Income[k] = v
	}
	for k, v := range a.Expense {
		c.Expense[k] = v
	}
	return c
}

// Summary reports one closed tick.
type Summary struct {
	Tick     uint64
	Postings int
	Income   decimal.Decimal
	Expense  decimal.Decimal // positive
}

// Ledger is the treasury of every body.
type Ledger struct {
	mu       sync.Mutex
	accounts map[galaxy.BodyID]*Account
	pending  []Posting
	journal  []Posting // committed postings of the current period
	tick     uint64
	seq      uint64
}

// New creates an empty treasury.
func New() *Ledger {
	return &Ledger{accounts: make(map[galaxy.BodyID]*Account)}
}

// Money converts a float amount to a decimal rounded to 1/10000 credit.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}

func (l *Ledger) account(body galaxy.BodyID) *Account {
	a, ok := l.accounts[body]
	if !ok {
		a = newAccount(body)
		l.accounts[body] = a
	}
	return a
}

// Open creates an account with a starting balance. Opening an existing
// account adds nothing.
func (l *Ledger) Open(body galaxy.BodyID, funds decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[body]; ok {
		return
	}
	a := newAccount(body)
	a.Balance = funds
	l.accounts[body] = a
}

// BeginTick stamps subsequent postings with tick.
func (l *Ledger) BeginTick(tick uint64) {
	l.mu.Lock()
	l.tick = tick
	l.mu.Unlock()
}

// Post appends a transaction for the current tick. Income kinds take a
// positive amount and expense kinds a negative one. Zero is a no-op.
func (l *Ledger) Post(kind Kind, amount decimal.Decimal, body galaxy.BodyID) error {
	if int(kind) >= NumKinds {
		return fmt.Errorf("post %s: %w", kind, ErrInvalidPosting)
	}
	if amount.IsZero() {
		return nil
	}
	if kind.Income() != amount.IsPositive() {
		return fmt.Errorf("post %s of %s at body %d: %w", kind, amount, body, ErrInvalidPosting)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(kind, amount, body)
	return nil
}

func (l *Ledger) append(kind Kind, amount decimal.Decimal, body galaxy.BodyID) {
	l.seq++
	l.pending = append(l.pending, Posting{Seq: l.seq, Tick: l.tick, Kind: kind, Amount: amount, Body: body})
	l.account(body)
}

// available is balance plus everything pending for a body. Caller holds mu.
func (l *Ledger) available(body galaxy.BodyID) decimal.Decimal {
	avail := l.account(body).Balance
	for _, p := range l.pending {
		if p.Body == body {
			avail = avail.Add(p.Amount)
		}
	}
	return avail
}

// Available returns the funds a body can spend this tick.
func (l *Ledger) Available(body galaxy.BodyID) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available(body)
}

// Debit checks affordability and posts an expense in one step, so two
// debits against the same body in one tick can never overspend it.
func (l *Ledger) Debit(kind Kind, cost decimal.Decimal, body galaxy.BodyID) error {
	if kind.Income() || !cost.IsPositive() {
		return fmt.Errorf("debit %s of %s: %w", kind, cost, ErrInvalidPosting)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if avail := l.available(body); avail.LessThan(cost) {
		return fmt.Errorf("debit %s at body %d (available %s): %w", cost, body, avail.StringFixed(2), ErrInsufficientFunds)
	}
	l.append(kind, cost.Neg(), body)
	return nil
}

// CloseTick sums pending postings into balances and the period journal.
func (l *Ledger) CloseTick() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{Tick: l.tick, Postings: len(l.pending)}
	for _, p := range l.pending {
		a := l.account(p.Body)
		a.Balance = a.Balance.Add(p.Amount)
		if p.Kind.Income() {
			a.Income[p.Kind] = a.Income[p.Kind].Add(p.Amount)
			s.Income = s.Income.Add(p.Amount)
		} else {
			a.Expense[p.Kind] = a.Expense[p.Kind].Sub(p.Amount)
			s.Expense = s.Expense.Sub(p.Amount)
		}
	}
	l.journal = append(l.journal, l.pending...)
	l.pending = nil
	return s
}

// ResetPeriod clears itemized income and expense and the period journal.
// Balances are untouched.
func (l *Ledger) ResetPeriod() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.accounts {
		a.Income = make(map[Kind]decimal.Decimal)
		a.Expense = make(map[Kind]decimal.Decimal)
	}
	l.journal = nil
}

// Balance returns the committed balance of a body.
func (l *Ledger) Balance(body galaxy.BodyID) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[body]; ok {
		return a.Balance
	}
	return decimal.Zero
}

// Accounts returns copies of every account in body order.
func (l *Ledger) Accounts() []Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Body < out[j].Body })
	return out
}

// Journal returns the committed postings of the current period.
func (l *Ledger) Journal() []Posting {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Posting(nil), l.journal...)
}

// Pending returns the number of uncommitted postings.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Total returns the sum of all balances.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Accounts() {
		total = total.Add(a.Balance)
	}
	return total
}

// Restore replaces the treasury state (used when loading from DB).
func (l *Ledger) Restore(accounts []Account, journal []Posting) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[galaxy.BodyID]*Account, len(accounts))
	for i := range accounts {
		a := accounts[i].clone()
		l.accounts[a.Body] = &a
	}
	l.journal = append([]Posting(nil), journal...)
	l.pending = nil
	l.seq = 0
	for _, p := range journal {
		if p.Seq > l.seq {
			l.seq = p.Seq
		}
	}
}

// Seq returns the last issued posting sequence number.
func (l *Ledger) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// SetSeq restores the posting sequence counter.
func (l *Ledger) SetSeq(seq uint64) {
	l.mu.Lock()
	if seq > l.seq {
		l.seq = seq
	}
	l.mu.Unlock()
}
