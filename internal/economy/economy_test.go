package economy

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/talgya/starmarket/internal/galaxy"
)

const metals = galaxy.ResourceMetals

func TestBaseValueTiers(t *testing.T) {
	tests := []struct {
		res  galaxy.Resource
		want float64
	}{
		{galaxy.ResourceMetals, 10},
		{galaxy.ResourceOrganics, 10},
		{galaxy.ResourceVolatiles, 20},
		{galaxy.ResourceCrystals, 40},
		{galaxy.ResourceIsotopes, 80},
	}
	for _, tt := range tests {
		if got := BaseValue(tt.res); got != tt.want {
			t.Errorf("BaseValue(%s) = %v, want %v", tt.res, got, tt.want)
		}
	}
}

func TestLedgerAdjust(t *testing.T) {
	l := NewLedger(1, 2)

	if q, err := l.Adjust(1, metals, 50); err != nil || q != 50 {
		t.Fatalf("credit: got %v, %v", q, err)
	}
	if q, err := l.Adjust(1, metals, -20); err != nil || q != 30 {
		t.Fatalf("debit: got %v, %v", q, err)
	}

	_, err := l.Adjust(1, metals, -31)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("overdraw: want ErrInsufficientStock, got %v", err)
	}
	if got := l.Stockpile(1, metals); got != 30 {
		t.Errorf("failed adjust mutated row: %v", got)
	}

	if _, err := l.Adjust(99, metals, 1); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("unknown body: want ErrUnknownBody, got %v", err)
	}
}

func TestLedgerWithdrawClamps(t *testing.T) {
	l := NewLedger(7)
	if err := l.Set(7, metals, 600); err != nil {
		t.Fatal(err)
	}
	if got := l.Withdraw(7, metals, 1000); got != 600 {
		t.Errorf("Withdraw = %v, want 600", got)
	}
	if got := l.Stockpile(7, metals); got != 0 {
		t.Errorf("stock after withdraw = %v, want 0", got)
	}
	if got := l.Withdraw(7, metals, 10); got != 0 {
		t.Errorf("Withdraw from empty = %v", got)
	}
	if got := l.Withdraw(7, metals, -5); got != 0 {
		t.Errorf("negative withdraw = %v", got)
	}
}

func TestLedgerConcurrentDebitsNeverNegative(t *testing.T) {
	l := NewLedger(1)
	_ = l.Set(1, metals, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var taken float64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := l.Withdraw(1, metals, 7)
			mu.Lock()
			taken += got
			mu.Unlock()
		}()
	}
	wg.Wait()

	if taken != 100 {
		t.Errorf("total withdrawn = %v, want 100", taken)
	}
	if s := l.Stockpile(1, metals); s != 0 {
		t.Errorf("stock = %v, want 0", s)
	}
}

func TestLedgerEntriesOrdered(t *testing.T) {
	l := NewLedger(3, 1, 2)
	_ = l.Set(3, galaxy.ResourceIsotopes, 1)
	_ = l.Set(1, galaxy.ResourceCrystals, 2)
	_ = l.Set(1, metals, 3)

	got := l.Entries()
	want := []Entry{
		{Body: 1, Resource: metals, Quantity: 3},
		{Body: 1, Resource: galaxy.ResourceCrystals, Quantity: 2},
		{Body: 3, Resource: galaxy.ResourceIsotopes, Quantity: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("Entries len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entries[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestComputeDemand(t *testing.T) {
	rates := DefaultDemandRates()

	v := rates.ComputeDemand(galaxy.ClassTerrestrial, 10000, InfrastructureModifier(0))
	if math.Abs(v[metals]-100) > 1e-9 {
		t.Errorf("terrestrial metals demand = %v, want 100", v[metals])
	}

	if v := rates.ComputeDemand(galaxy.ClassTerrestrial, 0, 1); v.Total() != 0 {
		t.Errorf("zero population demand = %v, want 0", v)
	}

	v2 := rates.ComputeDemand(galaxy.ClassTerrestrial, 10000, InfrastructureModifier(5))
	if math.Abs(v2[metals]-150) > 1e-9 {
		t.Errorf("infra 5 metals demand = %v, want 150", v2[metals])
	}
}

func TestResolvePrice(t *testing.T) {
	p := DefaultPricingParams()
	tests := []struct {
		name      string
		stock     float64
		demand    float64
		wantPrice float64
		wantRatio float64
	}{
		{"empty stock clamps to ceiling", 0, 100, 40, 0},
		{"no demand floors", 500, 0, 2.5, math.Inf(1)},
		{"balanced", 300, 100, 10, 1},
		{"half buffered doubles", 150, 100, 20, 0.5},
		{"glut clamps to floor", 100000, 100, 2.5, 100000.0 / 300},
		{"scarce clamps to ceiling", 1, 100, 40, 1.0 / 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, price := p.Resolve(10, tt.stock, tt.demand)
			if math.Abs(price-tt.wantPrice) > 1e-9 {
				t.Errorf("price = %v, want %v", price, tt.wantPrice)
			}
			if math.IsInf(tt.wantRatio, 1) {
				if !math.IsInf(ratio, 1) {
					t.Errorf("ratio = %v, want +Inf", ratio)
				}
			} else if math.Abs(ratio-tt.wantRatio) > 1e-9 {
				t.Errorf("ratio = %v, want %v", ratio, tt.wantRatio)
			}
		})
	}
}

// Body X holds no metals against 100/month demand at base value 10.
func TestScenarioEmptyStockpilePrice(t *testing.T) {
	l := NewLedger(1)
	m := NewMarket(l, DefaultPricingParams())
	rates := DefaultDemandRates()
	m.SetDemand(1, rates.ComputeDemand(galaxy.ClassTerrestrial, 10000, 1))

	p := m.ComputePrice(1, metals)
	if p.Ratio != 0 {
		t.Errorf("ratio = %v, want 0", p.Ratio)
	}
	if p.Value != 40 {
		t.Errorf("price = %v, want 40", p.Value)
	}
}

func TestSnapshotClampAndUntradable(t *testing.T) {
	l := NewLedger(1, 2)
	m := NewMarket(l, DefaultPricingParams())
	m.SetDemand(1, Volumes{100, 50, 10, 5, 1})
	_ = l.Set(1, metals, 10)
	_ = l.Set(2, galaxy.ResourceCrystals, 1e6)

	snap := m.Snapshot(12)
	if snap.Tick != 12 {
		t.Errorf("Tick = %d", snap.Tick)
	}
	for _, p := range snap.All() {
		lo, hi := 0.25*p.BaseValue, 4*p.BaseValue
		if p.Value < lo || p.Value > hi {
			t.Errorf("%d/%s price %v outside [%v,%v]", p.Body, p.Resource, p.Value, lo, hi)
		}
	}

	if snap.Tradable(2, metals) {
		t.Error("pair with no stock or demand should be untradable")
	}
	if got := snap.Value(2, metals); got != BaseValue(metals) {
		t.Errorf("untradable price = %v, want base value", got)
	}
	if p, ok := snap.Price(2, galaxy.ResourceCrystals); !ok || p.Value != 10 {
		t.Errorf("stock without demand: %+v ok=%v, want floor 10", p, ok)
	}

	// Later ledger changes do not leak into a frozen snapshot.
	before := snap.Value(1, metals)
	_ = l.Set(1, metals, 0)
	if snap.Value(1, metals) != before {
		t.Error("snapshot changed after ledger mutation")
	}
}

func TestShortageTracker(t *testing.T) {
	tr := NewShortageTracker(3)
	var fired []int
	for tick := 1; tick <= 7; tick++ {
		if s, ok := tr.Observe(1, metals, 5, 100); ok {
			fired = append(fired, s.Ticks)
		}
	}
	if len(fired) != 2 || fired[0] != 3 || fired[1] != 6 {
		t.Errorf("fired at %v, want [3 6]", fired)
	}

	tr.Observe(1, metals, 500, 100)
	if tr.Streak(1, metals) != 0 {
		t.Error("streak should reset once stock covers demand")
	}
}
