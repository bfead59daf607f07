package economy

import (
	"sort"

	"github.com/talgya/starmarket/internal/galaxy"
)

// Shortage is the sustained-shortage signal consumed by the population and
// happiness subsystem. This package only emits it.
type Shortage struct {
	Body     galaxy.BodyID   `json:"body_id"`
	Resource galaxy.Resource `json:"resource"`
	Ticks    int             `json:"ticks"` // consecutive ticks in shortage
	Stock    float64         `json:"stock"`
	Demand   float64         `json:"demand"`
}

type shortageKey struct {
	body galaxy.BodyID
	res  galaxy.Resource
}

// ShortageTracker counts consecutive ticks where stockpile is below running
// demand and reports every Threshold-th tick of a streak.
type ShortageTracker struct {
	Threshold int
	streaks   map[shortageKey]int
}

// NewShortageTracker creates a tracker that fires after n consecutive ticks.
func NewShortageTracker(n int) *ShortageTracker {
	if n < 1 {
		n = 1
	}
	return &ShortageTracker{Threshold: n, streaks: make(map[shortageKey]int)}
}

// Observe records one tick for a (body, resource) pair. It returns a signal
// when the streak reaches a multiple of the threshold.
func (t *ShortageTracker) Observe(body galaxy.BodyID, r galaxy.Resource, stock, demand float64) (Shortage, bool) {
	k := shortageKey{body, r}
	if demand <= 0 || stock >= demand {
		delete(t.streaks, k)
		return Shortage{}, false
	}
	t.streaks[k]++
	n := t.streaks[k]
	if n%t.Threshold != 0 {
		return Shortage{}, false
	}
	return Shortage{Body: body, Resource: r, Ticks: n, Stock: stock, Demand: demand}, true
}

// Streak returns the current consecutive shortage count for a pair.
func (t *ShortageTracker) Streak(body galaxy.BodyID, r galaxy.Resource) int {
	return t.streaks[shortageKey{body, r}]
}

// Active returns every pair currently in a shortage streak, ordered by body then resource.
func (t *ShortageTracker) Active() []Shortage {
	out := make([]Shortage, 0, len(t.streaks))
	for k, n := range t.streaks {
		out = append(out, Shortage{Body: k.body, Resource: k.res, Ticks: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Body != out[j].Body {
			return out[i].Body < out[j].Body
		}
		return out[i].Resource < out[j].Resource
	})
	return out
}
