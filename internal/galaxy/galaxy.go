package galaxy

import (
	"fmt"
	"sort"
)

// StarSystem groups the bodies orbiting one star.
type StarSystem struct {
	ID       SystemID `json:"id"`
	Name     string   `json:"name"`
	Position Point    `json:"position"`
	Bodies   []BodyID `json:"bodies"`
}

// Galaxy is the star-system registry. Bodies persist for the whole session,
// even when depopulated.
type Galaxy struct {
	Systems []*StarSystem // sorted by ID
	Bodies  []*Body       // sorted by ID

	bodyIndex   map[BodyID]*Body
	systemIndex map[SystemID]*StarSystem
}

// New builds a registry from systems and bodies. Body lists on each system
// are rebuilt from the bodies' System field.
func New(systems []*StarSystem, bodies []*Body) (*Galaxy, error) {
	g := &Galaxy{
		bodyIndex:   make(map[BodyID]*Body, len(bodies)),
		systemIndex: make(map[SystemID]*StarSystem, len(systems)),
	}

	for _, s := range systems {
		if _, dup := g.systemIndex[s.ID]; dup {
			return nil, fmt.Errorf("duplicate system id %d", s.ID)
		}
		s.Bodies = nil
		g.systemIndex[s.ID] = s
		g.Systems = append(g.Systems, s)
	}

	for _, b := range bodies {
		if _, dup := g.bodyIndex[b.ID]; dup {
			return nil, fmt.Errorf("duplicate body id %d", b.ID)
		}
		sys, ok := g.systemIndex[b.System]
		if !ok {
			return nil, fmt.Errorf("body %d references unknown system %d", b.ID, b.System)
		}
		sort.Slice(b.Yields, func(i, j int) bool { return b.Yields[i].Resource < b.Yields[j].Resource })
		g.bodyIndex[b.ID] = b
		g.Bodies = append(g.Bodies, b)
		sys.Bodies = append(sys.Bodies, b.ID)
	}

	sort.Slice(g.Systems, func(i, j int) bool { return g.Systems[i].ID < g.Systems[j].ID })
	sort.Slice(g.Bodies, func(i, j int) bool { return g.Bodies[i].ID < g.Bodies[j].ID })
	for _, s := range g.Systems {
		sort.Slice(s.Bodies, func(i, j int) bool { return s.Bodies[i] < s.Bodies[j] })
	}
	return g, nil
}

// Body returns the body with the given ID, or nil.
func (g *Galaxy) Body(id BodyID) *Body {
	return g.bodyIndex[id]
}

// System returns the star system with the given ID, or nil.
func (g *Galaxy) System(id SystemID) *StarSystem {
	return g.systemIndex[id]
}

// BodiesInSystem returns the bodies of a system in identity order.
func (g *Galaxy) BodiesInSystem(id SystemID) []*Body {
	sys := g.systemIndex[id]
	if sys == nil {
		return nil
	}
	out := make([]*Body, 0, len(sys.Bodies))
	for _, bid := range sys.Bodies {
		out = append(out, g.bodyIndex[bid])
	}
	return out
}

// Distance returns the straight-line distance between two bodies.
// Unknown bodies are treated as coincident.
func (g *Galaxy) Distance(a, b BodyID) float64 {
	ba, bb := g.bodyIndex[a], g.bodyIndex[b]
	if ba == nil || bb == nil || a == b {
		return 0
	}
	return ba.Position.DistanceTo(bb.Position)
}

// SameEmpire reports whether two bodies belong to the same empire.
// Two unclaimed bodies count as the same (no customs border between them).
func (g *Galaxy) SameEmpire(a, b BodyID) bool {
	ba, bb := g.bodyIndex[a], g.bodyIndex[b]
	if ba == nil || bb == nil {
		return true
	}
	return ba.Empire == bb.Empire
}

// InhabitedCount returns the number of populated bodies.
func (g *Galaxy) InhabitedCount() int {
	n := 0
	for _, b := range g.Bodies {
		if b.Inhabited() {
			n++
		}
	}
	return n
}

// String returns a summary of the galaxy.
func (g *Galaxy) String() string {
	return fmt.Sprintf("Galaxy(systems=%d, bodies=%d)", len(g.Systems), len(g.Bodies))
}
