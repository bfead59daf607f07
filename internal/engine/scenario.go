// Scenario files: hand-written galaxies as an alternative to generation.
package engine

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/talgya/starmarket/internal/agents"
	"github.com/talgya/starmarket/internal/galaxy"
	"github.com/talgya/starmarket/internal/treasury"
)

// Scenario is the YAML description of a starting state.
type Scenario struct {
	Name    string           `yaml:"name"`
	Systems []ScenarioSystem `yaml:"systems"`
	Bodies  []ScenarioBody   `yaml:"bodies"`
	Agents  []ScenarioAgent  `yaml:"agents"`
}

// ScenarioSystem is one star.
type ScenarioSystem struct {
	ID       galaxy.SystemID `yaml:"id"`
	Name     string          `yaml:"name"`
	Position galaxy.Point    `yaml:"position"`
}

// ScenarioBody is one body with its yields and opening stock.
type ScenarioBody struct {
	ID             galaxy.BodyID      `yaml:"id"`
	Name           string             `yaml:"name"`
	System         galaxy.SystemID    `yaml:"system"`
	Class          string             `yaml:"class"`
	Position       galaxy.Point       `yaml:"position"`
	Population     float64            `yaml:"population"`
	Infrastructure uint8              `yaml:"infrastructure"`
	Empire         galaxy.EmpireID    `yaml:"empire"`
	Shipyard       bool               `yaml:"shipyard"`
	Yields         map[string]float64 `yaml:"yields"` // resource -> grade
	Stock          map[string]float64 `yaml:"stock"`  // resource -> quantity
	Funds          *float64           `yaml:"funds"`  // overrides starting funds
}

// ScenarioAgent is a ship present at the start.
type ScenarioAgent struct {
	Kind  string        `yaml:"kind"` // "mining" or "freighter"
	Home  galaxy.BodyID `yaml:"home"`
	Owner string        `yaml:"owner"`
	Count int           `yaml:"count"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario from YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build creates a simulation from the scenario.
func (sc *Scenario) Build(p Params) (*Simulation, error) {
	systems := make([]*galaxy.StarSystem, 0, len(sc.Systems))
	for _, s := range sc.Systems {
		systems = append(systems, &galaxy.StarSystem{ID: s.ID, Name: s.Name, Position: s.Position})
	}

	var (
		bodies   []*galaxy.Body
		deposits []galaxy.Deposit
	)
	for _, sb := range sc.Bodies {
		class, err := galaxy.ParseBodyClass(sb.Class)
		if err != nil {
			return nil, fmt.Errorf("body %d: %w", sb.ID, err)
		}
		b := &galaxy.Body{
			ID:             sb.ID,
			Name:           sb.Name,
			System:         sb.System,
			Class:          class,
			Position:       sb.Position,
			Population:     sb.Population,
			Infrastructure: sb.Infrastructure,
			Empire:         sb.Empire,
			Shipyard:       sb.Shipyard,
		}
		for _, name := range sortedKeys(sb.Yields) {
			r, err := galaxy.ParseResource(name)
			if err != nil {
				return nil, fmt.Errorf("body %d: %w", sb.ID, err)
			}
			b.Yields = append(b.Yields, galaxy.ResourceYield{Resource: r, Grade: sb.Yields[name]})
		}
		for _, name := range sortedKeys(sb.Stock) {
			r, err := galaxy.ParseResource(name)
			if err != nil {
				return nil, fmt.Errorf("body %d: %w", sb.ID, err)
			}
			deposits = append(deposits, galaxy.Deposit{Body: sb.ID, Resource: r, Quantity: sb.Stock[name]})
		}
		bodies = append(bodies, b)
	}

	g, err := galaxy.New(systems, bodies)
	if err != nil {
		return nil, fmt.Errorf("scenario galaxy: %w", err)
	}
	sim, err := New(g, deposits, p)
	if err != nil {
		return nil, err
	}

	// Reopen accounts so explicit funds apply to any body.
	sim.Treasury.Restore(nil, nil)
	for _, sb := range sc.Bodies {
		funds := p.Treasury.StartingFunds
		if sb.Funds != nil {
			funds = *sb.Funds
		} else if sb.Population <= 0 {
			continue
		}
		sim.Treasury.Open(sb.ID, treasury.Money(funds))
	}

	for _, sa := range sc.Agents {
		if g.Body(sa.Home) == nil {
			return nil, fmt.Errorf("agent home %d: unknown body", sa.Home)
		}
		owner, err := agents.ParseOwnership(sa.Owner)
		if err != nil {
			return nil, err
		}
		n := sa.Count
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			switch sa.Kind {
			case "mining", "":
				err = sim.Agents.AddMining(sim.Spawner.SpawnMining(sa.Home, owner, p.miningSpec(), 0))
			case "freighter", "trade":
				err = sim.Agents.AddTrade(sim.Spawner.SpawnTrade(sa.Home, owner, p.freighterSpec(), 0))
			default:
				return nil, fmt.Errorf("unknown agent kind %q", sa.Kind)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return sim, nil
}
