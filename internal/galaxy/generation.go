// Galaxy generation using seeded simplex noise.
// Population, yield grades and deposit richness are sampled from independent
// noise fields so neighbouring systems look related.
package galaxy

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds galaxy generation parameters.
type GenConfig struct {
	Seed               int64   // Random seed (0 = random)
	Systems            int     // Number of star systems
	MaxBodiesPerSystem int     // Upper bound on bodies orbiting one star
	ResourcesPerBody   int     // Exactly this many resources per body (N)
	Radius             float64 // Spread of stars around the core
	Empires            int     // Number of empires claiming systems
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:               0,
		Systems:            24,
		MaxBodiesPerSystem: 6,
		ResourcesPerBody:   3,
		Radius:             600,
		Empires:            3,
	}
}

// SmallTestConfig returns a tiny galaxy for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Seed:               42,
		Systems:            4,
		MaxBodiesPerSystem: 4,
		ResourcesPerBody:   3,
		Radius:             200,
		Empires:            2,
	}
}

// Deposit is an initial stockpile produced by generation.
type Deposit struct {
	Body     BodyID
	Resource Resource
	Quantity float64
}

// classPools lists which resources each body class can carry, most likely first.
var classPools = [NumClasses][]Resource{
	ClassTerrestrial: {ResourceMetals, ResourceOrganics, ResourceCrystals, ResourceVolatiles},
	ClassOceanic:     {ResourceOrganics, ResourceVolatiles, ResourceMetals, ResourceIsotopes},
	ClassBarren:      {ResourceMetals, ResourceCrystals, ResourceIsotopes, ResourceVolatiles},
	ClassGasGiant:    {ResourceVolatiles, ResourceIsotopes, ResourceOrganics, ResourceCrystals},
	ClassAsteroid:    {ResourceMetals, ResourceCrystals, ResourceIsotopes, ResourceVolatiles},
}

// Generate creates a complete galaxy and the deposits it starts with.
// The same seed always yields the same galaxy.
func Generate(cfg GenConfig) (*Galaxy, []Deposit, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.Systems <= 0 || cfg.MaxBodiesPerSystem <= 0 {
		return nil, nil, fmt.Errorf("galaxy needs at least one system and one body per system")
	}
	n := cfg.ResourcesPerBody
	if n <= 0 || n > NumResources {
		return nil, nil, fmt.Errorf("resources per body must be in [1,%d], got %d", NumResources, n)
	}

	rng := rand.New(rand.NewSource(seed))
	popNoise := opensimplex.NewNormalized(seed)
	gradeNoise := opensimplex.NewNormalized(seed + 1)
	richNoise := opensimplex.NewNormalized(seed + 2)

	var (
		systems  []*StarSystem
		bodies   []*Body
		deposits []Deposit
		nextBody BodyID = 1
	)

	for i := 0; i < cfg.Systems; i++ {
		angle := rng.Float64() * 2 * math.Pi
		// Linear radius sample: denser towards the core.
		r := cfg.Radius * rng.Float64()
		sys := &StarSystem{
			ID:       SystemID(i + 1),
			Name:     starName(rng),
			Position: Point{X: math.Round(r * math.Cos(angle)), Y: math.Round(r * math.Sin(angle))},
		}
		systems = append(systems, sys)

		empire := Unclaimed
		if cfg.Empires > 0 && r < cfg.Radius*0.85 {
			empire = EmpireID(1 + int(angle/(2*math.Pi)*float64(cfg.Empires))%cfg.Empires)
		}

		count := 1 + rng.Intn(cfg.MaxBodiesPerSystem)
		orbit := 4 + rng.Float64()*4
		for j := 0; j < count; j++ {
			orbit += 5 + rng.Float64()*5
			theta := rng.Float64() * 2 * math.Pi
			pos := Point{
				X: sys.Position.X + orbit*math.Cos(theta),
				Y: sys.Position.Y + orbit*math.Sin(theta),
			}

			class := pickClass(rng, j, empire != Unclaimed)
			pop := populationAt(popNoise, pos, class)
			if j == 0 && empire != Unclaimed && pop == 0 {
				pop = 2000 // every claimed system has a capital
			}

			body := &Body{
				ID:       nextBody,
				Name:     fmt.Sprintf("%s-%d", sys.Name, j+1),
				System:   sys.ID,
				Class:    class,
				Position: pos,
				Empire:   empire,
			}
			nextBody++

			if pop > 0 {
				body.Population = pop
				infra := int(pop / 2000)
				if infra > 10 {
					infra = 10
				}
				body.Infrastructure = uint8(infra)
				body.Shipyard = infra >= 1
			}

			body.Yields = pickYields(rng, gradeNoise, pos, class, n)

			for _, y := range body.Yields {
				rich := richNoise.Eval2(pos.X*0.02, pos.Y*0.02)
				qty := y.Grade * 400 * (0.5 + rich)
				if body.Inhabited() {
					qty = y.Grade * 200
				}
				deposits = append(deposits, Deposit{Body: body.ID, Resource: y.Resource, Quantity: math.Round(qty)})
			}

			bodies = append(bodies, body)
		}
	}

	g, err := New(systems, bodies)
	if err != nil {
		return nil, nil, err
	}
	return g, deposits, nil
}

func pickClass(rng *rand.Rand, index int, claimed bool) BodyClass {
	if index == 0 && claimed {
		return ClassTerrestrial
	}
	r := rng.Float64()
	switch {
	case r < 0.25:
		return ClassTerrestrial
	case r < 0.35:
		return ClassOceanic
	case r < 0.60:
		return ClassBarren
	case r < 0.80:
		return ClassGasGiant
	default:
		return ClassAsteroid
	}
}

// populationAt samples the population field. Gas giants and asteroids are
// never populated.
func populationAt(noise opensimplex.Noise, pos Point, class BodyClass) float64 {
	v := noise.Eval2(pos.X*0.01, pos.Y*0.01)
	switch class {
	case ClassTerrestrial, ClassOceanic:
		if v > 0.45 {
			return math.Round((v-0.45)/0.55*20000 + 1000)
		}
	case ClassBarren:
		if v > 0.8 {
			return math.Round((v-0.8)/0.2*1500 + 500)
		}
	}
	return 0
}

func pickYields(rng *rand.Rand, noise opensimplex.Noise, pos Point, class BodyClass, n int) []ResourceYield {
	pool := append([]Resource(nil), classPools[class]...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	// Top up from the full list when the class pool is smaller than N.
	for _, r := range AllResources() {
		if len(pool) >= n {
			break
		}
		if !containsResource(pool, r) {
			pool = append(pool, r)
		}
	}

	out := make([]ResourceYield, 0, n)
	for i, r := range pool[:n] {
		g := noise.Eval2(pos.X*0.02+float64(i)*7, pos.Y*0.02)
		out = append(out, ResourceYield{Resource: r, Grade: math.Round((0.5+g)*100) / 100})
	}
	return out
}

func containsResource(list []Resource, r Resource) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

func starName(rng *rand.Rand) string {
	return fmt.Sprintf("%c%c%d%d",
		'a'+rune(rng.Intn(26)), 'a'+rune(rng.Intn(26)), rng.Intn(10), rng.Intn(10))
}
