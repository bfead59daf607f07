// Package galaxy provides the star-system registry: celestial bodies, their
// assigned resources, and the positions used for distance and travel time.
package galaxy

import (
	"fmt"
	"math"
	"strings"
)

// BodyID is a unique identifier for a celestial body.
type BodyID uint64

// SystemID is a unique identifier for a star system.
type SystemID uint64

// EmpireID identifies the empire that owns a body. Zero means unclaimed.
type EmpireID uint32

// Unclaimed is the empire of bodies no one owns.
const Unclaimed EmpireID = 0

// BodyClass affects the base demand mix of a body.
type BodyClass uint8

const (
	ClassTerrestrial BodyClass = iota // Earth-like, the usual population center
	ClassOceanic                      // Water worlds
	ClassBarren                       // Moons and airless rocks
	ClassGasGiant                     // Never populated, rich in volatiles
	ClassAsteroid                     // Belts and captured rocks
)

// NumClasses is the total number of body classes.
const NumClasses = 5

var classNames = [NumClasses]string{"terrestrial", "oceanic", "barren", "gas_giant", "asteroid"}

func (c BodyClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ParseBodyClass converts a class name back to a BodyClass.
func ParseBodyClass(s string) (BodyClass, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range classNames {
		if name == s {
			return BodyClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown body class %q", s)
}

// Resource enumerates the tradable raw resources.
type Resource uint8

const (
	ResourceMetals    Resource = iota // Structural metals, the common staple
	ResourceOrganics                  // Food stock and biomass
	ResourceVolatiles                 // Gases and ices, mostly from gas giants
	ResourceCrystals                  // Rare lattices for electronics
	ResourceIsotopes                  // Fissiles and exotic fuel
)

// NumResources is the total number of resource types.
const NumResources = 5

var resourceNames = [NumResources]string{"metals", "organics", "volatiles", "crystals", "isotopes"}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("resource(%d)", uint8(r))
}

// ParseResource converts a resource name back to a Resource.
func ParseResource(s string) (Resource, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range resourceNames {
		if name == s {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// AllResources returns every resource in identity order.
func AllResources() []Resource {
	out := make([]Resource, NumResources)
	for i := range out {
		out[i] = Resource(i)
	}
	return out
}

// Point is a position on the galactic plane.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// ResourceYield is one of the resources assigned to a body, with its grade.
// Higher grades regenerate faster and hold larger deposits.
type ResourceYield struct {
	Resource Resource `json:"resource"`
	Grade    float64  `json:"grade"`
}

// Body is a planet, moon, gas giant or asteroid.
type Body struct {
	ID       BodyID    `json:"id"`
	Name     string    `json:"name"`
	System   SystemID  `json:"system_id"`
	Class    BodyClass `json:"class"`
	Position Point     `json:"position"`

	// Demographics, owned by the population subsystem.
	Population     float64 `json:"population"`
	Infrastructure uint8   `json:"infrastructure"` // 0–10

	Empire   EmpireID `json:"empire"`
	Shipyard bool     `json:"shipyard"`

	// Exactly N assigned resources, sorted by resource identity.
	Yields []ResourceYield `json:"yields"`
}

// Inhabited returns true if anyone lives on the body.
func (b *Body) Inhabited() bool {
	return b.Population > 0
}

// Yield returns the grade of an assigned resource.
func (b *Body) Yield(r Resource) (float64, bool) {
	for _, y := range b.Yields {
		if y.Resource == r {
			return y.Grade, true
		}
	}
	return 0, false
}
