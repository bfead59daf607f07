package economy

import "github.com/talgya/starmarket/internal/galaxy"

// Volumes maps each resource to a monthly volume.
type Volumes [galaxy.NumResources]float64

// Total returns the sum over all resources.
func (v Volumes) Total() float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// DemandRates are per-capita monthly consumption rates by body class.
type DemandRates [galaxy.NumClasses]Volumes

// DefaultDemandRates returns the stock consumption table.
// A terrestrial world of 10,000 people needs 100 metals a month.
func DefaultDemandRates() DemandRates {
	return DemandRates{
		galaxy.ClassTerrestrial: {0.010, 0.012, 0.004, 0.002, 0.001},
		galaxy.ClassOceanic:     {0.008, 0.006, 0.006, 0.002, 0.001},
		galaxy.ClassBarren:      {0.012, 0.015, 0.008, 0.003, 0.002},
		galaxy.ClassGasGiant:    {0.012, 0.015, 0.004, 0.003, 0.002},
		galaxy.ClassAsteroid:    {0.014, 0.015, 0.008, 0.003, 0.002},
	}
}

// InfrastructureModifier scales demand with a body's infrastructure level.
func InfrastructureModifier(level uint8) float64 {
	return 1 + 0.1*float64(level)
}

// ComputeDemand returns the monthly demand of a body:
// base_rate(resource, class) × population × infrastructure modifier.
// It has no side effects. Zero population means zero demand.
func (rates *DemandRates) ComputeDemand(class galaxy.BodyClass, population, infraMod float64) Volumes {
	var v Volumes
	if population <= 0 || infraMod <= 0 || int(class) >= galaxy.NumClasses {
		return v
	}
	for r, base := range rates[class] {
		v[r] = base * population * infraMod
	}
	return v
}
