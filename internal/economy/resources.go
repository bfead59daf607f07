// Package economy provides the resource ledger, the demand model and the
// pricing engine that turns stockpile and demand into local prices.
package economy

import (
	"golang.org/x/exp/constraints"

	"github.com/talgya/starmarket/internal/galaxy"
)

// Tier is the rarity class of a resource. It fixes the base value.
type Tier uint8

const (
	TierCommon Tier = iota
	TierUncommon
	TierRare
	TierExotic
)

var tierNames = [...]string{"common", "uncommon", "rare", "exotic"}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// tierValues are the base values (credits per unit) of each tier.
var tierValues = [...]float64{
	TierCommon:   10,
	TierUncommon: 20,
	TierRare:     40,
	TierExotic:   80,
}

var resourceTiers = [galaxy.NumResources]Tier{
	galaxy.ResourceMetals:    TierCommon,
	galaxy.ResourceOrganics:  TierCommon,
	galaxy.ResourceVolatiles: TierUncommon,
	galaxy.ResourceCrystals:  TierRare,
	galaxy.ResourceIsotopes:  TierExotic,
}

// TierOf returns the rarity tier of a resource.
func TierOf(r galaxy.Resource) Tier {
	if int(r) >= galaxy.NumResources {
		return TierCommon
	}
	return resourceTiers[r]
}

// BaseValue returns the rarity-tier base value of a resource.
func BaseValue(r galaxy.Resource) float64 {
	return tierValues[TierOf(r)]
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
