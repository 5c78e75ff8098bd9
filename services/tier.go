package services

import (
	"math"

	"loyalty-points-system/models"
)

// TierConfig is the static definition of one loyalty tier.
type TierConfig struct {
	Tier       models.Tier `json:"tier"`
	Name       string      `json:"name"`
	MinPoints  int64       `json:"min_points"` // inclusive lower bound on lifetime points
	Multiplier float64     `json:"multiplier"` // earn multiplier applied by the ledger
	Discount   float64     `json:"discount"`
	Color      string      `json:"color"`
	Icon       string      `json:"icon"`
	Benefits   []string    `json:"benefits"`
}

// TierLadder is ordered lowest to highest. Boundaries are inclusive lower
// bounds on lifetime points.
var TierLadder = []TierConfig{
	{
		Tier: models.TierBronze, Name: "Bronze", MinPoints: 0, Multiplier: 1.0, Discount: 0.02,
		Color: "#CD7F32", Icon: "🥉",
		Benefits: []string{"2% discount on all orders"},
	},
	{
		Tier: models.TierSilver, Name: "Silver", MinPoints: 500, Multiplier: 1.1, Discount: 0.05,
		Color: "#C0C0C0", Icon: "🥈",
		Benefits: []string{"5% discount on all orders", "Free shipping over $100", "+10% bonus points"},
	},
	{
		Tier: models.TierGold, Name: "Gold", MinPoints: 2000, Multiplier: 1.25, Discount: 0.10,
		Color: "#FFD700", Icon: "🥇",
		Benefits: []string{"10% discount on all orders", "Free shipping always", "+25% bonus points", "Early access to sales"},
	},
	{
		Tier: models.TierPlatinum, Name: "Platinum", MinPoints: 5000, Multiplier: 1.5, Discount: 0.15,
		Color: "#E5E4E2", Icon: "💎",
		Benefits: []string{"15% discount on all orders", "Free shipping always", "+50% bonus points", "Early access to products", "Priority support"},
	},
	{
		Tier: models.TierDiamond, Name: "Diamond", MinPoints: 10000, Multiplier: 2.0, Discount: 0.20,
		Color: "#B9F2FF", Icon: "👑",
		Benefits: []string{"20% discount on all orders", "Free shipping always", "Double points", "Exclusive products", "VIP support"},
	},
}

// TierStanding is the derived tier state for a given lifetime points total.
type TierStanding struct {
	Tier             models.Tier
	Multiplier       float64
	ProgressPercent  float64 // 0-100 toward the next tier, 100 at Diamond
	PointsToNextTier int64   // 0 at Diamond
}

// TierFor derives the tier standing from lifetime points. Pure function: no
// I/O, safe to call concurrently without locking.
func TierFor(lifetimePoints int64) TierStanding {
	idx := 0
	for i := len(TierLadder) - 1; i >= 0; i-- {
		if lifetimePoints >= TierLadder[i].MinPoints {
			idx = i
			break
		}
	}
	cfg := TierLadder[idx]

	if idx == len(TierLadder)-1 {
		// Top tier: no next boundary, progress clamps to 100.
		return TierStanding{Tier: cfg.Tier, Multiplier: cfg.Multiplier, ProgressPercent: 100}
	}

	next := TierLadder[idx+1]
	span := next.MinPoints - cfg.MinPoints
	progress := 100 * float64(lifetimePoints-cfg.MinPoints) / float64(span)
	return TierStanding{
		Tier:             cfg.Tier,
		Multiplier:       cfg.Multiplier,
		ProgressPercent:  math.Min(100, progress),
		PointsToNextTier: next.MinPoints - lifetimePoints,
	}
}

// TierMultiplier returns the earn multiplier for a tier (1.0 for unknown).
func TierMultiplier(tier models.Tier) float64 {
	for _, cfg := range TierLadder {
		if cfg.Tier == tier {
			return cfg.Multiplier
		}
	}
	return 1.0
}

// tierRank gives the ordinal position of a tier in the ladder, used for
// "has reached at least this tier" checks.
func tierRank(tier models.Tier) int {
	for i, cfg := range TierLadder {
		if cfg.Tier == tier {
			return i
		}
	}
	return 0
}
