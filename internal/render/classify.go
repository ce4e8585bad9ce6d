package render

import "math"

// Tier is the visual severity bucket of a bin
type Tier string

const (
	TierNormal   Tier = "normal"
	TierElevated Tier = "elevated"
	TierCritical Tier = "critical"
)

// Marker colors per tier
const (
	ColorNormal   = "#10b981" // Green
	ColorElevated = "#f97316" // Orange
	ColorCritical = "#ef4444" // Red
)

// Route colors. The first route gets its own color, every later route shares the second.
const (
	ColorRoutePrimary   = "#06b6d4" // Cyan
	ColorRouteSecondary = "#d946ef" // Magenta
	ColorRouteCore      = "#ffffff"
	ColorDepot          = "#2563eb"
)

// ClampPercent bounds v to [0,100]. NaN maps to 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// Classify buckets a fill level. The fill is clamped first; 50 and 80 fall into the lower tier.
func Classify(fill float64) Tier {
	f := ClampPercent(fill)
	switch {
	case f > 80:
		return TierCritical
	case f > 50:
		return TierElevated
	default:
		return TierNormal
	}
}

// Color returns the marker color for the tier
func (t Tier) Color() string {
	switch t {
	case TierCritical:
		return ColorCritical
	case TierElevated:
		return ColorElevated
	default:
		return ColorNormal
	}
}

// Pulses reports whether the marker carries the animated halo
func (t Tier) Pulses() bool {
	return t == TierCritical
}

// RouteColor assigns a color by list position.
// Color follows position only, so a reordered result set swaps colors between vehicles.
func RouteColor(index int) string {
	if index == 0 {
		return ColorRoutePrimary
	}
	return ColorRouteSecondary
}
