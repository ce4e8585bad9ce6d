package dashboard

import (
	"fmt"
	"math"
	"time"

	"ecoroute-dashboard/internal/models"
)

const (
	MinFleetSize     = 1
	MaxFleetSize     = 5
	DefaultFleetSize = 2
	DateLayout       = "2006-01-02"
)

// Controls are the operator inputs of the control surface
type Controls struct {
	Date      string `json:"date"`
	FleetSize int    `json:"truck_count"`
}

// ControlsUpdate is a partial edit. Nil fields are left alone.
type ControlsUpdate struct {
	Date      *string `json:"date,omitempty"`
	FleetSize *int    `json:"truck_count,omitempty"`
}

// DefaultControls uses the calendar date at creation and the default fleet
func DefaultControls(now time.Time) Controls {
	return Controls{
		Date:      now.UTC().Format(DateLayout),
		FleetSize: DefaultFleetSize,
	}
}

// ValidateDate checks a YYYY-MM-DD calendar date
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q is not a YYYY-MM-DD calendar date", ErrInvalidInput, date)
	}
	return nil
}

// ValidateFleetSize checks the inclusive fleet range
func ValidateFleetSize(n int) error {
	if n < MinFleetSize || n > MaxFleetSize {
		return fmt.Errorf("%w: truck_count %d outside %d..%d", ErrInvalidInput, n, MinFleetSize, MaxFleetSize)
	}
	return nil
}

// Apply returns the controls with the update merged in, or an error leaving c unchanged
func (c Controls) Apply(u ControlsUpdate) (Controls, error) {
	next := c
	if u.Date != nil {
		if err := ValidateDate(*u.Date); err != nil {
			return c, err
		}
		next.Date = *u.Date
	}
	if u.FleetSize != nil {
		if err := ValidateFleetSize(*u.FleetSize); err != nil {
			return c, err
		}
		next.FleetSize = *u.FleetSize
	}
	return next, nil
}

// Metrics are the control surface summary figures.
// They are fixed approximations derived from route count and route length, not measurements.
type Metrics struct {
	Stops       int     `json:"stops"`
	DistanceKM  float64 `json:"distance_km"`
	FuelLiters  float64 `json:"fuel_liters"`
	TimeMinutes int     `json:"time_minutes"`
}

// ComputeMetrics derives the summary from the route set shape
func ComputeMetrics(routes models.RouteSet) Metrics {
	n := len(routes)
	long := 0
	for _, r := range routes {
		if len(r) > 2 {
			long++
		}
	}
	return Metrics{
		Stops:       12 + 15*long,
		DistanceKM:  round1(12.4 * float64(n)),
		FuelLiters:  round1(1.8 * float64(n)),
		TimeMinutes: 32 * n,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
