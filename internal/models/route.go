package models

// Stop is one waypoint on a truck route. Only the position is needed to draw it.
type Stop struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Name      string   `json:"name,omitempty"`
	FillLevel *float64 `json:"fill_level,omitempty"`
	Type      string   `json:"type,omitempty"`
}

// Route is the ordered stop list for one vehicle
type Route []Stop

// RouteSet is one optimize result. Index order decides display color.
type RouteSet []Route

// OptimizeRequest is the request body for POST /optimize
type OptimizeRequest struct {
	Date       string `json:"date"` // YYYY-MM-DD
	TruckCount int    `json:"truck_count"`
}

// OptimizeResponse is the response body of POST /optimize
type OptimizeResponse struct {
	Date       string   `json:"date"`
	TruckCount int      `json:"truck_count"`
	Routes     RouteSet `json:"routes"`
}

// Clone returns a deep copy so callers can never mutate a held result set
func (rs RouteSet) Clone() RouteSet {
	if rs == nil {
		return nil
	}
	out := make(RouteSet, len(rs))
	for i, r := range rs {
		out[i] = append(Route(nil), r...)
	}
	return out
}
