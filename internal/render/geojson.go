package render

import (
	"github.com/paulmach/orb/geojson"
)

// Feature kinds, set as the "kind" property
const (
	KindBin        = "bin"
	KindRoute      = "route"
	KindFlowMarker = "flow_marker"
	KindDepot      = "depot"
)

// FeatureCollection encodes the scene as GeoJSON in draw order: bins, routes,
// flow markers, depot. Styling travels in feature properties.
func (s *Scene) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, b := range s.Bins {
		f := geojson.NewFeature(b.Position)
		f.ID = b.ID
		f.Properties["kind"] = KindBin
		f.Properties["bin_id"] = b.ID
		f.Properties["label"] = b.Label
		f.Properties["tier"] = string(b.Tier)
		f.Properties["color"] = b.Color
		f.Properties["pulse"] = b.Pulse
		f.Properties["category"] = b.Detail.Category
		f.Properties["fill_percent"] = b.Detail.FillPercent
		f.Properties["priority_bar"] = b.Detail.PriorityBar
		f.Properties["overflow_high_risk"] = b.Detail.OverflowHighRisk
		if b.Detail.OverflowPercent != nil {
			f.Properties["overflow_percent"] = *b.Detail.OverflowPercent
		}
		if b.Detail.TimeToCritical != nil {
			f.Properties["time_to_critical_hours"] = *b.Detail.TimeToCritical
		}
		if b.Detail.PriorityScore != nil {
			f.Properties["priority_score"] = *b.Detail.PriorityScore
		}
		fc.Append(f)
	}

	for _, r := range s.Routes {
		f := geojson.NewFeature(r.Path)
		f.Properties["kind"] = KindRoute
		f.Properties["route_index"] = r.Index
		f.Properties["color"] = r.Color
		f.Properties["strokes"] = r.Strokes
		f.Properties["stop_count"] = len(r.Path)
		fc.Append(f)
	}

	for _, r := range s.Routes {
		for _, p := range r.FlowMarkers {
			f := geojson.NewFeature(p)
			f.Properties["kind"] = KindFlowMarker
			f.Properties["route_index"] = r.Index
			f.Properties["color"] = r.Color
			fc.Append(f)
		}
	}

	depot := geojson.NewFeature(s.Depot.Position)
	depot.Properties["kind"] = KindDepot
	depot.Properties["label"] = s.Depot.Label
	depot.Properties["color"] = s.Depot.Color
	fc.Append(depot)

	return fc
}
