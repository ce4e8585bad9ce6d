package render

import (
	"encoding/json"
	"math"
	"testing"

	"ecoroute-dashboard/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		fill float64
		want Tier
	}{
		{-20, TierNormal},
		{0, TierNormal},
		{50, TierNormal},
		{50.01, TierElevated},
		{80, TierElevated},
		{80.01, TierCritical},
		{100, TierCritical},
		{250, TierCritical},
		{math.NaN(), TierNormal},
	}
	for _, tc := range cases {
		if got := Classify(tc.fill); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.fill, got, tc.want)
		}
	}
	if TierCritical.Color() != "#ef4444" || TierElevated.Color() != "#f97316" || TierNormal.Color() != "#10b981" {
		t.Fatalf("tier colors changed")
	}
	if !TierCritical.Pulses() || TierElevated.Pulses() {
		t.Fatalf("only critical bins pulse")
	}
}

func TestRouteColorIsPositional(t *testing.T) {
	if RouteColor(0) != ColorRoutePrimary {
		t.Fatalf("first route should be primary")
	}
	for _, i := range []int{1, 2, 7} {
		if RouteColor(i) != ColorRouteSecondary {
			t.Fatalf("route %d should share the secondary color", i)
		}
	}
}

func TestBuildSceneBinDetails(t *testing.T) {
	snap := models.SnapshotFromBins(1, []models.Bin{
		{BinID: "A", Latitude: 31.25, Longitude: 75.70, FillLevel: 112.4, Type: "Food Court",
			OverflowProb: ptr(0.83), PriorityScore: ptr(142.7), TimeToCritical: ptr(0.5)},
		{BinID: "B", Latitude: 31.26, Longitude: 75.71, FillLevel: 64.6, Type: "Hostel"},
	})

	scene := BuildScene(snap, nil)
	if len(scene.Bins) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(scene.Bins))
	}

	a := scene.Bins[0]
	if a.Tier != TierCritical || !a.Pulse || a.Label != "A" {
		t.Fatalf("unexpected marker A: %+v", a)
	}
	if a.Detail.FillPercent != 100 {
		t.Fatalf("fill should be clamped for display, got %d", a.Detail.FillPercent)
	}
	if a.Detail.OverflowPercent == nil || *a.Detail.OverflowPercent != 83 || !a.Detail.OverflowHighRisk {
		t.Fatalf("unexpected overflow detail: %+v", a.Detail)
	}
	if a.Detail.PriorityBar != 100 || *a.Detail.PriorityScore != 142.7 {
		t.Fatalf("bar should clamp but score stay raw: %+v", a.Detail)
	}
	if a.Position[0] != 75.70 || a.Position[1] != 31.25 {
		t.Fatalf("position should be lon,lat: %v", a.Position)
	}

	b := scene.Bins[1]
	if b.Tier != TierElevated || b.Detail.FillPercent != 65 {
		t.Fatalf("unexpected marker B: %+v", b)
	}
	if b.Detail.OverflowPercent != nil || b.Detail.TimeToCritical != nil || b.Detail.PriorityScore != nil {
		t.Fatalf("absent fields should stay absent: %+v", b.Detail)
	}
}

func TestBuildSceneMalformedBinsRendersEmpty(t *testing.T) {
	snap := models.NewBinSnapshot(4, []byte(`{"error":"Data generation failed"}`))
	routes := models.RouteSet{{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}}

	scene := BuildScene(snap, routes)
	if len(scene.Bins) != 0 {
		t.Fatalf("expected no bins for malformed payload, got %d", len(scene.Bins))
	}
	if len(scene.Routes) != 1 {
		t.Fatalf("routes should still render")
	}
	if scene.Depot.Position != Depot {
		t.Fatalf("depot must always be drawn")
	}
}

func TestBuildSceneSkipsNonFinitePositions(t *testing.T) {
	snap := models.NewBinSnapshot(1, nil)
	scene := BuildScene(snap, models.RouteSet{{{Lat: math.Inf(1), Lon: 2}, {Lat: 3, Lon: 4}}})
	if len(scene.Routes[0].Path) != 1 {
		t.Fatalf("expected non-finite stop dropped, got %v", scene.Routes[0].Path)
	}
}

func TestRoutePathStylingAndFlowMarkers(t *testing.T) {
	route := make(models.Route, 13)
	for i := range route {
		route[i] = models.Stop{Lat: float64(i), Lon: float64(i)}
	}
	scene := BuildScene(models.BinSnapshot{}, models.RouteSet{route, route[:3]})

	first := scene.Routes[0]
	if first.Color != ColorRoutePrimary || len(first.Strokes) != 2 {
		t.Fatalf("unexpected first route: %+v", first)
	}
	if first.Strokes[0].Weight != 8 || first.Strokes[0].Opacity != 0.5 || first.Strokes[1].Color != ColorRouteCore {
		t.Fatalf("unexpected strokes: %+v", first.Strokes)
	}
	// Indices 2 and 7 qualify; 12 is inside the last two points.
	if len(first.FlowMarkers) != 2 || first.FlowMarkers[0][1] != 2 || first.FlowMarkers[1][1] != 7 {
		t.Fatalf("unexpected flow markers: %v", first.FlowMarkers)
	}

	second := scene.Routes[1]
	if second.Color != ColorRouteSecondary || len(second.FlowMarkers) != 0 {
		t.Fatalf("unexpected second route: %+v", second)
	}
}

func TestViewportRecentresOncePerSnapshot(t *testing.T) {
	r := NewRenderer()

	frame := r.Render(models.BinSnapshot{}, nil)
	if frame.Viewport.FlightID != 0 || frame.Viewport.Center != InitialCenter || frame.Viewport.Zoom != InitialZoom {
		t.Fatalf("empty input should keep the initial camera: %+v", frame.Viewport)
	}

	snap := models.SnapshotFromBins(1, []models.Bin{{BinID: "A", Latitude: 31.2, Longitude: 75.6, FillLevel: 10}})
	frame = r.Render(snap, nil)
	if frame.Viewport.FlightID != 1 || frame.Viewport.Flight == nil {
		t.Fatalf("expected one flight on first non-empty snapshot: %+v", frame.Viewport)
	}
	if frame.Viewport.Flight.Zoom != 16 || frame.Viewport.Flight.DurationMS != 2000 {
		t.Fatalf("unexpected flight: %+v", frame.Viewport.Flight)
	}

	for i := 0; i < 3; i++ {
		frame = r.Render(snap, models.RouteSet{{{Lat: 1, Lon: 1}}})
	}
	if frame.Viewport.FlightID != 1 {
		t.Fatalf("re-render of same snapshot started a new flight: %d", frame.Viewport.FlightID)
	}
	if frame.Viewport.Flight != nil || frame.Viewport.Center[0] != 75.6 {
		t.Fatalf("later frames should carry the settled camera without the flight: %+v", frame.Viewport)
	}
	if r.Viewport().Flight != nil {
		t.Fatalf("late joiner would replay the flight")
	}

	fresh := models.SnapshotFromBins(2, []models.Bin{{BinID: "B", Latitude: 31.3, Longitude: 75.8, FillLevel: 10}})
	frame = r.Render(fresh, nil)
	if frame.Viewport.FlightID != 2 || frame.Viewport.Center[0] != 75.8 || frame.Viewport.Flight == nil {
		t.Fatalf("fresh fetch should recentre: %+v", frame.Viewport)
	}
}

func TestViewportIgnoresEmptyAndMalformedSnapshots(t *testing.T) {
	r := NewRenderer()
	r.Render(models.SnapshotFromBins(1, nil), nil)
	r.Render(models.NewBinSnapshot(2, []byte(`{"oops":true}`)), nil)
	if r.Viewport().FlightID != 0 {
		t.Fatalf("no flight expected for empty or malformed bins")
	}
	r.Render(models.SnapshotFromBins(3, []models.Bin{{BinID: "A", Latitude: 1, Longitude: 2}}), nil)
	if r.Viewport().FlightID != 1 {
		t.Fatalf("expected flight once bins arrive")
	}
}

func TestFeatureCollectionEncoding(t *testing.T) {
	snap := models.SnapshotFromBins(1, []models.Bin{{BinID: "A", Latitude: 31.25, Longitude: 75.70, FillLevel: 90, PriorityScore: ptr(55)}})
	scene := BuildScene(snap, models.RouteSet{{{Lat: 31.25, Lon: 75.70}, {Lat: 31.26, Lon: 75.71}}})

	raw, err := json.Marshal(scene.FeatureCollection())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != "FeatureCollection" || len(decoded.Features) != 3 {
		t.Fatalf("expected bin, route and depot features, got %s", raw)
	}

	kinds := []string{KindBin, KindRoute, KindDepot}
	geoms := []string{"Point", "LineString", "Point"}
	for i, f := range decoded.Features {
		if f.Properties["kind"] != kinds[i] || f.Geometry.Type != geoms[i] {
			t.Fatalf("feature %d: got kind %v geometry %s", i, f.Properties["kind"], f.Geometry.Type)
		}
	}
	if decoded.Features[0].Properties["tier"] != "critical" || decoded.Features[0].Properties["priority_score"] != 55.0 {
		t.Fatalf("unexpected bin properties: %v", decoded.Features[0].Properties)
	}
	if _, ok := decoded.Features[0].Properties["overflow_percent"]; ok {
		t.Fatalf("absent overflow should not be encoded")
	}
}
