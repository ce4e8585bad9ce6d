package render

import (
	"log"
	"math"

	"ecoroute-dashboard/internal/models"

	"github.com/paulmach/orb"
)

// Depot is the fleet home base, drawn on every scene
var Depot = orb.Point{75.706270, 31.260024}

const depotLabel = "DEPOT LOCATION"

// TileLayer is one raster layer of the base map
type TileLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
	ZIndex      int    `json:"z_index,omitempty"`
}

// BaseLayers is the satellite imagery with a labels overlay on top
var BaseLayers = []TileLayer{
	{
		Name:        "satellite",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "Tiles &copy; Esri",
	},
	{
		Name:   "labels",
		URL:    "https://{s}.basemaps.cartocdn.com/light_only_labels/{z}/{x}/{y}{r}.png",
		ZIndex: 10,
	},
}

// Scene is everything drawable for one (bins, routes) input
type Scene struct {
	Layers []TileLayer
	Bins   []BinMarker
	Routes []RoutePath
	Depot  DepotMarker
}

// BinMarker is one bin on the map
type BinMarker struct {
	ID       string
	Position orb.Point
	Tier     Tier
	Color    string
	Pulse    bool
	Label    string // Always visible
	Detail   BinDetail
}

// BinDetail is the on-demand panel for a bin
type BinDetail struct {
	Category         string
	FillPercent      int
	OverflowPercent  *int
	OverflowHighRisk bool
	TimeToCritical   *float64 // Hours
	PriorityScore    *float64 // Shown as received
	PriorityBar      float64  // Bar width, clamped to [0,100]
}

// Stroke is one drawn pass over a route path
type Stroke struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
	LineCap string  `json:"line_cap,omitempty"`
}

// RoutePath is one vehicle's polyline plus its flow markers
type RoutePath struct {
	Index       int
	Color       string
	Path        orb.LineString
	Strokes     []Stroke
	FlowMarkers []orb.Point
}

// DepotMarker is the fixed depot pin
type DepotMarker struct {
	Position orb.Point
	Label    string
	Color    string
}

// BuildScene maps bins and routes to drawables. It never fails: a malformed
// bin payload yields a scene without bins.
func BuildScene(snapshot models.BinSnapshot, routes models.RouteSet) *Scene {
	scene := &Scene{
		Layers: BaseLayers,
		Bins:   []BinMarker{},
		Routes: []RoutePath{},
		Depot: DepotMarker{
			Position: Depot,
			Label:    depotLabel,
			Color:    ColorDepot,
		},
	}

	bins, err := snapshot.Bins()
	if err != nil {
		log.Printf("❌ Render: bins is not a sequence (revision %d): %v", snapshot.Revision, err)
		bins = nil
	}
	for _, b := range bins {
		marker, ok := binMarker(b)
		if !ok {
			log.Printf("⚠️  Render: skipping bin %q with invalid position (%v, %v)", b.BinID, b.Latitude, b.Longitude)
			continue
		}
		scene.Bins = append(scene.Bins, marker)
	}

	for i, r := range routes {
		scene.Routes = append(scene.Routes, routePath(i, r))
	}

	return scene
}

func binMarker(b models.Bin) (BinMarker, bool) {
	if !finite(b.Latitude) || !finite(b.Longitude) {
		return BinMarker{}, false
	}

	tier := Classify(b.FillLevel)
	detail := BinDetail{
		Category:       b.Type,
		FillPercent:    int(math.Round(ClampPercent(b.FillLevel))),
		TimeToCritical: b.TimeToCritical,
		PriorityScore:  b.PriorityScore,
	}
	if b.OverflowProb != nil {
		pct := int(math.Round(*b.OverflowProb * 100))
		detail.OverflowPercent = &pct
		detail.OverflowHighRisk = *b.OverflowProb > 0.7
	}
	if b.PriorityScore != nil {
		detail.PriorityBar = ClampPercent(*b.PriorityScore)
	}

	return BinMarker{
		ID:       b.BinID,
		Position: orb.Point{b.Longitude, b.Latitude},
		Tier:     tier,
		Color:    tier.Color(),
		Pulse:    tier.Pulses(),
		Label:    b.BinID,
		Detail:   detail,
	}, true
}

func routePath(index int, route models.Route) RoutePath {
	color := RouteColor(index)
	path := make(orb.LineString, 0, len(route))
	for _, stop := range route {
		if !finite(stop.Lat) || !finite(stop.Lon) {
			continue
		}
		path = append(path, orb.Point{stop.Lon, stop.Lat})
	}

	return RoutePath{
		Index: index,
		Color: color,
		Path:  path,
		Strokes: []Stroke{
			{Color: color, Weight: 8, Opacity: 0.5, LineCap: "round"}, // Glow
			{Color: ColorRouteCore, Weight: 3, Opacity: 1.0},           // Core
		},
		FlowMarkers: flowMarkers(path),
	}
}

// flowMarkers picks every fifth point starting at index 2, skipping the last two points
func flowMarkers(path orb.LineString) []orb.Point {
	markers := []orb.Point{}
	for i, p := range path {
		if i%5 != 2 || i >= len(path)-2 {
			continue
		}
		markers = append(markers, p)
	}
	return markers
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
