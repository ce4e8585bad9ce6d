package render

import (
	"sync"
	"time"

	"ecoroute-dashboard/internal/models"

	"github.com/paulmach/orb"
)

// Initial camera before any bins arrive
var (
	InitialCenter = orb.Point{75.703, 31.251}
	InitialZoom   = 15.0
)

const (
	flyToZoom     = 16.0
	flyToDuration = 2 * time.Second
)

// Flight is a smooth pan+zoom the client should animate
type Flight struct {
	Target     orb.Point `json:"target"`
	Zoom       float64   `json:"zoom"`
	DurationMS int64     `json:"duration_ms"`
}

// ViewportState is the camera as of the latest render. FlightID increases on each
// recentre. Flight is set only on the frame that started the flight, so a
// client joining later gets the settled camera without replaying it.
type ViewportState struct {
	Center   orb.Point `json:"center"`
	Zoom     float64   `json:"zoom"`
	FlightID uint64    `json:"flight_id"`
	Flight   *Flight   `json:"flight,omitempty"`
}

// Viewport tracks the camera and decides when to recentre.
// It compares the snapshot revision against the last one it saw, so re-rendering
// the same snapshot never starts a second flight.
type Viewport struct {
	state        ViewportState
	lastRevision uint64
}

// NewViewport starts at the initial camera
func NewViewport() *Viewport {
	return &Viewport{
		state: ViewportState{Center: InitialCenter, Zoom: InitialZoom},
	}
}

// Observe records the snapshot being drawn and returns a flight when it is
// newer than the last one seen and holds at least one drawable bin. Older
// revisions, from renders that lost a race, are ignored.
func (v *Viewport) Observe(revision uint64, markers []BinMarker) *Flight {
	// A flight is carried only by the frame that started it
	v.state.Flight = nil
	if revision <= v.lastRevision {
		return nil
	}
	v.lastRevision = revision
	if len(markers) == 0 {
		return nil
	}

	target := markers[0].Position
	flight := &Flight{
		Target:     target,
		Zoom:       flyToZoom,
		DurationMS: flyToDuration.Milliseconds(),
	}
	v.state.Center = target
	v.state.Zoom = flyToZoom
	v.state.FlightID++
	v.state.Flight = flight
	return flight
}

// State returns the current camera
func (v *Viewport) State() ViewportState {
	return v.state
}

// Frame is one render: the scene and the camera it should be shown with
type Frame struct {
	Scene    *Scene
	Viewport ViewportState
}

// Renderer owns the single viewport of a session. Business data is passed in on
// every call and never retained.
type Renderer struct {
	mu       sync.Mutex
	viewport *Viewport
}

// NewRenderer creates a renderer with a fresh viewport
func NewRenderer() *Renderer {
	return &Renderer{viewport: NewViewport()}
}

// Render builds the scene for the inputs and updates the viewport
func (r *Renderer) Render(snapshot models.BinSnapshot, routes models.RouteSet) Frame {
	scene := BuildScene(snapshot, routes)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.viewport.Observe(snapshot.Revision, scene.Bins)
	return Frame{Scene: scene, Viewport: r.viewport.State()}
}

// Viewport returns the camera without rendering
func (r *Renderer) Viewport() ViewportState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport.State()
}
