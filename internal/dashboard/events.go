package dashboard

import (
	"ecoroute-dashboard/internal/pipeline"
	"ecoroute-dashboard/internal/render"

	"github.com/paulmach/orb/geojson"
)

// Event types pushed to clients
const (
	EventState = "state"
	EventPhase = "phase"
	EventScene = "scene"
)

// Event is one push to a session's clients
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Publisher delivers events for a session. It must not call back into the session.
type Publisher func(sessionID string, event Event)

// Snapshot is the externally visible session state
type Snapshot struct {
	SessionID      string         `json:"session_id"`
	View           ViewState      `json:"view"`
	IntroStage     IntroStage     `json:"intro_stage,omitempty"`
	Phase          pipeline.Phase `json:"phase"`
	PhaseLabel     string         `json:"phase_label,omitempty"`
	Loading        bool           `json:"loading"`
	TriggerEnabled bool           `json:"trigger_enabled"`
	Controls       Controls       `json:"controls"`
	Metrics        Metrics        `json:"metrics"`
	BinCount       int            `json:"bin_count"`
	BinsRevision   uint64         `json:"bins_revision"`
	RouteCount     int            `json:"route_count"`
}

// PhaseUpdate is pushed on every pipeline transition
type PhaseUpdate struct {
	Phase pipeline.Phase `json:"phase"`
	Label string         `json:"label,omitempty"`
}

// SceneView is a rendered frame in wire form
type SceneView struct {
	BinsRevision uint64                     `json:"bins_revision"`
	Viewport     render.ViewportState       `json:"viewport"`
	Layers       []render.TileLayer         `json:"layers"`
	Features     *geojson.FeatureCollection `json:"features"`
}

func newSceneView(revision uint64, frame render.Frame) SceneView {
	return SceneView{
		BinsRevision: revision,
		Viewport:     frame.Viewport,
		Layers:       frame.Scene.Layers,
		Features:     frame.Scene.FeatureCollection(),
	}
}
