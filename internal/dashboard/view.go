package dashboard

import (
	"errors"
	"time"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrWrongView      = errors.New("action not available in the current view")
	ErrNotOperational = errors.New("map view is not active")
	ErrBusy           = errors.New("optimization already in progress")
	ErrInvalidInput   = errors.New("invalid input")
)

// ViewState is the top-level screen. It only moves forward.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIntro
	ViewOperational
)

func (v ViewState) String() string {
	switch v {
	case ViewWelcome:
		return "welcome"
	case ViewIntro:
		return "intro"
	case ViewOperational:
		return "operational"
	default:
		return "unknown"
	}
}

// MarshalText lets views appear by name in JSON
func (v ViewState) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// IntroStage is the current shot of the cinematic intro
type IntroStage string

const (
	StageSolar IntroStage = "solar"
	StageEarth IntroStage = "earth"
	StageZoom  IntroStage = "zoom"
)

// introCues place each stage as a fraction of the whole intro (4s and 6s of 7s)
var introCues = []struct {
	num, den int64
	stage    IntroStage
}{
	{4, 7, StageEarth},
	{6, 7, StageZoom},
}

func cueAt(total time.Duration, num, den int64) time.Duration {
	return time.Duration(int64(total) * num / den)
}
