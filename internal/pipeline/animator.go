// Package pipeline runs the cosmetic processing sequence shown while an
// optimize request is in flight. The schedule is fixed and does not track the
// remote call's progress; the owner reconciles it through LoadingChanged.
package pipeline

import (
	"log"
	"sync"
	"time"

	"ecoroute-dashboard/internal/scheduler"
)

// Phase is the progress marker of one run
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePredicting
	PhaseScoring
	PhaseClustering
	PhaseOptimizing
	PhaseComplete
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "idle",
	PhasePredicting: "predicting",
	PhaseScoring:    "scoring",
	PhaseClustering: "clustering",
	PhaseOptimizing: "optimizing",
	PhaseComplete:   "complete",
}

var phaseLabels = map[Phase]string{
	PhaseIdle:       "",
	PhasePredicting: "Predicting overflow risk",
	PhaseScoring:    "Scoring bin priority",
	PhaseClustering: "Clustering service zones",
	PhaseOptimizing: "Optimizing truck routes",
	PhaseComplete:   "Routes ready",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Label is the operator-facing caption for the phase
func (p Phase) Label() string {
	return phaseLabels[p]
}

// InFlight reports whether the cosmetic sequence is mid-run
func (p Phase) InFlight() bool {
	return p >= PhasePredicting && p <= PhaseOptimizing
}

// MarshalText lets phases appear by name in JSON
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Step is one scheduled transition, relative to run start
type Step struct {
	At    time.Duration
	Phase Phase
}

// Schedule is the fixed cosmetic sequence. The first step fires synchronously in Run.
var Schedule = []Step{
	{At: 0, Phase: PhasePredicting},
	{At: 600 * time.Millisecond, Phase: PhaseScoring},
	{At: 1200 * time.Millisecond, Phase: PhaseClustering},
	{At: 2000 * time.Millisecond, Phase: PhaseOptimizing},
	{At: 3000 * time.Millisecond, Phase: PhaseComplete},
}

// Animator is the phase state machine. Observers are always called without
// the animator's lock held, so they may call back into the animator.
type Animator struct {
	mu       sync.Mutex
	sched    scheduler.Scheduler
	phase    Phase
	gen      uint64
	timers   []scheduler.Timer
	stopped  bool
	onChange func(Phase)
}

// NewAnimator creates an idle animator. onChange may be nil.
func NewAnimator(sched scheduler.Scheduler, onChange func(Phase)) *Animator {
	if sched == nil {
		sched = scheduler.Real{}
	}
	return &Animator{
		sched:    sched,
		onChange: onChange,
	}
}

// Phase returns the current phase
func (a *Animator) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Run starts the sequence. It is a no-op returning false unless the phase is idle.
// onComplete runs on the transition to complete.
func (a *Animator) Run(onComplete func()) bool {
	a.mu.Lock()
	if a.stopped || a.phase != PhaseIdle {
		a.mu.Unlock()
		return false
	}

	a.gen++
	gen := a.gen
	a.phase = Schedule[0].Phase
	for _, step := range Schedule[1:] {
		step := step
		a.timers = append(a.timers, a.sched.AfterFunc(step.At, func() {
			a.advance(gen, step.Phase, onComplete)
		}))
	}
	a.mu.Unlock()

	a.notify(Schedule[0].Phase)
	return true
}

func (a *Animator) advance(gen uint64, next Phase, onComplete func()) {
	a.mu.Lock()
	if a.stopped || gen != a.gen || next <= a.phase {
		a.mu.Unlock()
		return
	}
	a.phase = next
	if next == PhaseComplete {
		a.timers = nil
	}
	a.mu.Unlock()

	a.notify(next)
	if next == PhaseComplete && onComplete != nil {
		onComplete()
	}
}

// Reset cancels outstanding transitions and returns to idle
func (a *Animator) Reset() {
	a.mu.Lock()
	if a.phase == PhaseIdle && len(a.timers) == 0 {
		a.mu.Unlock()
		return
	}
	a.cancelLocked()
	a.phase = PhaseIdle
	stopped := a.stopped
	a.mu.Unlock()

	if !stopped {
		a.notify(PhaseIdle)
	}
}

// LoadingChanged reconciles the cosmetic sequence with the real request.
// A true to false edge while a run is showing forces the animator back to idle.
func (a *Animator) LoadingChanged(was, now bool) {
	if !was || now {
		return
	}
	if a.Phase() == PhaseIdle {
		return
	}
	log.Printf("🔄 Request settled, resetting pipeline from %s", a.Phase())
	a.Reset()
}

// Stop cancels all pending transitions for good. Later Run calls are rejected.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	a.cancelLocked()
	a.phase = PhaseIdle
}

func (a *Animator) cancelLocked() {
	a.gen++
	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = nil
}

func (a *Animator) notify(p Phase) {
	if a.onChange != nil {
		a.onChange(p)
	}
}
