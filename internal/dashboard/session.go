package dashboard

import (
	"context"
	"log"
	"sync"
	"time"

	"ecoroute-dashboard/internal/models"
	"ecoroute-dashboard/internal/pipeline"
	"ecoroute-dashboard/internal/render"
	"ecoroute-dashboard/internal/scheduler"
	"ecoroute-dashboard/internal/services/fleetapi"
)

// Options configure new sessions
type Options struct {
	IntroDuration time.Duration
	Scheduler     scheduler.Scheduler
	Now           func() time.Time
	Publish       Publisher
}

func (o Options) withDefaults() Options {
	if o.IntroDuration <= 0 {
		o.IntroDuration = 7 * time.Second
	}
	if o.Scheduler == nil {
		o.Scheduler = scheduler.Real{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Publish == nil {
		o.Publish = func(string, Event) {}
	}
	return o
}

// Session is one operator's dashboard: the view state machine, the control
// surface, the pipeline animator and the renderer's viewport.
//
// All fields below mu are only touched with mu held. Remote calls and timer
// callbacks run off-lock and apply their results under it; once the session
// is closed, late results are dropped.
type Session struct {
	ID string

	api      fleetapi.FleetService
	opts     Options
	animator *pipeline.Animator
	renderer *render.Renderer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	settled     *sync.Cond // Signalled when inflight drops to zero
	inflight    int
	closed      bool
	view        ViewState
	introStage  IntroStage
	introTimers []scheduler.Timer
	bins        models.BinSnapshot
	binRevision uint64
	routes      models.RouteSet
	loading     bool
	controls    Controls
	lastActive  time.Time
}

// NewSession creates a session in the welcome view
func NewSession(id string, api fleetapi.FleetService, opts Options) *Session {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		ID:         id,
		api:        api,
		opts:       opts,
		renderer:   render.NewRenderer(),
		ctx:        ctx,
		cancel:     cancel,
		view:       ViewWelcome,
		routes:     models.RouteSet{},
		controls:   DefaultControls(opts.Now()),
		lastActive: opts.Now(),
	}
	s.settled = sync.NewCond(&s.mu)
	s.animator = pipeline.NewAnimator(opts.Scheduler, s.onPhase)
	return s
}

// Confirm leaves the welcome view and starts the intro
func (s *Session) Confirm() error {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.view != ViewWelcome {
		s.mu.Unlock()
		return ErrWrongView
	}

	s.view = ViewIntro
	s.introStage = StageSolar
	total := s.opts.IntroDuration
	for _, cue := range introCues {
		stage := cue.stage
		s.introTimers = append(s.introTimers, s.opts.Scheduler.AfterFunc(cueAt(total, cue.num, cue.den), func() {
			s.setIntroStage(stage)
		}))
	}
	s.introTimers = append(s.introTimers, s.opts.Scheduler.AfterFunc(total, s.enterOperational))
	s.mu.Unlock()

	log.Printf("🎬 [SESSION %s] Intro started (%v)", s.ID, total)
	s.publishState()
	return nil
}

func (s *Session) setIntroStage(stage IntroStage) {
	s.mu.Lock()
	if s.closed || s.view != ViewIntro {
		s.mu.Unlock()
		return
	}
	s.introStage = stage
	s.mu.Unlock()

	s.publishState()
}

func (s *Session) enterOperational() {
	s.mu.Lock()
	if s.closed || s.view != ViewIntro {
		s.mu.Unlock()
		return
	}
	s.view = ViewOperational
	s.introStage = ""
	s.introTimers = nil
	s.refreshBinsLocked()
	s.mu.Unlock()

	log.Printf("🗺️  [SESSION %s] Map view active", s.ID)
	s.publishState()
	s.publishScene()
}

// SetControls edits the operator inputs. Invalid input leaves them unchanged.
func (s *Session) SetControls(u ControlsUpdate) (Controls, error) {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return Controls{}, err
	}
	if s.view != ViewOperational {
		current := s.controls
		s.mu.Unlock()
		return current, ErrNotOperational
	}
	next, err := s.controls.Apply(u)
	if err != nil {
		current := s.controls
		s.mu.Unlock()
		return current, err
	}
	s.controls = next
	s.mu.Unlock()

	s.publishState()
	return next, nil
}

// Trigger starts the processing sequence with the inputs as they are now.
// Optimize runs when the sequence reaches complete.
func (s *Session) Trigger() error {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.view != ViewOperational {
		s.mu.Unlock()
		return ErrNotOperational
	}
	if s.loading || s.animator.Phase() != pipeline.PhaseIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	captured := s.controls
	s.mu.Unlock()

	if !s.animator.Run(func() { s.completeRun(captured) }) {
		return ErrBusy
	}
	log.Printf("▶️  [SESSION %s] Pipeline started (date %s, %d trucks)", s.ID, captured.Date, captured.FleetSize)
	return nil
}

func (s *Session) completeRun(c Controls) {
	if err := s.Optimize(c.Date, c.FleetSize); err != nil {
		log.Printf("⚠️  [SESSION %s] Pipeline finished but optimize did not start: %v", s.ID, err)
		s.animator.Reset()
	}
}

// Optimize requests routes from the remote service. On success routes are
// replaced and bins re-fetched, in that order. On failure routes are kept.
// Loading is cleared when the request settles either way.
func (s *Session) Optimize(date string, truckCount int) error {
	if err := ValidateDate(date); err != nil {
		return err
	}
	if err := ValidateFleetSize(truckCount); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.view != ViewOperational {
		s.mu.Unlock()
		return ErrNotOperational
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	req := models.OptimizeRequest{Date: date, TruckCount: truckCount}
	s.spawnLocked(func(ctx context.Context) { s.runOptimize(ctx, req) })
	s.mu.Unlock()

	s.publishState()
	return nil
}

func (s *Session) runOptimize(ctx context.Context, req models.OptimizeRequest) {
	defer s.finishLoading()

	routes, err := s.api.Optimize(ctx, req)
	if err != nil {
		log.Printf("❌ [SESSION %s] Optimization failed: %v", s.ID, err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Printf("🗑️  [SESSION %s] Discarding routes that arrived after close", s.ID)
		return
	}
	s.routes = routes.Clone()
	s.refreshBinsLocked()
	s.mu.Unlock()

	log.Printf("✅ [SESSION %s] Routes updated: %d", s.ID, len(routes))
	s.publishScene()
}

func (s *Session) finishLoading() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	was := s.loading
	s.loading = false
	s.mu.Unlock()

	s.animator.LoadingChanged(was, false)
	s.publishState()
}

// RefreshBins re-fetches the bin snapshot
func (s *Session) RefreshBins() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usableLocked(); err != nil {
		return err
	}
	if s.view != ViewOperational {
		return ErrNotOperational
	}
	s.refreshBinsLocked()
	return nil
}

func (s *Session) refreshBinsLocked() {
	s.spawnLocked(func(ctx context.Context) {
		body, err := s.api.FetchBins(ctx)
		if err != nil {
			log.Printf("❌ [SESSION %s] Failed to fetch bins: %v", s.ID, err)
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			log.Printf("🗑️  [SESSION %s] Discarding bins that arrived after close", s.ID)
			return
		}
		s.binRevision++
		s.bins = models.NewBinSnapshot(s.binRevision, body)
		s.mu.Unlock()

		s.publishState()
		s.publishScene()
	})
}

// spawnLocked runs f in the background, tracked for Wait. Caller holds mu.
func (s *Session) spawnLocked(f func(ctx context.Context)) {
	if s.closed {
		return
	}
	s.inflight++
	go func() {
		defer s.settle()
		f(s.ctx)
	}()
}

func (s *Session) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.settled.Broadcast()
	}
}

// Wait blocks until every outstanding remote call has returned and been applied.
// Calls started while waiting are waited for too.
func (s *Session) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.settled.Wait()
	}
}

func (s *Session) usableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.lastActive = s.opts.Now()
	return nil
}

// Close tears the session down: timers are cancelled, requests aborted, late results dropped
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	timers := s.introTimers
	s.introTimers = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	s.animator.Stop()
	s.cancel()
	log.Printf("🔴 [SESSION %s] Closed", s.ID)
}

// Touch marks the session as in use without changing it. Reads and live
// sockets call it so that a watched session is never swept as idle.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.lastActive = s.opts.Now()
	}
}

// Closed reports whether Close has run
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastActive is the time of the last operator action
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// View returns the current view state
func (s *Session) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Phase returns the pipeline phase
func (s *Session) Phase() pipeline.Phase {
	return s.animator.Phase()
}

// Routes returns a copy of the current route set
func (s *Session) Routes() models.RouteSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routes.Clone()
}

// Bins returns the current bin snapshot
func (s *Session) Bins() models.BinSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bins
}

// Snapshot returns the externally visible state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	phase := s.animator.Phase()
	binCount := 0
	if bins, err := s.bins.Bins(); err == nil {
		binCount = len(bins)
	}

	return Snapshot{
		SessionID:      s.ID,
		View:           s.view,
		IntroStage:     s.introStage,
		Phase:          phase,
		PhaseLabel:     phase.Label(),
		Loading:        s.loading,
		TriggerEnabled: !s.closed && s.view == ViewOperational && !s.loading && phase == pipeline.PhaseIdle,
		Controls:       s.controls,
		Metrics:        ComputeMetrics(s.routes),
		BinCount:       binCount,
		BinsRevision:   s.bins.Revision,
		RouteCount:     len(s.routes),
	}
}

// Scene renders the current bins and routes
func (s *Session) Scene() SceneView {
	s.mu.Lock()
	bins := s.bins
	routes := s.routes.Clone()
	s.mu.Unlock()

	return newSceneView(bins.Revision, s.renderer.Render(bins, routes))
}

func (s *Session) onPhase(p pipeline.Phase) {
	if s.Closed() {
		return
	}
	s.opts.Publish(s.ID, Event{Type: EventPhase, Data: PhaseUpdate{Phase: p, Label: p.Label()}})
	s.publishState()
}

func (s *Session) publishState() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.opts.Publish(s.ID, Event{Type: EventState, Data: snap})
}

func (s *Session) publishScene() {
	if s.Closed() {
		return
	}
	s.opts.Publish(s.ID, Event{Type: EventScene, Data: s.Scene()})
}
