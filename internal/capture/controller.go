package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridio/iriscore/internal/config"
	"github.com/veridio/iriscore/internal/db"
	"github.com/veridio/iriscore/internal/imgstore"
	"github.com/veridio/iriscore/internal/iris"
	"github.com/veridio/iriscore/internal/monitoring"
	"github.com/veridio/iriscore/internal/timeutil"
)

// SessionState is the controller's lifecycle state.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateLiveDetect SessionState = "live_detect"
	StateBurst      SessionState = "burst"
	StateProcess    SessionState = "process"
)

// EventKind labels controller events delivered to the UI layer.
type EventKind string

const (
	// EventStatus carries a live-detection readiness update.
	EventStatus EventKind = "status"
	// EventBurstStarted marks the live-detect → burst transition.
	EventBurstStarted EventKind = "burst_started"
	// EventReposition asks the user to shift slightly between
	// enrollment bursts.
	EventReposition EventKind = "reposition"
	// EventEnrolled reports a completed enrollment with its record.
	EventEnrolled EventKind = "enrolled"
	// EventMatchConfirmed reports a verification hit in the confirmed
	// zone.
	EventMatchConfirmed EventKind = "match_confirmed"
	// EventMatchSuggested reports candidates needing human
	// disambiguation.
	EventMatchSuggested EventKind = "match_suggested"
	// EventNoMatch reports that no candidate reached the suggest zone;
	// the UI may offer enrollment.
	EventNoMatch EventKind = "no_match"
	// EventError surfaces a burst- or session-level failure.
	EventError EventKind = "error"
)

// Event is one controller → UI message.
type Event struct {
	Kind       EventKind
	Status     iris.DetectionStatus
	Err        error
	Candidates []Candidate
	Record     *db.SubjectRecord
}

// Controller runs one capture session as a four-state machine on its own
// event loop. Camera frames arrive on a channel; heavyweight pipeline
// passes run on worker goroutines and return as messages, so the loop
// never blocks longer than a frame budget.
type Controller struct {
	cfg     *config.CaptureConfig
	cam     Camera
	repo    Repository
	store   *imgstore.Store
	subject *db.SubjectRecord
	clock   timeutil.Clock

	events    chan Event
	frames    chan *iris.Image
	quickCh   chan quickResult
	scoredCh  chan scoredResult
	processed chan processResult

	ctx     context.Context
	state   SessionState
	workers sync.WaitGroup

	analyzing       bool
	lastAnalysis    time.Time
	readySince      time.Time
	repositionUntil time.Time
	burstDeadline   time.Time
	burst           []*ScoredFrame
	pool            []iris.Template
	burstsDone      int
	bestFrame       *iris.Image
	locked          bool

	done   bool
	runErr error
}

type quickResult struct {
	status iris.DetectionStatus
}

type scoredResult struct {
	frame *ScoredFrame
	err   error
}

type processResult struct {
	templates []iris.Template
	best      *iris.Image
}

// Option configures a Controller.
type Option func(*Controller)

// WithImageStore stores the best enrollment frame as the subject's eye
// image.
func WithImageStore(s *imgstore.Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithSubject supplies the identity record an enrollment session fills in.
func WithSubject(rec *db.SubjectRecord) Option {
	return func(c *Controller) { c.subject = rec }
}

// WithClock replaces the wall clock driving hold and deadline timing.
func WithClock(clk timeutil.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// New builds a controller for one capture session.
func New(cfg *config.CaptureConfig, cam Camera, repo Repository, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		cam:       cam,
		repo:      repo,
		events:    make(chan Event, 32),
		frames:    make(chan *iris.Image, 4),
		quickCh:   make(chan quickResult, 1),
		scoredCh:  make(chan scoredResult, 1),
		processed: make(chan processResult, 1),
		state:     StateIdle,
		clock:     timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the controller → UI message stream. It is closed when Run
// returns.
func (c *Controller) Events() <-chan Event { return c.events }

// Run executes the session until a terminal decision, a session-level
// error, or context cancellation. On any exit path the frame stream is
// stopped, buffered frames are released, and AF/AE locks are restored.
func (c *Controller) Run(ctx context.Context) error {
	defer c.cleanup()

	if c.cfg.GetMode() == config.ModeEnrollment && c.subject == nil {
		return fmt.Errorf("enrollment session requires a subject record")
	}

	c.ctx = ctx
	if err := c.cam.Start(ctx, c.onFrame); err != nil {
		return fmt.Errorf("%w: %v", iris.ErrCameraUnavailable, err)
	}
	c.state = StateLiveDetect

	ticker := c.clock.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case img := <-c.frames:
			c.handleFrame(img)
		case res := <-c.quickCh:
			c.handleQuick(res)
		case res := <-c.scoredCh:
			c.handleScored(res)
		case res := <-c.processed:
			c.handleProcessed(res)
		case <-ticker.C():
			c.tick()
		}
		if c.done {
			return c.runErr
		}
	}
}

// onFrame runs on the camera's delivery goroutine; it hands the frame to
// the loop or drops it when the loop is behind.
func (c *Controller) onFrame(f Frame) {
	img, err := f.Image()
	if err != nil {
		monitoring.Debugf("capture: bad frame: %v", err)
		return
	}
	select {
	case c.frames <- img:
	default:
		img.Release()
	}
}

func (c *Controller) handleFrame(img *iris.Image) {
	now := c.clock.Now()
	switch c.state {
	case StateLiveDetect:
		if c.analyzing || now.Before(c.repositionUntil) || now.Sub(c.lastAnalysis) < c.cfg.GetFrameInterval() {
			img.Release()
			return
		}
		c.analyzing = true
		c.lastAnalysis = now
		c.workers.Add(1)
		go func() {
			defer c.workers.Done()
			status := iris.QuickDetect(img)
			img.Release()
			c.quickCh <- quickResult{status: status}
		}()

	case StateBurst:
		if c.analyzing || len(c.burst) >= c.cfg.GetBurstTargetFrames() {
			img.Release()
			return
		}
		c.analyzing = true
		c.workers.Add(1)
		go func() {
			defer c.workers.Done()
			frame, err := runPipeline(img, c.cfg.GetPipelineSharpness())
			c.scoredCh <- scoredResult{frame: frame, err: err}
		}()

	default:
		img.Release()
	}
}

func (c *Controller) handleQuick(res quickResult) {
	c.analyzing = false
	if c.state != StateLiveDetect {
		return
	}
	c.emit(Event{Kind: EventStatus, Status: res.status})
	if res.status == iris.DetectReady {
		if c.readySince.IsZero() {
			c.readySince = c.clock.Now()
		}
	} else {
		c.readySince = time.Time{}
	}
	c.maybeEnterBurst()
}

func (c *Controller) handleScored(res scoredResult) {
	c.analyzing = false
	if c.state != StateBurst {
		if res.frame != nil {
			res.frame.Release()
		}
		return
	}
	if res.err != nil {
		// Per-frame soft failure; the burst keeps sampling.
		monitoring.Debugf("capture: burst frame rejected: %v", res.err)
	} else {
		c.burst = append(c.burst, res.frame)
	}
	c.maybeFinishBurst()
}

func (c *Controller) tick() {
	c.maybeEnterBurst()
	c.maybeFinishBurst()
}

func (c *Controller) maybeEnterBurst() {
	if c.state != StateLiveDetect || c.readySince.IsZero() {
		return
	}
	if c.clock.Since(c.readySince) < c.cfg.GetReadyHold() {
		return
	}
	c.state = StateBurst
	c.readySince = time.Time{}
	c.burstDeadline = c.clock.Now().Add(c.cfg.GetBurstMax())
	if err := c.cam.LockFocusExposure(); err != nil {
		monitoring.Logf("capture: AF/AE lock failed, continuing: %v", err)
	} else {
		c.locked = true
	}
	c.emit(Event{Kind: EventBurstStarted})
}

func (c *Controller) maybeFinishBurst() {
	if c.state != StateBurst || c.analyzing {
		return
	}
	if len(c.burst) < c.cfg.GetBurstTargetFrames() && c.clock.Now().Before(c.burstDeadline) {
		return
	}
	c.state = StateProcess
	c.restoreCamera()

	frames := c.burst
	c.burst = nil

	minScore := c.cfg.GetMinScoreVerify()
	keep := 1
	if c.cfg.GetMode() == config.ModeEnrollment {
		minScore = c.cfg.GetMinScoreEnroll()
		keep = 3
	}
	topN := c.cfg.GetSelectTopFrames()
	consistency := c.cfg.GetConsistencyThreshold()

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		selected := selectFrames(frames, minScore, topN)
		templates := encodeSelected(selected, consistency, keep)
		var best *iris.Image
		if len(selected) > 0 && len(templates) > 0 {
			best = selected[0].Image.Clone()
		}
		for _, f := range frames {
			f.Release()
		}
		c.processed <- processResult{templates: templates, best: best}
	}()
}

func (c *Controller) handleProcessed(res processResult) {
	if len(res.templates) == 0 {
		if res.best != nil {
			res.best.Release()
		}
		c.emit(Event{Kind: EventError, Err: iris.ErrQualityTooLow})
		c.state = StateLiveDetect
		return
	}

	if c.cfg.GetMode() == config.ModeEnrollment {
		c.finishEnrollmentBurst(res)
		return
	}
	c.finishVerification(res)
}

func (c *Controller) finishEnrollmentBurst(res processResult) {
	c.pool = append(c.pool, res.templates...)
	c.burstsDone++
	if res.best != nil {
		if c.bestFrame != nil {
			c.bestFrame.Release()
		}
		c.bestFrame = res.best
	}

	if c.burstsDone < c.cfg.GetEnrollmentBursts() {
		c.emit(Event{Kind: EventReposition})
		c.repositionUntil = c.clock.Now().Add(c.cfg.GetRepositionHold())
		c.state = StateLiveDetect
		return
	}

	diverse := iris.SelectDiverse(c.pool, 3)
	rec := c.subject
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Templates = rec.Templates[:0]
	for _, tpl := range diverse {
		rec.Templates = append(rec.Templates, []float64(tpl))
	}
	if c.store != nil && c.bestFrame != nil {
		path, err := c.store.SavePNG(c.bestFrame)
		if err != nil {
			monitoring.Logf("capture: failed to store eye image: %v", err)
		} else {
			rec.IrisImagePath = path
		}
	}

	if err := c.repo.Insert(c.ctx, rec); err != nil {
		err = fmt.Errorf("%w: %v", iris.ErrRepositoryUnavailable, err)
		c.emit(Event{Kind: EventError, Err: err})
		c.finish(err)
		return
	}
	c.emit(Event{Kind: EventEnrolled, Record: rec})
	c.finish(nil)
}

func (c *Controller) finishVerification(res processResult) {
	if res.best != nil {
		res.best.Release()
	}
	probe := res.templates[0]
	cands, err := FindCandidates(c.ctx, c.repo, probe,
		c.cfg.GetConfirmThreshold(), c.cfg.GetSuggestThreshold())
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		c.finish(err)
		return
	}

	switch {
	case len(cands) > 0 && cands[0].Zone == iris.ZoneConfirmed:
		c.emit(Event{Kind: EventMatchConfirmed, Candidates: cands[:1], Record: cands[0].Record})
	case len(cands) > 0:
		c.emit(Event{Kind: EventMatchSuggested, Candidates: cands})
	default:
		c.emit(Event{Kind: EventNoMatch})
	}
	c.finish(nil)
}

func (c *Controller) finish(err error) {
	c.done = true
	c.runErr = err
	c.state = StateIdle
}

// restoreCamera returns AF/AE to automatic after a burst.
func (c *Controller) restoreCamera() {
	if !c.locked {
		return
	}
	c.locked = false
	if err := c.cam.UnlockFocusExposure(); err != nil {
		monitoring.Logf("capture: AF/AE unlock failed: %v", err)
	}
}

func (c *Controller) cleanup() {
	c.cam.Stop()
	c.restoreCamera()

	// Workers never block on their buffered result channels, so waiting
	// here is bounded; it guarantees the drain below sees results that
	// were still being computed when the loop exited.
	c.workers.Wait()
	for {
		select {
		case img := <-c.frames:
			img.Release()
		case res := <-c.scoredCh:
			if res.frame != nil {
				res.frame.Release()
			}
		case res := <-c.processed:
			if res.best != nil {
				res.best.Release()
			}
		default:
			goto drained
		}
	}
drained:
	for _, f := range c.burst {
		f.Release()
	}
	c.burst = nil
	if c.bestFrame != nil {
		c.bestFrame.Release()
		c.bestFrame = nil
	}
	close(c.events)
}

// emit delivers an event to the UI. Status updates are droppable when the
// consumer lags; decision and error events block until delivered.
func (c *Controller) emit(ev Event) {
	if ev.Kind == EventStatus {
		select {
		case c.events <- ev:
		default:
		}
		return
	}
	c.events <- ev
}
