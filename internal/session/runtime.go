package session

import (
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/openhiit/openhiit/internal/events"
	"github.com/openhiit/openhiit/internal/timefmt"
)

// CuePlayer plays the audible countdown cue. Play is fire-and-forget:
// failures must be tolerated silently and must never block timing.
type CuePlayer interface {
	Play()
}

// runtimeCommand represents commands sent to the runtime goroutine.
type runtimeCommand struct {
	kind    commandKind
	session *Session
}

type commandKind int

const (
	cmdLoad commandKind = iota
	cmdPause
	cmdResume
	cmdAbort
)

// DefaultTickPeriod is the emission interval of the runtime's ticker.
const DefaultTickPeriod = time.Second

// Runtime drives a Session through its steps in real time. All mutating
// work (tick handling, pause, resume, abort) is serialized onto one
// goroutine; public methods enqueue commands and snapshot reads go
// through an RWMutex, so no two ticks' boundary logic can interleave.
type Runtime struct {
	logger *log.Logger
	format timefmt.Formatter
	player CuePlayer

	// Mutable session state (protected by mu, mutated only by the
	// runtime goroutine).
	mu        sync.RWMutex
	session   *Session
	status    Status
	stepIndex int

	// runOffsetMs is the session-level remaining time at the instant the
	// active ticker run reaches zero. Per-step runs carry the current
	// step's RemainingAfterMeMs; the combined run after a resume carries 0.
	runOffsetMs int64
	activeRun   uint64

	// Countdown beep bookkeeping so one second of one step beeps once.
	beepStepIndex int
	beepSecond    int64

	ticker   *StepTicker
	tickChan chan Tick

	// Goroutine management.
	cmdChan      chan runtimeCommand
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once

	views *events.Observable[SessionView]
}

// RuntimeOption customizes a Runtime.
type RuntimeOption func(*Runtime)

// WithTickPeriod overrides the ticker emission interval. Tests use a
// short period; the default is one second.
func WithTickPeriod(period time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.ticker = NewStepTicker(period, r.tickChan, r.logger)
	}
}

// WithCuePlayer installs the audible cue side effect.
func WithCuePlayer(player CuePlayer) RuntimeOption {
	return func(r *Runtime) {
		r.player = player
	}
}

// WithFormatter overrides the duration formatter used in views.
func WithFormatter(format timefmt.Formatter) RuntimeOption {
	return func(r *Runtime) {
		r.format = format
	}
}

// NewRuntime creates a Runtime and starts its goroutine.
func NewRuntime(logger *log.Logger, opts ...RuntimeOption) *Runtime {
	if logger == nil {
		panic("Runtime: logger cannot be nil")
	}

	r := &Runtime{
		logger:        logger,
		format:        timefmt.Format,
		status:        StatusAwaitingSession,
		beepStepIndex: -1,
		beepSecond:    -1,
		tickChan:      make(chan Tick, 16),
		cmdChan:       make(chan runtimeCommand, 4),
		doneChan:      make(chan struct{}),
		views:         events.NewObservable[SessionView](true),
	}
	r.ticker = NewStepTicker(DefaultTickPeriod, r.tickChan, r.logger)

	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.runLoop()
	return r
}

// Views exposes the derived-view stream. Subscribers receive the last
// published view immediately.
func (r *Runtime) Views() *events.Observable[SessionView] {
	return r.views
}

// Status returns the current lifecycle state.
func (r *Runtime) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Load installs a freshly built session and starts ticking through its
// first step. Valid only before any session has been loaded; a Runtime
// instance drives exactly one session.
func (r *Runtime) Load(s *Session) error {
	if s == nil || len(s.Steps) == 0 {
		r.fail(ErrSessionNotFound)
		return ErrSessionNotFound
	}

	r.mu.RLock()
	status := r.status
	r.mu.RUnlock()
	if status != StatusAwaitingSession {
		r.logger.Printf("Runtime: cannot load a session while %s", status)
		return ErrSessionNotFound
	}

	r.cmdChan <- runtimeCommand{kind: cmdLoad, session: s}
	return nil
}

// Pause suspends the run. If the current step is a work period, the
// resume point steps back to the rest that precedes it, so users always
// resume into a rest, never mid-exercise.
func (r *Runtime) Pause() error {
	return r.enqueue(cmdPause, StatusRunning)
}

// Resume restarts the countdown from the resume point fixed by Pause.
func (r *Runtime) Resume() error {
	return r.enqueue(cmdResume, StatusPaused)
}

// Abort terminates the session early, summarizing whatever was reached.
// Valid while running or paused.
func (r *Runtime) Abort() error {
	return r.enqueue(cmdAbort, StatusRunning, StatusPaused)
}

// Fail moves the runtime into the absorbing error state, e.g. when the
// builder could not produce a session from the resolved settings.
func (r *Runtime) Fail(err error) {
	r.fail(err)
}

// Shutdown stops the runtime goroutine and the ticker. Safe to call
// multiple times; only the first call has effect.
func (r *Runtime) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.doneChan)
		r.wg.Wait()
	})
}

func (r *Runtime) enqueue(kind commandKind, validFrom ...Status) error {
	r.mu.RLock()
	session := r.session
	status := r.status
	r.mu.RUnlock()

	if session == nil {
		r.fail(ErrSessionNotFound)
		return ErrSessionNotFound
	}

	valid := false
	for _, s := range validFrom {
		if status == s {
			valid = true
			break
		}
	}
	if !valid {
		// A mistimed command is a lifecycle-ordering bug upstream; log
		// and ignore rather than crash.
		r.logger.Printf("Runtime: dropping command %d while %s", kind, status)
		return nil
	}

	r.cmdChan <- runtimeCommand{kind: kind}
	return nil
}

func (r *Runtime) fail(err error) {
	r.mu.Lock()
	r.status = StatusErrored
	r.mu.Unlock()
	r.logger.Printf("Runtime: entering error state: %v", err)
	r.views.Publish(SessionView{Status: StatusErrored, Err: err})
}

// runLoop is the single goroutine that owns all mutations.
func (r *Runtime) runLoop() {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("Runtime: PANIC: %v\n%s", rec, debug.Stack())
			r.views.Publish(SessionView{Status: StatusErrored, Err: ErrSessionNotFound})
		}
	}()

	for {
		select {
		case <-r.doneChan:
			r.ticker.Cancel()
			return
		case cmd := <-r.cmdChan:
			r.handleCommand(cmd)
		case tk := <-r.tickChan:
			r.handleTick(tk)
		}
	}
}

func (r *Runtime) handleCommand(cmd runtimeCommand) {
	switch cmd.kind {
	case cmdLoad:
		r.handleLoad(cmd.session)
	case cmdPause:
		r.handlePause()
	case cmdResume:
		r.handleResume()
	case cmdAbort:
		r.handleAbort()
	}
}

func (r *Runtime) handleLoad(s *Session) {
	r.mu.Lock()
	if r.status != StatusAwaitingSession {
		r.mu.Unlock()
		return
	}
	r.session = s
	r.stepIndex = 0
	r.status = StatusRunning
	first := s.Steps[0]
	r.runOffsetMs = first.RemainingAfterMeMs
	r.activeRun = r.ticker.Start(first.DurationMs)
	r.mu.Unlock()

	r.logger.Printf("Runtime: session loaded, %d steps, %s total",
		len(s.Steps), r.format(s.DurationMs))
}

func (r *Runtime) handlePause() {
	r.mu.Lock()
	if r.status != StatusRunning {
		r.mu.Unlock()
		return
	}

	// Cancel before mutating state so a tick from the old run can never
	// be mistaken for the new state. Stale generations are dropped in
	// handleTick as well.
	r.ticker.Cancel()
	r.activeRun = 0

	// Resume always lands on a rest. Stepping back is safe because the
	// builder guarantees every work step is preceded by a rest (and the
	// prepare step precedes everything), so the index never underflows.
	// That ordering invariant is load-bearing here.
	if r.session.Steps[r.stepIndex].Kind == StepWork {
		r.stepIndex--
	}
	// The resume point replays its countdown from scratch.
	r.beepStepIndex = -1
	r.beepSecond = -1
	r.status = StatusPaused
	view := r.pausedViewLocked()
	r.mu.Unlock()

	r.logger.Printf("Runtime: paused at step %d", view.StepIndex)
	r.views.Publish(view)
}

// pausedViewLocked builds the frozen view of the resume point. Caller
// holds mu.
func (r *Runtime) pausedViewLocked() SessionView {
	step := r.session.Steps[r.stepIndex]
	sessionRemaining := step.DurationMs + step.RemainingAfterMeMs
	return SessionView{
		Status:             StatusPaused,
		StepIndex:          r.stepIndex,
		Step:               step,
		StepRemainingMs:    step.DurationMs,
		StepRemaining:      r.format(step.DurationMs),
		StepProgress:       1,
		SessionRemainingMs: sessionRemaining,
		SessionRemaining:   r.format(sessionRemaining),
		SessionProgress:    ratio(sessionRemaining, r.session.DurationMs),
	}
}

func (r *Runtime) handleResume() {
	r.mu.Lock()
	if r.status != StatusPaused {
		r.mu.Unlock()
		return
	}

	// One combined run covers the current step from its full duration
	// plus everything after it, threading the session-level countdown
	// through a single ticker run.
	step := r.session.Steps[r.stepIndex]
	total := step.DurationMs + step.RemainingAfterMeMs
	r.runOffsetMs = 0
	r.status = StatusRunning
	r.activeRun = r.ticker.Start(total)
	r.mu.Unlock()

	r.logger.Printf("Runtime: resumed at step %d, %s to go", r.stepIndex, r.format(total))
}

func (r *Runtime) handleAbort() {
	r.mu.Lock()
	if r.status != StatusRunning && r.status != StatusPaused {
		r.mu.Unlock()
		return
	}
	r.ticker.Cancel()
	r.activeRun = 0
	lastIndex := r.stepIndex
	r.mu.Unlock()

	r.logger.Printf("Runtime: aborted at step %d", lastIndex)
	r.finish(lastIndex)
}

func (r *Runtime) finish(lastIndex int) {
	r.mu.Lock()
	summary := Summarize(r.session, lastIndex, r.format)
	r.status = StatusFinished
	r.mu.Unlock()

	r.logger.Printf("Runtime: finished, %s of exercise, %d work periods completed",
		summary.FormattedDuration, len(summary.CompletedWork))
	r.views.Publish(SessionView{Status: StatusFinished, Summary: &summary})
}

// handleTick reconciles one ticker emission against step boundaries.
//
// The session-level remaining time is the tick's remaining plus the
// active run's offset. A step is deemed finished as soon as the session
// remaining reaches its precomputed RemainingAfterMeMs; the zero instant
// of the finished step is never emitted itself (the next state belongs
// to the following step), which avoids a double render and double beep
// at the boundary.
func (r *Runtime) handleTick(tk Tick) {
	r.mu.Lock()

	if r.status != StatusRunning || tk.Run != r.activeRun {
		// Stale run or a tick raced a pause/abort; drop it.
		r.mu.Unlock()
		return
	}

	sessionRemaining := tk.State.MillisRemaining + r.runOffsetMs
	steps := r.session.Steps

	// Cross as many boundaries as this tick has passed. Coarse tick
	// periods can consume a short step whole within the combined run.
	crossed := false
	for r.stepIndex < len(steps)-1 && sessionRemaining <= steps[r.stepIndex].RemainingAfterMeMs {
		finished := steps[r.stepIndex]
		if finished.CountDownLengthMs > 0 && r.session.BeepEnabled {
			r.playCue()
		}
		r.stepIndex++
		crossed = true
	}
	if crossed {
		r.logger.Printf("Runtime: advanced to step %d/%d", r.stepIndex+1, len(steps))
	}

	if sessionRemaining <= 0 {
		// Terminal regardless of which step is current.
		r.ticker.Cancel()
		r.activeRun = 0
		lastIndex := r.stepIndex
		r.mu.Unlock()
		r.finish(lastIndex)
		return
	}

	if tk.State.MillisRemaining == 0 {
		// A per-step run exhausted itself mid-session: start the next
		// step's run. Its immediate first emission renders the new step,
		// so nothing is emitted for the just-finished zero instant.
		step := steps[r.stepIndex]
		r.runOffsetMs = step.RemainingAfterMeMs
		r.activeRun = r.ticker.Start(step.DurationMs)
		r.mu.Unlock()
		return
	}

	view := r.runningViewLocked(sessionRemaining)
	r.mu.Unlock()
	r.views.Publish(view)
}

// runningViewLocked derives the per-tick view. Caller holds mu.
func (r *Runtime) runningViewLocked(sessionRemaining int64) SessionView {
	step := r.session.Steps[r.stepIndex]
	stepRemaining := sessionRemaining - step.RemainingAfterMeMs
	if stepRemaining < 0 {
		stepRemaining = 0
	}

	view := SessionView{
		Status:             StatusRunning,
		StepIndex:          r.stepIndex,
		Step:               step,
		StepRemainingMs:    stepRemaining,
		StepRemaining:      r.format(stepRemaining),
		StepProgress:       ratio(stepRemaining, step.DurationMs),
		SessionRemainingMs: sessionRemaining,
		SessionRemaining:   r.format(sessionRemaining),
		SessionProgress:    ratio(sessionRemaining, r.session.DurationMs),
	}

	if step.CountDownLengthMs > 0 && stepRemaining <= step.CountDownLengthMs {
		second := (stepRemaining + 999) / 1000
		cd := &CountDown{
			SecondsDisplay: second,
			Progress:       ratio(stepRemaining, step.CountDownLengthMs),
		}
		if r.session.BeepEnabled && (r.beepStepIndex != r.stepIndex || r.beepSecond != second) {
			cd.PlayBeep = true
			r.beepStepIndex = r.stepIndex
			r.beepSecond = second
			r.playCue()
		}
		view.CountDown = cd
	}

	return view
}

// playCue requests the audible cue. Failures inside the player are its
// own concern; the engine never waits on it.
func (r *Runtime) playCue() {
	if r.player == nil {
		return
	}
	r.player.Play()
}

// ratio returns remaining/total clamped to [0,1], treating a zero total
// as fully elapsed.
func ratio(remaining, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(remaining) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
