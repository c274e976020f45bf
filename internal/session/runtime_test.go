package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhiit/openhiit/internal/catalog"
	"github.com/openhiit/openhiit/internal/events"
	"github.com/openhiit/openhiit/internal/timefmt"
)

// fakePlayer counts cue plays.
type fakePlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

// newManualRuntime builds a Runtime without starting its goroutine, so
// tests can drive handleCommand/handleTick deterministically. The ticker
// period is effectively inert; tests synthesize ticks themselves.
func newManualRuntime(t *testing.T, opts ...RuntimeOption) *Runtime {
	t.Helper()
	r := &Runtime{
		logger:        testLogger(),
		format:        timefmt.Format,
		status:        StatusAwaitingSession,
		beepStepIndex: -1,
		beepSecond:    -1,
		tickChan:      make(chan Tick, 64),
		cmdChan:       make(chan runtimeCommand, 4),
		doneChan:      make(chan struct{}),
		views:         events.NewObservable[SessionView](true),
	}
	r.ticker = NewStepTicker(time.Hour, r.tickChan, r.logger)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// recordViews subscribes and appends every published view.
func recordViews(r *Runtime) *[]SessionView {
	var views []SessionView
	r.Views().Subscribe(func(v SessionView) {
		views = append(views, v)
	})
	return &views
}

// tick synthesizes a ticker emission for the active run.
func (r *Runtime) tick(remaining int64, total int64) {
	r.handleTick(Tick{
		Run: r.activeRun,
		State: TimerState{
			MillisRemaining:     remaining,
			RemainingPercentage: ratio(remaining, total),
		},
	})
}

func buildTestSession(t *testing.T, beep bool) *Session {
	t.Helper()
	cfg := Config{
		WorkPeriodMs:        20_000,
		RestPeriodMs:        10_000,
		WorkPeriodsPerCycle: 2,
		Cycles:              1,
		PrepareLengthMs:     5_000,
		PeriodCountDownMs:   5_000,
		BeepEnabled:         beep,
		SelectedTypes:       []catalog.Type{catalog.TypeCore},
	}
	s, err := Build(cfg, []string{"u"})
	require.NoError(t, err)
	// Prepare, R, W, R, W, R
	require.Len(t, s.Steps, 6)
	return s
}

func TestRuntime_LoadStartsFirstStepRun(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)

	r.handleLoad(s)

	assert.Equal(t, StatusRunning, r.status)
	assert.Equal(t, 0, r.stepIndex)
	assert.Equal(t, s.Steps[0].RemainingAfterMeMs, r.runOffsetMs)

	// The ticker's immediate first emission carries the prepare duration.
	select {
	case tk := <-r.tickChan:
		assert.Equal(t, r.activeRun, tk.Run)
		assert.Equal(t, s.Steps[0].DurationMs, tk.State.MillisRemaining)
	case <-time.After(time.Second):
		t.Fatal("no initial tick after load")
	}
}

func TestRuntime_TickEmitsRunningView(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	r.tick(5_000, 5_000)

	require.Len(t, *views, 1)
	v := (*views)[0]
	assert.Equal(t, StatusRunning, v.Status)
	assert.Equal(t, 0, v.StepIndex)
	assert.Equal(t, StepPrepare, v.Step.Kind)
	assert.Equal(t, int64(5_000), v.StepRemainingMs)
	assert.Equal(t, s.DurationMs, v.SessionRemainingMs)
	assert.Equal(t, 1.0, v.SessionProgress)
	assert.Equal(t, "5s", v.StepRemaining)
}

func TestRuntime_PerStepRunEndAdvancesWithoutEmitting(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	previousRun := r.activeRun
	r.tick(0, 5_000)

	// The zero instant of the prepare step is not rendered; the next
	// run's own first emission renders the new step instead.
	assert.Empty(t, *views)
	assert.Equal(t, 1, r.stepIndex)
	assert.NotEqual(t, previousRun, r.activeRun, "a fresh run must start for the next step")
	assert.Equal(t, s.Steps[1].RemainingAfterMeMs, r.runOffsetMs)
}

func TestRuntime_CombinedRunCrossesBoundaryMidRun(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	// Jump straight into a combined run covering the whole session, the
	// shape a resume produces.
	r.runOffsetMs = 0
	r.activeRun = r.ticker.Start(s.DurationMs)

	// 2s into the first rest (prepare 5s + rest 10s: remaining total
	// minus 7s) without the run ending.
	r.tick(s.DurationMs-7_000, s.DurationMs)

	require.Len(t, *views, 1)
	v := (*views)[0]
	assert.Equal(t, 1, v.StepIndex, "boundary crossed inside the run, no restart")
	assert.Equal(t, StepRest, v.Step.Kind)
	assert.Equal(t, int64(8_000), v.StepRemainingMs)
}

func TestRuntime_SessionRemainingZeroFinishes(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	r.runOffsetMs = 0
	r.activeRun = r.ticker.Start(s.DurationMs)
	r.tick(0, s.DurationMs)

	assert.Equal(t, StatusFinished, r.status)
	require.NotEmpty(t, *views)
	last := (*views)[len(*views)-1]
	assert.Equal(t, StatusFinished, last.Status)
	require.NotNil(t, last.Summary)
	assert.Equal(t, int64(2*20_000+2*10_000), last.Summary.DurationMs)
	assert.Len(t, last.Summary.CompletedWork, 2)
}

func TestRuntime_PauseDuringWorkStepsBackToRest(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	// Walk into the first work step (index 2).
	r.tick(0, 5_000)  // prepare done -> rest
	r.tick(0, 10_000) // rest done -> work
	require.Equal(t, 2, r.stepIndex)
	require.Equal(t, StepWork, s.Steps[2].Kind)

	r.handlePause()

	assert.Equal(t, StatusPaused, r.status)
	assert.Equal(t, 1, r.stepIndex, "resume point steps back to the preceding rest")

	require.NotEmpty(t, *views)
	paused := (*views)[len(*views)-1]
	assert.Equal(t, StatusPaused, paused.Status)
	assert.Equal(t, StepRest, paused.Step.Kind)
	assert.Equal(t, s.Steps[1].DurationMs, paused.StepRemainingMs)
	assert.Equal(t, s.Steps[1].DurationMs+s.Steps[1].RemainingAfterMeMs, paused.SessionRemainingMs)
}

func TestRuntime_PauseDuringRestHoldsIndex(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)

	r.handleLoad(s)
	r.tick(0, 5_000) // prepare done -> rest
	require.Equal(t, 1, r.stepIndex)

	r.handlePause()
	assert.Equal(t, 1, r.stepIndex)
}

func TestRuntime_ResumeRunsCombinedDuration(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)

	r.handleLoad(s)
	r.tick(0, 5_000)
	r.tick(0, 10_000)
	r.handlePause()
	require.Equal(t, 1, r.stepIndex)

	// Drain any buffered ticker emissions before resuming.
	for len(r.tickChan) > 0 {
		<-r.tickChan
	}

	r.handleResume()
	assert.Equal(t, StatusRunning, r.status)
	assert.Zero(t, r.runOffsetMs, "resume threads the session countdown through one run")

	want := s.Steps[1].DurationMs + s.Steps[1].RemainingAfterMeMs
	select {
	case tk := <-r.tickChan:
		assert.Equal(t, r.activeRun, tk.Run)
		assert.Equal(t, want, tk.State.MillisRemaining,
			"resume run covers the resume step plus everything after it")
	case <-time.After(time.Second):
		t.Fatal("no tick after resume")
	}
}

func TestRuntime_AbortSummarizesAtCurrentIndex(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	r.tick(0, 5_000)
	r.tick(0, 10_000)
	require.Equal(t, 2, r.stepIndex)

	r.handleAbort()

	assert.Equal(t, StatusFinished, r.status)
	last := (*views)[len(*views)-1]
	require.NotNil(t, last.Summary)
	// Aborted on the first work step: that work plus the first rest count.
	assert.Equal(t, int64(20_000+10_000), last.Summary.DurationMs)
}

func TestRuntime_StaleTickDropped(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	r.handleTick(Tick{Run: r.activeRun + 99, State: TimerState{MillisRemaining: 1_000}})

	assert.Empty(t, *views)
	assert.Equal(t, 0, r.stepIndex)
}

func TestRuntime_CountdownPayloadAndBeep(t *testing.T) {
	player := &fakePlayer{}
	r := newManualRuntime(t, WithCuePlayer(player))
	s := buildTestSession(t, true)
	views := recordViews(r)

	r.handleLoad(s)
	r.tick(0, 5_000)  // -> first rest (no countdown)
	r.tick(0, 10_000) // -> first work (countdown 5s)
	require.Equal(t, 2, r.stepIndex)

	r.tick(3_000, 20_000) // inside the countdown window
	require.NotEmpty(t, *views)
	v := (*views)[len(*views)-1]
	require.NotNil(t, v.CountDown)
	assert.Equal(t, int64(3), v.CountDown.SecondsDisplay)
	assert.InDelta(t, 0.6, v.CountDown.Progress, 1e-9)
	assert.True(t, v.CountDown.PlayBeep)
	firstPlays := player.count()
	assert.Greater(t, firstPlays, 0)

	// Same displayed second again: no second beep.
	r.tick(2_500, 20_000)
	v = (*views)[len(*views)-1]
	require.NotNil(t, v.CountDown)
	assert.Equal(t, int64(3), v.CountDown.SecondsDisplay)
	assert.False(t, v.CountDown.PlayBeep)
	assert.Equal(t, firstPlays, player.count())

	// Next second beeps again.
	r.tick(2_000, 20_000)
	v = (*views)[len(*views)-1]
	require.NotNil(t, v.CountDown)
	assert.Equal(t, int64(2), v.CountDown.SecondsDisplay)
	assert.True(t, v.CountDown.PlayBeep)
}

func TestRuntime_NoCountdownOutsideWindow(t *testing.T) {
	r := newManualRuntime(t)
	s := buildTestSession(t, true)
	views := recordViews(r)

	r.handleLoad(s)
	r.tick(0, 5_000)
	r.tick(0, 10_000)
	r.tick(12_000, 20_000) // work step, well before the 5s window

	v := (*views)[len(*views)-1]
	assert.Nil(t, v.CountDown)
}

func TestRuntime_BeepDisabledSuppressesCue(t *testing.T) {
	player := &fakePlayer{}
	r := newManualRuntime(t, WithCuePlayer(player))
	s := buildTestSession(t, false)
	views := recordViews(r)

	r.handleLoad(s)
	r.tick(0, 5_000)
	r.tick(0, 10_000)
	r.tick(3_000, 20_000)

	v := (*views)[len(*views)-1]
	require.NotNil(t, v.CountDown, "countdown payload still shown")
	assert.False(t, v.CountDown.PlayBeep)
	assert.Zero(t, player.count())
}

func TestRuntime_CommandsWithoutSession(t *testing.T) {
	r := NewRuntime(testLogger(), WithTickPeriod(10*time.Millisecond))
	defer r.Shutdown()

	var mu sync.Mutex
	var errored bool
	r.Views().Subscribe(func(v SessionView) {
		mu.Lock()
		if v.Status == StatusErrored {
			errored = true
		}
		mu.Unlock()
	})

	err := r.Pause()
	assert.ErrorIs(t, err, ErrSessionNotFound)

	mu.Lock()
	assert.True(t, errored, "an error view must be surfaced")
	mu.Unlock()
}

func TestRuntime_LoadNilSession(t *testing.T) {
	r := NewRuntime(testLogger())
	defer r.Shutdown()

	err := r.Load(nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// End-to-end run against the real clock with a short tick period.
func TestRuntime_FullSessionIntegration(t *testing.T) {
	player := &fakePlayer{}
	r := NewRuntime(testLogger(),
		WithTickPeriod(10*time.Millisecond),
		WithCuePlayer(player),
	)
	defer r.Shutdown()

	cfg := Config{
		WorkPeriodMs:        60,
		RestPeriodMs:        30,
		WorkPeriodsPerCycle: 2,
		Cycles:              1,
		PrepareLengthMs:     20,
		PeriodCountDownMs:   10,
		BeepEnabled:         true,
		SelectedTypes:       []catalog.Type{catalog.TypeCore},
	}
	s, err := Build(cfg, []string{"u"})
	require.NoError(t, err)

	var mu sync.Mutex
	var running []SessionView
	finished := make(chan SessionView, 1)
	r.Views().Subscribe(func(v SessionView) {
		mu.Lock()
		defer mu.Unlock()
		switch v.Status {
		case StatusRunning:
			running = append(running, v)
		case StatusFinished:
			select {
			case finished <- v:
			default:
			}
		}
	})

	require.NoError(t, r.Load(s))

	var final SessionView
	select {
	case final = <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("session never finished")
	}

	require.NotNil(t, final.Summary)
	assert.Equal(t, int64(2*60+2*30), final.Summary.DurationMs)
	assert.Len(t, final.Summary.CompletedWork, 2)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, running)
	for i := 1; i < len(running); i++ {
		assert.LessOrEqual(t, running[i].SessionRemainingMs, running[i-1].SessionRemainingMs,
			"session remaining never increases")
	}
	for _, v := range running {
		assert.GreaterOrEqual(t, v.SessionProgress, 0.0)
		assert.LessOrEqual(t, v.SessionProgress, 1.0)
	}
	assert.Greater(t, player.count(), 0, "countdown cues must have fired")
}

// Pause mid-work and resume; no session time may be lost or gained
// beyond the deliberate resume-into-rest rewind.
func TestRuntime_PauseResumeIntegration(t *testing.T) {
	r := NewRuntime(testLogger(), WithTickPeriod(10*time.Millisecond))
	defer r.Shutdown()

	cfg := Config{
		WorkPeriodMs:        60,
		RestPeriodMs:        30,
		WorkPeriodsPerCycle: 2,
		Cycles:              1,
		PrepareLengthMs:     20,
		PeriodCountDownMs:   10,
		SelectedTypes:       []catalog.Type{catalog.TypeCore},
	}
	s, err := Build(cfg, []string{"u"})
	require.NoError(t, err)

	var pausedOnce, resumedOnce sync.Once
	pausedViews := make(chan SessionView, 1)
	finished := make(chan SessionView, 1)

	r.Views().Subscribe(func(v SessionView) {
		switch v.Status {
		case StatusRunning:
			if v.Step.Kind == StepWork {
				pausedOnce.Do(func() {
					assert.NoError(t, r.Pause())
				})
			}
		case StatusPaused:
			select {
			case pausedViews <- v:
			default:
			}
			resumedOnce.Do(func() {
				go func() { assert.NoError(t, r.Resume()) }()
			})
		case StatusFinished:
			select {
			case finished <- v:
			default:
			}
		}
	})

	require.NoError(t, r.Load(s))

	select {
	case paused := <-pausedViews:
		assert.Equal(t, StepRest, paused.Step.Kind, "users always resume into a rest")
		assert.Equal(t, paused.Step.DurationMs, paused.StepRemainingMs)
		assert.Equal(t, paused.Step.DurationMs+paused.Step.RemainingAfterMeMs, paused.SessionRemainingMs)
	case <-time.After(10 * time.Second):
		t.Fatal("never paused")
	}

	select {
	case final := <-finished:
		require.NotNil(t, final.Summary)
		assert.Equal(t, int64(2*60+2*30), final.Summary.DurationMs,
			"pause/resume must not lose completed session time")
	case <-time.After(10 * time.Second):
		t.Fatal("session never finished after resume")
	}
}
