package session

import (
	"log"
	"sync"
	"time"

	"github.com/openhiit/openhiit/internal/safego"
)

// Tick is one emission of a StepTicker run, tagged with the run's
// generation so late ticks from a cancelled run can be discarded by the
// consumer.
type Tick struct {
	Run   uint64
	State TimerState
}

// StepTicker is a restartable real-time countdown. A run started with
// Start emits a TimerState once per tick period into the output channel:
// the first emission carries the full value immediately (so observers
// have a stable starting point without racing the timer), then strictly
// decreasing values down to exactly 0, after which the run stops.
//
// Only one run is active at a time; Start terminates any previous run
// first. Cancel stops emission without a final zero state.
type StepTicker struct {
	period time.Duration
	out    chan<- Tick
	logger *log.Logger

	mu     sync.Mutex
	run    uint64
	cancel chan struct{}
}

// NewStepTicker creates a StepTicker emitting into out every period.
func NewStepTicker(period time.Duration, out chan<- Tick, logger *log.Logger) *StepTicker {
	if period <= 0 {
		panic("StepTicker: period must be positive")
	}
	if out == nil {
		panic("StepTicker: output channel cannot be nil")
	}
	if logger == nil {
		panic("StepTicker: logger cannot be nil")
	}
	return &StepTicker{
		period: period,
		out:    out,
		logger: logger,
	}
}

// Start begins a new countdown over totalMs and returns the run
// generation its ticks will carry. Any in-flight run is cancelled first.
// A zero total emits a single zero state and stops.
func (t *StepTicker) Start(totalMs int64) uint64 {
	t.mu.Lock()
	if t.cancel != nil {
		close(t.cancel)
	}
	t.run++
	run := t.run
	cancel := make(chan struct{})
	t.cancel = cancel
	t.mu.Unlock()

	safego.Go(t.logger, func() { t.countDown(run, totalMs, cancel) })
	return run
}

// Cancel stops the active run, if any. No further ticks for that run are
// emitted once the run goroutine observes the cancellation; consumers
// must additionally drop ticks from stale generations.
func (t *StepTicker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

func (t *StepTicker) countDown(run uint64, totalMs int64, cancel chan struct{}) {
	if totalMs <= 0 {
		t.emit(run, TimerState{MillisRemaining: 0, RemainingPercentage: 0}, cancel)
		return
	}

	periodMs := t.period.Milliseconds()
	remaining := totalMs

	// Immediate first emission with the full value.
	if !t.emit(run, TimerState{MillisRemaining: remaining, RemainingPercentage: 1}, cancel) {
		return
	}

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			// Cancellation wins over a tick that fired concurrently.
			select {
			case <-cancel:
				return
			default:
			}
			remaining -= periodMs
			if remaining < 0 {
				remaining = 0
			}
			state := TimerState{
				MillisRemaining:     remaining,
				RemainingPercentage: float64(remaining) / float64(totalMs),
			}
			if !t.emit(run, state, cancel) {
				return
			}
			if remaining == 0 {
				return
			}
		}
	}
}

// emit delivers a tick, giving up if the run is cancelled while the
// consumer is not ready. Reports whether the run should continue.
func (t *StepTicker) emit(run uint64, state TimerState, cancel chan struct{}) bool {
	select {
	case <-cancel:
		return false
	default:
	}
	select {
	case t.out <- Tick{Run: run, State: state}:
		return true
	case <-cancel:
		return false
	}
}
