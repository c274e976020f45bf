package session

// Status is the lifecycle state of a Runtime.
type Status int

const (
	StatusAwaitingSession Status = iota // no session loaded yet
	StatusRunning                       // ticking through steps
	StatusPaused                        // ticker cancelled, resume point fixed
	StatusFinished                      // normal completion or abort
	StatusErrored                       // absorbing failure state
)

func (s Status) String() string {
	switch s {
	case StatusAwaitingSession:
		return "awaiting-session"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// CountDown is the cue payload attached to a view while the current
// step's remaining time is inside its countdown window.
type CountDown struct {
	// SecondsDisplay is the digit to show, counting 3..2..1.
	SecondsDisplay int64

	// Progress is the remaining fraction of the countdown window, in [0,1].
	Progress float64

	// PlayBeep is true when the audible cue fires on this tick. It is
	// gated by the session's beep setting.
	PlayBeep bool
}

// SessionView is the read-only derived state emitted after every tick
// and on every transition. The presentation layer switches exhaustively
// on Status; only the fields of the matching variant are populated.
type SessionView struct {
	Status Status

	// Errored payload.
	Err error

	// Running/Paused payload.
	StepIndex           int
	Step                Step
	StepRemainingMs     int64
	StepRemaining       string
	StepProgress        float64
	SessionRemainingMs  int64
	SessionRemaining    string
	SessionProgress     float64
	CountDown           *CountDown

	// Finished payload.
	Summary *Summary
}
