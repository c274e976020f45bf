// Package session contains the session runtime engine: building a timed
// step sequence from user settings, driving a countdown through it, and
// summarizing what was actually completed.
package session

import (
	"errors"

	"github.com/openhiit/openhiit/internal/catalog"
)

// Sentinel errors for the expected failure modes of the engine.
var (
	// ErrInvalidConfiguration means the settings handed to the builder are
	// internally inconsistent. Non-retryable; the user must fix settings.
	ErrInvalidConfiguration = errors.New("invalid session configuration")

	// ErrSessionNotFound means a runtime operation was invoked while no
	// session has been successfully loaded.
	ErrSessionNotFound = errors.New("no session loaded")
)

// StepKind identifies the three step variants of a session.
type StepKind int

const (
	StepPrepare StepKind = iota // session-start countdown
	StepWork                    // one work period
	StepRest                    // recovery period previewing the next exercise
)

func (k StepKind) String() string {
	switch k {
	case StepPrepare:
		return "prepare"
	case StepWork:
		return "work"
	case StepRest:
		return "rest"
	default:
		return "unknown"
	}
}

// Side says which side of the body a step works. Asymmetrical exercises
// are scheduled as two consecutive work periods, left then right.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return ""
	}
}

// Step is one atomic timed phase of a session. Steps are immutable once
// built.
//
// For a RestStep, Exercise and Side preview the upcoming work period;
// the trailing cool-down rest has a zero Exercise.
type Step struct {
	Kind     StepKind
	Exercise catalog.Exercise
	Side     Side

	// DurationMs is the total length of this step.
	DurationMs int64

	// CountDownLengthMs is the length of the trailing window during which
	// a countdown cue is shown and (optionally) sounded. Zero means the
	// step has no countdown.
	CountDownLengthMs int64

	// RemainingAfterMeMs is the summed duration of all steps strictly
	// after this one, precomputed at build time so "time left in session"
	// is an O(1) lookup.
	RemainingAfterMeMs int64
}

// Session is an ordered step sequence built once from settings and
// discarded when the runtime terminates. The step list always starts
// with a Prepare step, then strictly alternates Rest and Work, and ends
// with a trailing Rest.
type Session struct {
	Steps       []Step
	DurationMs  int64
	BeepEnabled bool

	// Users are the ids of the participating users, carried through to
	// the persisted record for attribution.
	Users []string
}

// TimerState is one tick of a StepTicker run: the milliseconds left in
// the run and the remaining fraction of the run's total, in [0,1].
type TimerState struct {
	MillisRemaining     int64
	RemainingPercentage float64
}
