package session

import (
	"fmt"

	"github.com/openhiit/openhiit/internal/catalog"
)

// Config is the validated input of the builder, in engine units.
type Config struct {
	WorkPeriodMs        int64
	RestPeriodMs        int64
	WorkPeriodsPerCycle int
	Cycles              int

	// PrepareLengthMs is the session-start countdown; it is the duration
	// of the Prepare step.
	PrepareLengthMs int64

	// PeriodCountDownMs is the trailing countdown window decorating work
	// and rest periods.
	PeriodCountDownMs int64

	BeepEnabled   bool
	SelectedTypes []catalog.Type
}

func (c Config) validate(users []string) error {
	if len(c.SelectedTypes) == 0 {
		return fmt.Errorf("%w: no exercise types selected", ErrInvalidConfiguration)
	}
	if len(users) == 0 {
		return fmt.Errorf("%w: no participating users", ErrInvalidConfiguration)
	}
	if c.WorkPeriodMs <= 0 {
		return fmt.Errorf("%w: work period must be positive, got %dms", ErrInvalidConfiguration, c.WorkPeriodMs)
	}
	if c.RestPeriodMs <= 0 {
		return fmt.Errorf("%w: rest period must be positive, got %dms", ErrInvalidConfiguration, c.RestPeriodMs)
	}
	if c.WorkPeriodsPerCycle <= 0 {
		return fmt.Errorf("%w: work periods per cycle must be positive, got %d", ErrInvalidConfiguration, c.WorkPeriodsPerCycle)
	}
	if c.Cycles <= 0 {
		return fmt.Errorf("%w: cycle count must be positive, got %d", ErrInvalidConfiguration, c.Cycles)
	}
	if c.PrepareLengthMs < 0 {
		return fmt.Errorf("%w: prepare length must not be negative, got %dms", ErrInvalidConfiguration, c.PrepareLengthMs)
	}
	if c.PeriodCountDownMs < 0 {
		return fmt.Errorf("%w: period countdown must not be negative, got %dms", ErrInvalidConfiguration, c.PeriodCountDownMs)
	}
	if c.PeriodCountDownMs > c.WorkPeriodMs {
		return fmt.Errorf("%w: period countdown (%dms) exceeds work period (%dms)", ErrInvalidConfiguration, c.PeriodCountDownMs, c.WorkPeriodMs)
	}
	if c.PeriodCountDownMs > c.RestPeriodMs {
		return fmt.Errorf("%w: period countdown (%dms) exceeds rest period (%dms)", ErrInvalidConfiguration, c.PeriodCountDownMs, c.RestPeriodMs)
	}
	return nil
}

// slot is one work assignment produced by the cyclic catalog walk before
// rests are interleaved.
type slot struct {
	exercise catalog.Exercise
	side     Side
}

// Build deterministically turns a configuration into a Session.
//
// Exercises are assigned round-robin over the catalog filtered to the
// selected types, wrapping around when exhausted. An asymmetrical
// exercise expands to two consecutive work periods (left then right) but
// counts as a single instance toward the requested
// WorkPeriodsPerCycle x Cycles total, so the physical number of work
// steps can exceed that product.
func Build(cfg Config, users []string) (*Session, error) {
	if err := cfg.validate(users); err != nil {
		return nil, err
	}

	eligible := catalog.Filter(cfg.SelectedTypes)
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no exercises match the selected types", ErrInvalidConfiguration)
	}

	requested := cfg.WorkPeriodsPerCycle * cfg.Cycles
	slots := assignSlots(eligible, requested)

	// Sequence: Prepare, then Rest+Work per slot, then a trailing
	// cool-down Rest. The rest before each work previews that work's
	// exercise and side.
	steps := make([]Step, 0, 2*len(slots)+2)
	steps = append(steps, Step{
		Kind:              StepPrepare,
		DurationMs:        cfg.PrepareLengthMs,
		CountDownLengthMs: cfg.PrepareLengthMs,
	})

	for i, sl := range slots {
		restCountDown := cfg.PeriodCountDownMs
		if i == 0 {
			// The first rest has no prior period to count down from.
			restCountDown = 0
		}
		steps = append(steps, Step{
			Kind:              StepRest,
			Exercise:          sl.exercise,
			Side:              sl.side,
			DurationMs:        cfg.RestPeriodMs,
			CountDownLengthMs: restCountDown,
		})
		steps = append(steps, Step{
			Kind:              StepWork,
			Exercise:          sl.exercise,
			Side:              sl.side,
			DurationMs:        cfg.WorkPeriodMs,
			CountDownLengthMs: cfg.PeriodCountDownMs,
		})
	}

	steps = append(steps, Step{
		Kind:       StepRest,
		DurationMs: cfg.RestPeriodMs,
	})

	// Backward cumulative sum so RemainingAfterMeMs is ready-made.
	var after int64
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i].RemainingAfterMeMs = after
		after += steps[i].DurationMs
	}

	userIDs := make([]string, len(users))
	copy(userIDs, users)

	return &Session{
		Steps:       steps,
		DurationMs:  after,
		BeepEnabled: cfg.BeepEnabled,
		Users:       userIDs,
	}, nil
}

// assignSlots walks the eligible list cyclically, one exercise instance
// per requested slot. Asymmetrical exercises occupy two slots in the
// result (left then right) while consuming one instance.
func assignSlots(eligible []catalog.Exercise, requested int) []slot {
	slots := make([]slot, 0, requested)
	for i := 0; i < requested; i++ {
		ex := eligible[i%len(eligible)]
		if ex.Asymmetrical {
			slots = append(slots,
				slot{exercise: ex, side: SideLeft},
				slot{exercise: ex, side: SideRight},
			)
		} else {
			slots = append(slots, slot{exercise: ex, side: SideNone})
		}
	}
	return slots
}
