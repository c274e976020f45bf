package session

import "github.com/openhiit/openhiit/internal/timefmt"

// CompletedWork is one work period known to have been fully performed.
type CompletedWork struct {
	Exercise string
	Side     Side
}

// Summary is the outcome of a terminated session. A DurationMs of 0
// means nothing meaningful was completed; callers must not persist a
// record for it.
type Summary struct {
	DurationMs        int64
	FormattedDuration string
	CompletedWork     []CompletedWork
	Users             []string
}

// Summarize walks the steps traversed up to and including lastIndex and
// computes what was actually accomplished.
//
// A RestStep at lastIndex is excluded: the normal trailing cool-down, or
// an abort landing on a rest, contributes nothing to the work done. The
// actual duration is recomputed from the nominal per-step durations
// rather than summed wall-clock time, so minor timer drift cannot skew
// the record. If no work or no rest period completed, the duration is 0.
func Summarize(s *Session, lastIndex int, format timefmt.Formatter) Summary {
	summary := Summary{Users: s.Users}
	if format == nil {
		format = timefmt.Format
	}

	bound := lastIndex
	if bound >= len(s.Steps) {
		bound = len(s.Steps) - 1
	}
	if bound >= 0 && s.Steps[bound].Kind == StepRest {
		bound--
	}

	var workCount, restCount int
	var workMs, restMs int64
	for i := 0; i <= bound && i < len(s.Steps); i++ {
		step := s.Steps[i]
		switch step.Kind {
		case StepWork:
			workCount++
			workMs = step.DurationMs
			summary.CompletedWork = append(summary.CompletedWork, CompletedWork{
				Exercise: step.Exercise.Name,
				Side:     step.Side,
			})
		case StepRest:
			restCount++
			restMs = step.DurationMs
		}
	}

	if workCount == 0 || restCount == 0 {
		summary.CompletedWork = nil
		summary.FormattedDuration = format(0)
		return summary
	}

	summary.DurationMs = int64(workCount)*workMs + int64(restCount)*restMs
	summary.FormattedDuration = format(summary.DurationMs)
	return summary
}
