// Package ui renders the live session in the terminal with tview.
// It consumes SessionView snapshots from the runtime and never touches
// engine state directly beyond the pause/resume/abort commands.
package ui

import (
	"fmt"
	"log"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/openhiit/openhiit/internal/safego"
	"github.com/openhiit/openhiit/internal/session"
)

// Page names for tview.Pages
const (
	pageSession  = "session"
	pagePaused   = "paused"
	pageFinished = "finished"
	pageError    = "error"
)

const gaugeWidth = 40

// Screen is the tview session screen. One Screen drives one session from
// load to finish.
type Screen struct {
	logger  *log.Logger
	app     *tview.Application
	runtime *session.Runtime

	pages *tview.Pages

	// Session page components
	exercisePanel *tview.TextView
	timerPanel    *tview.TextView
	hintBar       *tview.TextView

	// Pause page components
	pauseModal *tview.Modal

	// Finished / error page components
	summaryPanel *tview.TextView
	errorPanel   *tview.TextView

	// status mirrors the latest rendered view status. Written and read
	// only on the tview event loop goroutine.
	status session.Status

	views chan session.SessionView
	done  chan struct{}
}

// NewScreen builds the screen widgets. Panics on nil arguments.
func NewScreen(logger *log.Logger, app *tview.Application, runtime *session.Runtime) *Screen {
	if logger == nil {
		panic("ui: nil logger")
	}
	if app == nil {
		panic("ui: nil application")
	}
	if runtime == nil {
		panic("ui: nil runtime")
	}

	s := &Screen{
		logger:  logger,
		app:     app,
		runtime: runtime,
		status:  session.StatusAwaitingSession,
		views:   make(chan session.SessionView, 16),
		done:    make(chan struct{}),
	}
	s.initWidgets()
	s.setupKeyboardHandlers()
	return s
}

func (s *Screen) initWidgets() {
	s.exercisePanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.exercisePanel.SetBorder(true).SetTitle(" Exercise ")

	s.timerPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.timerPanel.SetBorder(true).SetTitle(" Time ")

	s.hintBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.hintBar.SetText("[yellow]Space[white] Pause  |  [yellow]Q[white] Stop")

	sessionFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(s.exercisePanel, 0, 1, false).
		AddItem(s.timerPanel, 0, 2, true).
		AddItem(s.hintBar, 1, 0, false)

	s.pauseModal = tview.NewModal().
		SetText("Session paused").
		AddButtons([]string{"Resume", "Stop"}).
		SetDoneFunc(func(_ int, label string) {
			switch label {
			case "Resume":
				if err := s.runtime.Resume(); err != nil {
					s.logger.Printf("ui: resume failed: %v", err)
				}
			case "Stop":
				if err := s.runtime.Abort(); err != nil {
					s.logger.Printf("ui: abort failed: %v", err)
				}
			}
		})

	s.summaryPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.summaryPanel.SetBorder(true).SetTitle(" Session Complete ")

	s.errorPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.errorPanel.SetBorder(true).SetTitle(" Error ")

	s.pages = tview.NewPages().
		AddPage(pageSession, sessionFlex, true, true).
		AddPage(pagePaused, s.pauseModal, true, false).
		AddPage(pageFinished, s.summaryPanel, true, false).
		AddPage(pageError, s.errorPanel, true, false)
}

func (s *Screen) setupKeyboardHandlers() {
	s.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == ' ' {
			switch s.status {
			case session.StatusRunning:
				if err := s.runtime.Pause(); err != nil {
					s.logger.Printf("ui: pause failed: %v", err)
				}
				return nil
			case session.StatusPaused:
				if err := s.runtime.Resume(); err != nil {
					s.logger.Printf("ui: resume failed: %v", err)
				}
				return nil
			}
		}

		quit := event.Key() == tcell.KeyEscape ||
			(event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q'))
		if quit {
			switch s.status {
			case session.StatusRunning, session.StatusPaused:
				if err := s.runtime.Abort(); err != nil {
					s.logger.Printf("ui: abort failed: %v", err)
				}
			default:
				s.app.Stop()
			}
			return nil
		}

		return event
	})
}

// Run subscribes to the runtime's views and blocks until the user quits.
func (s *Screen) Run() error {
	// Views arrive on the runtime's goroutine; QueueUpdateDraw blocks
	// until the app processes the update, so a dedicated forwarder keeps
	// the runtime from stalling on the UI.
	cancel := s.runtime.Views().Subscribe(func(v session.SessionView) {
		select {
		case s.views <- v:
		case <-s.done:
		}
	})
	defer cancel()

	safego.Go(s.logger, func() {
		for {
			select {
			case v := <-s.views:
				s.app.QueueUpdateDraw(func() { s.render(v) })
			case <-s.done:
				return
			}
		}
	})
	defer close(s.done)

	return s.app.SetRoot(s.pages, true).Run()
}

// render updates the widgets for one view snapshot. Runs on the tview
// event loop goroutine.
func (s *Screen) render(v session.SessionView) {
	s.status = v.Status

	switch v.Status {
	case session.StatusAwaitingSession:
		s.exercisePanel.SetText("\n[gray]Loading session...[white]")
		s.pages.SwitchToPage(pageSession)

	case session.StatusRunning:
		s.exercisePanel.SetText(formatExercise(v))
		s.timerPanel.SetText(formatTimers(v))
		s.hintBar.SetText("[yellow]Space[white] Pause  |  [yellow]Q[white] Stop")
		s.pages.SwitchToPage(pageSession)

	case session.StatusPaused:
		s.pages.SwitchToPage(pagePaused)

	case session.StatusFinished:
		s.summaryPanel.SetText(formatSummary(v.Summary))
		s.pages.SwitchToPage(pageFinished)

	case session.StatusErrored:
		s.errorPanel.SetText(fmt.Sprintf("\n\n[red]%v[white]\n\n[gray]Press Q to exit[white]", v.Err))
		s.pages.SwitchToPage(pageError)
	}
}

// formatExercise renders the exercise panel: what to do now, and during
// a rest, what is coming next.
func formatExercise(v session.SessionView) string {
	var text string
	text = "\n"

	switch v.Step.Kind {
	case session.StepPrepare:
		text += "[yellow]Get ready![white]\n"

	case session.StepWork:
		text += fmt.Sprintf("[green]WORK[white]\n\n[yellow]%s[white]\n", v.Step.Exercise.Name)
		if v.Step.Side != session.SideNone {
			text += fmt.Sprintf("[gray](%s side)[white]\n", v.Step.Side)
		}

	case session.StepRest:
		text += "[blue]REST[white]\n\n"
		if v.Step.Exercise.Name == "" {
			text += "[gray]Cool down, you are done[white]\n"
		} else {
			text += fmt.Sprintf("[gray]Next:[white] %s", v.Step.Exercise.DisplayName())
			if v.Step.Side != session.SideNone {
				text += fmt.Sprintf(" [gray](%s side)[white]", v.Step.Side)
			}
			text += "\n"
		}
	}

	return text
}

// formatTimers renders the step and session countdowns with gauges, and
// the big countdown digit inside the cue window.
func formatTimers(v session.SessionView) string {
	var text string
	text = "\n"
	text += fmt.Sprintf("[gray]Step:[white]    %s\n%s\n\n", v.StepRemaining, gauge(v.StepProgress))
	text += fmt.Sprintf("[gray]Session:[white] %s\n%s\n", v.SessionRemaining, gauge(v.SessionProgress))

	if v.CountDown != nil {
		text += fmt.Sprintf("\n[red]%d[white]\n", v.CountDown.SecondsDisplay)
	}

	return text
}

// formatSummary renders the finished page.
func formatSummary(sum *session.Summary) string {
	if sum == nil {
		return "\n  [gray]No summary available[white]\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "  [gray]Exercise time:[white] [yellow]%s[white]\n\n", sum.FormattedDuration)

	if len(sum.CompletedWork) == 0 {
		b.WriteString("  [gray]No work periods completed.[white]\n")
	} else {
		fmt.Fprintf(&b, "  [gray]Completed %d work periods:[white]\n", len(sum.CompletedWork))
		for _, w := range sum.CompletedWork {
			if w.Side != session.SideNone {
				fmt.Fprintf(&b, "    %s (%s)\n", w.Exercise, w.Side)
			} else {
				fmt.Fprintf(&b, "    %s\n", w.Exercise)
			}
		}
	}

	b.WriteString("\n  [gray]Press Q to exit[white]\n")
	return b.String()
}

// gauge draws a fixed-width progress bar for a remaining fraction.
func gauge(remaining float64) string {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > 1 {
		remaining = 1
	}
	filled := int(remaining*gaugeWidth + 0.5)
	return "[green]" + strings.Repeat("█", filled) + "[gray]" + strings.Repeat("░", gaugeWidth-filled) + "[white]"
}
