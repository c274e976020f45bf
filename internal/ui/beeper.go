package ui

import (
	"github.com/gdamore/tcell/v2"
)

// Beeper sounds cues through the terminal screen the TUI already owns.
// It satisfies both the runtime's cue player and audio.Player.
type Beeper struct {
	screen tcell.Screen
}

// NewBeeper wraps screen. Panics on nil.
func NewBeeper(screen tcell.Screen) *Beeper {
	if screen == nil {
		panic("ui: nil screen")
	}
	return &Beeper{screen: screen}
}

func (b *Beeper) Preload() error { return nil }

// Play rings the terminal bell. Failures are ignored; a missed beep is
// not worth interrupting a session for.
func (b *Beeper) Play() {
	_ = b.screen.Beep()
}
