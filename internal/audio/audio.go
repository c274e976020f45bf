// Package audio emits the short audible cues played at countdown ticks
// and step boundaries. Playback is fire and forget: a cue that cannot be
// played is logged and the session carries on.
package audio

import (
	"io"
	"log"
)

// Player is anything that can sound a cue.
type Player interface {
	// Preload gets the player ready before the session starts, so the
	// first cue is not late. A failed preload disables the player.
	Preload() error
	// Play sounds one cue. Never blocks for long and never reports
	// failure to the caller.
	Play()
}

// Bell plays cues by writing the ASCII BEL character to a terminal
// writer. It is the fallback when no richer backend is available.
type Bell struct {
	w      io.Writer
	logger *log.Logger
}

// NewBell returns a Bell writing to w. Panics on nil arguments.
func NewBell(w io.Writer, logger *log.Logger) *Bell {
	if w == nil {
		panic("audio: nil writer")
	}
	if logger == nil {
		panic("audio: nil logger")
	}
	return &Bell{w: w, logger: logger}
}

// Preload verifies the writer accepts output.
func (b *Bell) Preload() error {
	_, err := b.w.Write([]byte{})
	return err
}

// Play writes a BEL. Write failures are logged and swallowed.
func (b *Bell) Play() {
	if _, err := b.w.Write([]byte{'\a'}); err != nil {
		b.logger.Printf("audio: bell write failed: %v", err)
	}
}

// Silent is a no-op player used when beeps are disabled.
type Silent struct{}

func (Silent) Preload() error { return nil }
func (Silent) Play()          {}
