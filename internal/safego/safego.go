// Package safego spawns goroutines that log panics before crashing.
package safego

import (
	"log"
	"runtime/debug"
)

// Go runs fn on a new goroutine. The curses UI owns the terminal and
// swallows anything written to stdout, so a panic is captured in the
// logger before crashing out again.
func Go(logger *log.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
