// Package timefmt renders millisecond durations as short human strings
// such as "45s", "16mn 23s" or "1h 05mn 30s".
package timefmt

import "fmt"

// Formatter converts a millisecond duration into a display string.
// The session engine takes one of these as an injected capability.
type Formatter func(ms int64) string

// Format is the default Formatter.
func Format(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %02dmn %02ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dmn %02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
