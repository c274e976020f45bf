package timefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		name string
		ms   int64
		want string
	}{
		{"zero", 0, "0s"},
		{"seconds only", 45_000, "45s"},
		{"minutes and seconds", 983_000, "16mn 23s"},
		{"whole minute", 60_000, "1mn 00s"},
		{"hour boundary", 3_600_000, "1h 00mn 00s"},
		{"hours padded", 3_930_000, "1h 05mn 30s"},
		{"sub-second truncates", 999, "0s"},
		{"negative clamps to zero", -5_000, "0s"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.ms))
		})
	}
}
