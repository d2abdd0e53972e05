package timer

import (
	"fmt"
	"time"
)

// Mask replaces a hidden time value.
const Mask = "••••••"

// FormatTime renders d as H:MM:SS.cc.
func FormatTime(d time.Duration, hidden bool) string {
	if hidden {
		return Mask
	}
	if d < 0 {
		d = 0
	}

	ms := d.Milliseconds()
	centis := (ms % 1000) / 10
	seconds := (ms / 1000) % 60
	minutes := (ms / 60000) % 60
	hours := ms / 3600000

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

// LapDeltas returns the split between each lap and the one before it. The
// first lap has no predecessor, so the result has one element fewer.
func LapDeltas(laps []time.Duration) []time.Duration {
	if len(laps) < 2 {
		return nil
	}
	out := make([]time.Duration, 0, len(laps)-1)
	for k := 1; k < len(laps); k++ {
		out = append(out, laps[k]-laps[k-1])
	}
	return out
}
