package render

import (
	"fmt"
	"math"
	"time"
)

// Clock formats seconds as mm:ss, or hh:mm:ss once the value reaches an hour.
func Clock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// SRTTime formats seconds as HH:MM:SS,mmm.
func SRTTime(seconds float64) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// VTTTime formats seconds as HH:MM:SS.mmm.
func VTTTime(seconds float64) string {
	h, m, s, ms := splitClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitClock(seconds float64) (h, m, s, ms int) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	d := time.Duration(math.Round(seconds * 1000)) * time.Millisecond
	h = int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m = int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s = int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms = int(d / time.Millisecond)
	return h, m, s, ms
}
