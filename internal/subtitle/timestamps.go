package subtitle

import (
	"fmt"
	"time"
)

// srtTimestamp renders HH:MM:SS,mmm with a comma millisecond separator.
func srtTimestamp(d time.Duration) string {
	h, m, s, ms := split(d)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// vttTimestamp renders HH:MM:SS.mmm with a dot millisecond separator.
func vttTimestamp(d time.Duration) string {
	h, m, s, ms := split(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// lrcTimestamp renders [MM:SS.cc] with centisecond precision. Minutes do
// not wrap at an hour; lrc has no hour field.
func lrcTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d.Milliseconds()
	minutes := total / 60000
	seconds := (total % 60000) / 1000
	centis := (total % 1000) / 10
	return fmt.Sprintf("[%02d:%02d.%02d]", minutes, seconds, centis)
}

func split(d time.Duration) (h, m, s, ms int64) {
	if d < 0 {
		d = 0
	}
	total := d.Milliseconds()
	h = total / 3600000
	m = (total % 3600000) / 60000
	s = (total % 60000) / 1000
	ms = total % 1000
	return
}
