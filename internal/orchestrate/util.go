package orchestrate

import (
	"fmt"
	"time"
)

// FormatElapsed renders a run or backoff duration for logs and the run
// summary: tenths of a second under a minute, then minutes and seconds,
// then hours and minutes. Negative durations print as zero.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		tenths := d.Milliseconds() / 100
		return fmt.Sprintf("%d.%ds", tenths/10, tenths%10)
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// TruncateMiddle shortens a string by replacing the middle with "..." if it
// exceeds maxLen runes.
func TruncateMiddle(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	available := maxLen - 3
	firstHalf := (available + 1) / 2
	lastHalf := available / 2
	return string(r[:firstHalf]) + "..." + string(r[len(r)-lastHalf:])
}
