package orchestrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.0s"},
		{-time.Second, "0.0s"},
		{500 * time.Millisecond, "0.5s"},
		{1200 * time.Millisecond, "1.2s"},
		{5 * time.Second, "5.0s"},
		{20 * time.Second, "20.0s"},
		{65 * time.Second, "1m5s"},
		{time.Hour + time.Minute + 40*time.Second, "1h1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatElapsed(tt.d), "FormatElapsed(%s)", tt.d)
	}
}

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit", "abcdefghij", 7, "ab...ij"},
		{"asymmetric", "hello world!", 9, "hel...ld!"},
		{"exactly three", "abc", 3, "abc"},
		{"no room for dots", "abcd", 3, "abc"},
		{"multi-byte runes", "复利效应与长期投资", 7, "复利...投资"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateMiddle(tt.s, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), tt.maxLen)
		})
	}
}
