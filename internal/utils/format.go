package utils

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count, e.g. "12 MB". Non-positive sizes are unknown.
func FormatSize(size int64) string {
	if size <= 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(size))
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatAgo renders t relative to now, e.g. "3 minutes ago".
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
