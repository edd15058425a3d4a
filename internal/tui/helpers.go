package tui

import (
	"context"
	"strings"
	"time"
)

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// bar renders value as a horizontal bar scaled so that max fills width
func bar(value, max, width int) string {
	if max <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := value * width / max
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// formatDate renders a post timestamp, "-" when unset
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 02, 2006")
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
