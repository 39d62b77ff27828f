package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func ParseTimeFlexible(timeStr string) (time.Time, error) {
	// Try parsing as RFC3339 (ISO 8601)
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, timeStr)
	if err == nil {
		return t.UTC(), nil
	}

	// Try parsing as epoch milliseconds
	ms, err := strconv.ParseInt(timeStr, 10, 64)
	if err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}

// ParseTimeInput also accepts "now" and offsets like "now-1h" or "now-7d",
// resolved against now.
func ParseTimeInput(timeStr string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(timeStr)
	if s == "now" {
		return now.UTC(), nil
	}
	if rest, ok := strings.CutPrefix(s, "now-"); ok {
		d, err := parseRelative(rest)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative time %q: %w", timeStr, err)
		}
		return now.Add(-d).UTC(), nil
	}
	return ParseTimeFlexible(s)
}

func parseRelative(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
