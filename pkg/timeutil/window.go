// Package timeutil parses the look-back windows accepted by the list
// commands and renders record times relative to now.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var segment = regexp.MustCompile(`^(\d+)\s*([a-z]+)\s*`)

func unit(name string) (time.Duration, bool) {
	switch name {
	case "m", "min", "mins", "minute", "minutes":
		return time.Minute, true
	case "h", "hr", "hrs", "hour", "hours":
		return time.Hour, true
	case "d", "day", "days":
		return day, true
	case "w", "wk", "wks", "week", "weeks":
		return week, true
	}
	return 0, false
}

// ParseWindow reads windows such as "3d", "1w" or "1w2d". An empty input
// means no window and returns zero.
func ParseWindow(input string) (time.Duration, error) {
	rest := strings.ToLower(strings.TrimSpace(input))
	var total time.Duration
	for rest != "" {
		m := segment.FindStringSubmatch(rest)
		if m == nil {
			return 0, fmt.Errorf("invalid window %q, try 3d or 1w", input)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid window %q: %w", input, err)
		}
		u, ok := unit(m[2])
		if !ok {
			return 0, fmt.Errorf("unsupported unit %q in window %q", m[2], input)
		}
		total += time.Duration(n) * u
		rest = rest[len(m[0]):]
	}
	return total, nil
}

// Within reports whether t falls inside window before now. A zero window or
// a zero time always matches; pending server timestamps are never hidden.
func Within(t, now time.Time, window time.Duration) bool {
	if window <= 0 || t.IsZero() {
		return true
	}
	return !t.Before(now.Add(-window))
}

// Ago renders t relative to now, falling back to a date after eight weeks.
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "pending"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < day:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < week:
		return fmt.Sprintf("%dd ago", int(d/day))
	case d < 8*week:
		return fmt.Sprintf("%dw ago", int(d/week))
	}
	return t.Local().Format("Jan 2, 2006")
}
