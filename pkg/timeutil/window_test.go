package timeutil

import (
	"testing"
	"time"
)

func TestParseWindowEmpty(t *testing.T) {
	d, err := ParseWindow("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected no window, got %v", d)
	}
}

func TestParseWindowComposite(t *testing.T) {
	d, err := ParseWindow("1w 2days 6h30m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 9*24*time.Hour + 6*time.Hour + 30*time.Minute
	if d != want {
		t.Fatalf("expected %v, got %v", want, d)
	}
}

func TestParseWindowInvalid(t *testing.T) {
	for _, in := range []string{"noop", "3 fortnights", "-1d"} {
		if _, err := ParseWindow(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestWithin(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	if !Within(now.Add(-48*time.Hour), now, 3*24*time.Hour) {
		t.Fatalf("expected two days ago inside a three day window")
	}
	if Within(now.Add(-96*time.Hour), now, 3*24*time.Hour) {
		t.Fatalf("expected four days ago outside a three day window")
	}
	if !Within(time.Time{}, now, time.Hour) {
		t.Fatalf("expected pending time to match")
	}
	if !Within(now.Add(-1000*time.Hour), now, 0) {
		t.Fatalf("expected zero window to match everything")
	}
}

func TestAgo(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		10 * time.Second:    "just now",
		5 * time.Minute:     "5m ago",
		3 * time.Hour:       "3h ago",
		50 * time.Hour:      "2d ago",
		15 * 24 * time.Hour: "2w ago",
	}
	for d, want := range cases {
		if got := Ago(now.Add(-d), now); got != want {
			t.Fatalf("Ago(-%v) = %q, want %q", d, got, want)
		}
	}
	if got := Ago(time.Time{}, now); got != "pending" {
		t.Fatalf("expected pending, got %q", got)
	}
}
