package format

import (
	"strings"
	"testing"
	"time"

	"github.com/rmax-ai/traylord/pkg/config"
	"github.com/rmax-ai/traylord/pkg/provider"
)

func boundedWindow(used, limit int64) provider.Window {
	now := time.Now()
	return provider.Window{
		Title:       "Monthly",
		ShortLabel:  "mo",
		Used:        used,
		Limit:       limit,
		PeriodStart: now.Add(-24 * time.Hour),
		PeriodEnd:   now.Add(24 * time.Hour),
	}
}

func TestValue_UsageMode(t *testing.T) {
	w := boundedWindow(40, 200)
	got := Value(w, config.DisplayUsage)
	if !strings.Contains(got, "40") || !strings.Contains(got, "200") {
		t.Errorf("Usage mode should contain used and limit, got %q", got)
	}
}

func TestValue_RemainingMode(t *testing.T) {
	w := boundedWindow(40, 200)
	got := Value(w, config.DisplayRemaining)
	if !strings.Contains(got, "160") {
		t.Errorf("Remaining mode should contain 160, got %q", got)
	}
}

func TestValue_RemainingNeverNegative(t *testing.T) {
	w := boundedWindow(250, 200)
	got := Value(w, config.DisplayRemaining)
	if strings.Contains(got, "-") {
		t.Errorf("Remaining must not be negative, got %q", got)
	}
	if !strings.Contains(got, "0") {
		t.Errorf("Expected floor at 0, got %q", got)
	}
}

func TestValue_Unbounded(t *testing.T) {
	w := provider.Window{Title: "API", Used: 7}
	if got := Value(w, config.DisplayRemaining); got != "unbounded" {
		t.Errorf("Expected unbounded, got %q", got)
	}
	if got := Value(w, config.DisplayUsage); got != "7" {
		t.Errorf("Expected raw count, got %q", got)
	}
}

func TestValue_PercentageWindow(t *testing.T) {
	w := boundedWindow(40, 100)
	if got := Value(w, config.DisplayUsage); got != "40%" {
		t.Errorf("Expected 40%%, got %q", got)
	}
	if got := Value(w, config.DisplayRemaining); got != "60% left" {
		t.Errorf("Expected 60%% left, got %q", got)
	}
}

func TestPercentage_Clamped(t *testing.T) {
	cases := []struct {
		used, limit int64
		want        int
	}{
		{40, 200, 20},
		{0, 200, 0},
		{200, 200, 100},
		{500, 200, 100}, // over limit clamps to 100
		{1, 3, 33},
		{2, 3, 67},
	}
	for _, c := range cases {
		w := boundedWindow(c.used, c.limit)
		if got := Percentage(w); got != c.want {
			t.Errorf("Percentage(%d/%d) = %d, want %d", c.used, c.limit, got, c.want)
		}
	}
}

func TestRelative(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		until time.Duration
		want  string
	}{
		{3 * time.Hour, "3h 0m"},
		{3*time.Hour + 30*time.Second, "3h 0m"}, // rounds down, value reads 3
		{2*time.Hour + 45*time.Minute, "2h 45m"},
		{26 * time.Hour, "1d 2h"},
		{12 * time.Minute, "12m"},
		{-time.Minute, "now"},
		{0, "now"},
	}
	for _, c := range cases {
		if got := Relative(now.Add(c.until), now); got != c.want {
			t.Errorf("Relative(+%v) = %q, want %q", c.until, got, c.want)
		}
	}
}

func TestResetTime_Absolute(t *testing.T) {
	resetsAt := time.Date(2026, 2, 13, 14, 0, 0, 0, time.Local)
	got := ResetTime(resetsAt, time.Now(), config.ResetAbsolute)
	if got != "13.02, 14:00" {
		t.Errorf("Expected absolute format, got %q", got)
	}
}

func TestLine_WithPercentage(t *testing.T) {
	now := time.Now()
	w := provider.Window{
		Title:      "5h Limit",
		ShortLabel: "5h",
		Used:       40,
		Limit:      100,
		PeriodEnd:  now.Add(3 * time.Hour),
	}
	opts := Options{Mode: config.DisplayUsage, ResetFormat: config.ResetRelative, ShowPercentage: true}

	got := Line(w, now, opts)
	if !strings.Contains(got, "5h Limit") || !strings.Contains(got, "40%") {
		t.Errorf("Unexpected line: %q", got)
	}
	if !strings.Contains(got, "resets in 3h") {
		t.Errorf("Expected relative reset in line, got %q", got)
	}
	if !strings.Contains(got, "(40%)") {
		t.Errorf("Expected period percentage suffix, got %q", got)
	}
}

func TestLabel_CompactWindowsOnly(t *testing.T) {
	now := time.Now()
	snap := &provider.Snapshot{
		Provider: "claude_code",
		Windows: []provider.Window{
			{Title: "5h Limit", ShortLabel: "5h", Used: 40, Limit: 100, PeriodEnd: now.Add(time.Hour)},
			{Title: "7d Limit", ShortLabel: "7d", Used: 73, Limit: 100, PeriodEnd: now.Add(100 * time.Hour)},
			{Title: "7d Opus", Used: 10, Limit: 100, PeriodEnd: now.Add(100 * time.Hour)},
		},
		FetchedAt: now,
	}
	opts := Options{Mode: config.DisplayUsage, ResetFormat: config.ResetRelative}

	got := Label(snap, false, opts)
	if got != "5h 40% · 7d 73%" {
		t.Errorf("Unexpected label: %q", got)
	}
	if strings.Contains(got, "Opus") {
		t.Errorf("Windows without short labels must not appear: %q", got)
	}
}

func TestLabel_ErrorMarker(t *testing.T) {
	now := time.Now()
	snap := &provider.Snapshot{
		Windows:   []provider.Window{{Title: "5h Limit", ShortLabel: "5h", Used: 40, Limit: 100, PeriodEnd: now.Add(time.Hour)}},
		FetchedAt: now,
	}
	opts := Options{Mode: config.DisplayUsage}

	got := Label(snap, true, opts)
	if !strings.HasSuffix(got, ErrorMarker) {
		t.Errorf("Expected error marker suffix, got %q", got)
	}
}

func TestLabel_PlaceholderBeforeFirstFetch(t *testing.T) {
	opts := Options{Mode: config.DisplayUsage}
	if got := Label(nil, false, opts); got != Placeholder {
		t.Errorf("Expected placeholder, got %q", got)
	}
	if got := Label(nil, true, opts); got != Placeholder+" "+ErrorMarker {
		t.Errorf("Expected placeholder with marker, got %q", got)
	}
}

func TestLines(t *testing.T) {
	now := time.Now()
	limit := 20.0
	snap := &provider.Snapshot{
		Tier: "Max 5x",
		Windows: []provider.Window{
			{Title: "5h Limit", ShortLabel: "5h", Used: 40, Limit: 100, PeriodEnd: now.Add(3 * time.Hour)},
		},
		Extra:     &provider.ExtraUsage{UsedUSD: 3.5, LimitUSD: &limit},
		FetchedAt: now,
	}
	opts := Options{Mode: config.DisplayUsage, ResetFormat: config.ResetRelative}

	lines := Lines(snap, now, opts)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[1], "$3.50") || !strings.Contains(lines[1], "$20.00") {
		t.Errorf("Unexpected extra usage line: %q", lines[1])
	}
	if lines[2] != "Tier: Max 5x" {
		t.Errorf("Unexpected tier line: %q", lines[2])
	}
}
