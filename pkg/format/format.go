// Package format turns snapshots into the strings renderers display:
// the compact status-bar label and the expanded per-window lines.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rmax-ai/traylord/pkg/config"
	"github.com/rmax-ai/traylord/pkg/provider"
)

// Placeholder is shown before the first successful fetch.
const Placeholder = "5h .. · 7d .."

// ErrorMarker is appended to the compact label when the latest poll
// failed and the data shown is stale.
const ErrorMarker = "!"

type Options struct {
	Mode           config.DisplayMode
	ResetFormat    config.ResetTimeFormat
	ShowPercentage bool
}

// OptionsFromConfig extracts display options from a loaded config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Mode:           cfg.DisplayMode,
		ResetFormat:    cfg.ResetTimeFormat,
		ShowPercentage: cfg.ShowPeriodPercentage,
	}
}

// Value renders the headline number for one window according to the
// display mode. Percentage windows (limit 100) render as "40%"; other
// bounded windows as "40/200"; unbounded windows show the raw count.
func Value(w provider.Window, mode config.DisplayMode) string {
	switch mode {
	case config.DisplayRemaining:
		if w.Limit == 0 {
			return "unbounded"
		}
		if w.Limit == 100 {
			return fmt.Sprintf("%d%% left", w.Remaining())
		}
		return fmt.Sprintf("%d left", w.Remaining())
	default:
		if w.Limit == 0 {
			return fmt.Sprintf("%d", w.Used)
		}
		if w.Limit == 100 {
			return fmt.Sprintf("%d%%", w.Used)
		}
		return fmt.Sprintf("%d/%d", w.Used, w.Limit)
	}
}

// Percentage returns used/limit as a whole percent clamped to [0,100].
// Unbounded windows have no meaningful percentage and return 0.
func Percentage(w provider.Window) int {
	if w.Limit == 0 {
		return 0
	}
	pct := int(math.Round(float64(w.Used) / float64(w.Limit) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ResetTime renders when a window resets, relative ("3h 12m") or
// absolute ("13.02, 14:00"), per the configured format.
func ResetTime(resetsAt time.Time, now time.Time, format config.ResetTimeFormat) string {
	if format == config.ResetAbsolute {
		return resetsAt.Local().Format("02.01, 15:04")
	}
	return Relative(resetsAt, now)
}

// Relative renders the time until t in the largest two fitting units,
// rounding down. A reset in the past reads "now".
func Relative(t time.Time, now time.Time) string {
	diff := int64(t.Sub(now).Seconds())
	if diff <= 0 {
		return "now"
	}

	days := diff / 86400
	hours := (diff % 86400) / 3600
	mins := (diff % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// Line renders one full window line for menus and the TUI, e.g.
// "5h Limit: 40% · resets in 3h 12m (40%)".
func Line(w provider.Window, now time.Time, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", w.Title, Value(w, opts.Mode))

	if !w.PeriodEnd.IsZero() {
		if opts.ResetFormat == config.ResetAbsolute {
			fmt.Fprintf(&b, " · resets on %s", ResetTime(w.PeriodEnd, now, opts.ResetFormat))
		} else {
			fmt.Fprintf(&b, " · resets in %s", ResetTime(w.PeriodEnd, now, opts.ResetFormat))
		}
	}

	if opts.ShowPercentage && w.Limit != 0 {
		fmt.Fprintf(&b, " (%d%%)", Percentage(w))
	}

	return b.String()
}

// Lines renders every window of a snapshot plus tier and extra-usage
// rows, in display order.
func Lines(snap *provider.Snapshot, now time.Time, opts Options) []string {
	if snap == nil {
		return []string{"No data yet"}
	}

	lines := make([]string, 0, len(snap.Windows)+2)
	for _, w := range snap.Windows {
		lines = append(lines, Line(w, now, opts))
	}
	if snap.Extra != nil {
		if snap.Extra.LimitUSD != nil {
			lines = append(lines, fmt.Sprintf("Extra usage: $%.2f / $%.2f", snap.Extra.UsedUSD, *snap.Extra.LimitUSD))
		} else {
			lines = append(lines, fmt.Sprintf("Extra usage: $%.2f", snap.Extra.UsedUSD))
		}
	}
	if snap.Tier != "" {
		lines = append(lines, "Tier: "+snap.Tier)
	}
	return lines
}

// Label renders the compact status-bar label from the windows that
// carry a short label, e.g. "5h 40% · 7d 73%". hasError appends the
// stale-data marker.
func Label(snap *provider.Snapshot, hasError bool, opts Options) string {
	if snap == nil {
		if hasError {
			return Placeholder + " " + ErrorMarker
		}
		return Placeholder
	}

	parts := make([]string, 0, len(snap.Windows))
	for _, w := range snap.Windows {
		if w.ShortLabel == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", w.ShortLabel, Value(w, opts.Mode)))
	}

	label := strings.Join(parts, " · ")
	if label == "" {
		label = Placeholder
	}
	if hasError {
		label += " " + ErrorMarker
	}
	return label
}
