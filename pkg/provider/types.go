package provider

import (
	"context"
	"time"
)

// ProviderID identifies a specific provider integration (e.g., "claude_code", "cliproxy_claude")
type ProviderID string

// Window is one usage bucket reported by a provider (e.g. the rolling
// 5-hour limit). Limit == 0 means the bucket is unbounded.
type Window struct {
	// Human-readable title (e.g. "5h Limit", "7d Sonnet")
	Title string `json:"title"`

	// Short label for compact renderings (e.g. "5h"). Empty = omitted
	// from the compact label.
	ShortLabel string `json:"short_label,omitempty"`

	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Remaining returns Limit-Used floored at zero. Only meaningful for
// bounded windows.
func (w Window) Remaining() int64 {
	if w.Limit == 0 {
		return 0
	}
	rem := w.Limit - w.Used
	if rem < 0 {
		return 0
	}
	return rem
}

// ExtraUsage is pay-as-you-go credit spend on top of the subscription.
type ExtraUsage struct {
	UsedUSD  float64  `json:"used_usd"`
	LimitUSD *float64 `json:"limit_usd,omitempty"`
}

// Snapshot is the normalized result of one successful fetch. It is
// immutable once created; the next successful fetch supersedes it.
type Snapshot struct {
	Provider ProviderID `json:"provider"`

	// Account tier label (e.g. "Pro", "Max 5x"). Empty when the profile
	// lookup failed or the provider has no notion of tiers.
	Tier string `json:"tier,omitempty"`

	Windows []Window    `json:"windows"`
	Extra   *ExtraUsage `json:"extra,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Window returns the window with the given short label, if present.
func (s *Snapshot) Window(shortLabel string) (Window, bool) {
	for _, w := range s.Windows {
		if w.ShortLabel == shortLabel {
			return w, true
		}
	}
	return Window{}, false
}

// Provider defines the interface for external usage sources
type Provider interface {
	// ID returns the unique identifier for this provider
	ID() ProviderID

	// Poll retrieves the current usage state from the provider
	Poll(ctx context.Context) (*Snapshot, error)
}
