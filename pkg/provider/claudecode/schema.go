package claudecode

import (
	"math"
	"time"

	"github.com/rmax-ai/traylord/pkg/provider"
)

// UsageResponse is the wire shape of GET /api/oauth/usage. Buckets
// report utilization as a percentage from 0 to 100; absent buckets are
// simply omitted.
type UsageResponse struct {
	FiveHour       *UsageBucket `json:"five_hour"`
	SevenDay       *UsageBucket `json:"seven_day"`
	SevenDaySonnet *UsageBucket `json:"seven_day_sonnet"`
	SevenDayOpus   *UsageBucket `json:"seven_day_opus"`
	ExtraUsage     *ExtraUsage  `json:"extra_usage"`
}

type UsageBucket struct {
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at"`
}

// ExtraUsage amounts are in cents.
type ExtraUsage struct {
	IsEnabled    bool    `json:"is_enabled"`
	MonthlyLimit float64 `json:"monthly_limit"`
	UsedCredits  float64 `json:"used_credits"`
}

// ProfileResponse is the wire shape of GET /api/oauth/profile.
type ProfileResponse struct {
	Organization struct {
		RateLimitTier string `json:"rate_limit_tier"`
	} `json:"organization"`
}

// tierLabels maps wire tier identifiers to display labels.
var tierLabels = map[string]string{
	"default_claude_free":    "Free",
	"default_claude_pro":     "Pro",
	"default_claude_max_5x":  "Max 5x",
	"default_claude_max_20x": "Max 20x",
}

// TierLabel returns the display label for a wire tier identifier, or
// the identifier itself for unrecognized tiers.
func TierLabel(wire string) string {
	if label, ok := tierLabels[wire]; ok {
		return label
	}
	return wire
}

// ToSnapshot normalizes a usage response (and optional profile) into a
// provider snapshot. Utilization percentages become Used out of a
// Limit of 100; buckets without a reset timestamp are skipped since no
// period can be derived for them.
func ToSnapshot(id provider.ProviderID, usage *UsageResponse, profile *ProfileResponse, fetchedAt time.Time) *provider.Snapshot {
	snap := &provider.Snapshot{
		Provider:  id,
		FetchedAt: fetchedAt,
	}

	if profile != nil {
		snap.Tier = TierLabel(profile.Organization.RateLimitTier)
	}

	if extra := usage.ExtraUsage; extra != nil && extra.IsEnabled {
		limitUSD := extra.MonthlyLimit / 100.0
		snap.Extra = &provider.ExtraUsage{
			UsedUSD:  extra.UsedCredits / 100.0,
			LimitUSD: &limitUSD,
		}
	}

	buckets := []struct {
		title  string
		short  string
		bucket *UsageBucket
		period time.Duration
	}{
		{"5h Limit", "5h", usage.FiveHour, 5 * time.Hour},
		{"7d Limit", "7d", usage.SevenDay, 7 * 24 * time.Hour},
		{"7d Sonnet", "", usage.SevenDaySonnet, 7 * 24 * time.Hour},
		{"7d Opus", "", usage.SevenDayOpus, 7 * 24 * time.Hour},
	}

	for _, b := range buckets {
		if b.bucket == nil || b.bucket.ResetsAt == nil {
			continue
		}
		used := int64(math.Round(b.bucket.Utilization))
		if used < 0 {
			used = 0
		}
		resetsAt := *b.bucket.ResetsAt
		snap.Windows = append(snap.Windows, provider.Window{
			Title:       b.title,
			ShortLabel:  b.short,
			Used:        used,
			Limit:       100,
			PeriodStart: resetsAt.Add(-b.period),
			PeriodEnd:   resetsAt,
		})
	}

	return snap
}
