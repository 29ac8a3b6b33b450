package poller

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmax-ai/traylord/pkg/provider"
)

var (
	// TraylordWindowUsed tracks the current used amount for a usage window
	TraylordWindowUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traylord_window_used",
			Help: "Current used amount for a provider usage window",
		},
		[]string{"provider_id", "window"},
	)

	// TraylordWindowLimit tracks the window limit (0 = unbounded)
	TraylordWindowLimit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traylord_window_limit",
			Help: "Limit for a provider usage window (0 = unbounded)",
		},
		[]string{"provider_id", "window"},
	)

	// TraylordPollErrorsTotal counts failed polls by reason
	TraylordPollErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traylord_poll_errors_total",
			Help: "Total number of failed polls",
		},
		[]string{"provider_id", "reason"},
	)

	// TraylordPollsSkippedTotal counts ticks skipped because a fetch was in flight
	TraylordPollsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traylord_polls_skipped_total",
			Help: "Total number of ticks skipped due to an in-flight fetch",
		},
		[]string{"provider_id"},
	)

	// TraylordLastSuccessTimestamp records the last successful fetch
	TraylordLastSuccessTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traylord_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful fetch",
		},
		[]string{"provider_id"},
	)

	// TraylordFetchDuration records how long the last fetch took
	TraylordFetchDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "traylord_fetch_duration_seconds",
			Help: "Duration of the last fetch attempt",
		},
		[]string{"provider_id"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(TraylordWindowUsed)
	prometheus.MustRegister(TraylordWindowLimit)
	prometheus.MustRegister(TraylordPollErrorsTotal)
	prometheus.MustRegister(TraylordPollsSkippedTotal)
	prometheus.MustRegister(TraylordLastSuccessTimestamp)
	prometheus.MustRegister(TraylordFetchDuration)
}

// errorReason maps a fetch error onto a bounded metric label set.
func errorReason(err error) string {
	switch {
	case errors.Is(err, provider.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, provider.ErrNetwork):
		return "network"
	case errors.Is(err, provider.ErrUnknownAuthIndex):
		return "unknown_auth_index"
	case errors.Is(err, provider.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "other"
	}
}
