// Package poller drives the periodic fetch loop. It is the single
// writer of the poll state; renderers only ever read published copies.
package poller

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rmax-ai/traylord/pkg/provider"
)

// maxAttempts bounds one tick's fetch attempts: the initial try plus
// two retries for transport failures. Everything else waits for the
// next scheduled tick.
const maxAttempts = 3

// State is the latest renderable poll state. Snapshot is nil until the
// first successful fetch; on failure the previous snapshot is retained
// so renderers can show stale data with an error indicator.
type State struct {
	Snapshot *provider.Snapshot `json:"snapshot,omitempty"`

	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`

	LastSuccessAt       time.Time `json:"last_success_at,omitzero"`
	ConsecutiveFailures int       `json:"consecutive_failures"`

	IntervalSeconds int `json:"interval_seconds"`
}

// Stale reports whether the snapshot predates the most recent failure.
func (s State) Stale() bool {
	return s.Snapshot != nil && s.LastError != ""
}

// Poller polls one provider on a fixed cadence and owns the resulting
// state.
type Poller struct {
	prov     provider.Provider
	interval time.Duration
	backoff  BackoffStrategy

	inFlight atomic.Bool

	mu    sync.RWMutex
	state State
	subs  []chan State
}

func New(prov provider.Provider, interval time.Duration) *Poller {
	return &Poller{
		prov:     prov,
		interval: interval,
		backoff:  DefaultBackoff(),
		state:    State{IntervalSeconds: int(interval / time.Second)},
	}
}

// State returns a copy of the current poll state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Subscribe returns a single-slot, latest-wins channel of state
// updates. Slow consumers never block the poller and never see
// anything but the newest state.
func (p *Poller) Subscribe() <-chan State {
	ch := make(chan State, 1)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Run polls immediately, then on every interval tick, until ctx is
// done. An in-flight fetch is abandoned on shutdown, not awaited.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("Poller started for provider %s (interval %s)", p.prov.ID(), p.interval)

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Poller stopping due to context cancellation")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick starts one fetch unless one is already in flight. Returns false
// when the tick was skipped.
func (p *Poller) tick(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		TraylordPollsSkippedTotal.WithLabelValues(string(p.prov.ID())).Inc()
		log.Printf("Tick skipped: fetch already in flight for %s", p.prov.ID())
		return false
	}

	go func() {
		defer p.inFlight.Store(false)
		p.fetch(ctx)
	}()
	return true
}

// PollOnce performs one synchronous fetch and returns the resulting
// state. Used by one-shot invocations that have no loop.
func (p *Poller) PollOnce(ctx context.Context) State {
	if p.inFlight.CompareAndSwap(false, true) {
		p.fetch(ctx)
		p.inFlight.Store(false)
	}
	return p.State()
}

func (p *Poller) fetch(ctx context.Context) {
	id := string(p.prov.ID())
	start := time.Now()

	snap, err := p.pollWithRetry(ctx)

	TraylordFetchDuration.WithLabelValues(id).Set(time.Since(start).Seconds())

	if err != nil {
		log.Printf("Poll failed for provider %s: %v", id, err)
		TraylordPollErrorsTotal.WithLabelValues(id, errorReason(err)).Inc()

		p.mu.Lock()
		p.state.LastError = err.Error()
		p.state.LastErrorAt = time.Now()
		p.state.ConsecutiveFailures++
		state := p.state
		p.mu.Unlock()

		p.publish(state)
		return
	}

	TraylordLastSuccessTimestamp.WithLabelValues(id).Set(float64(time.Now().Unix()))
	for _, w := range snap.Windows {
		TraylordWindowUsed.WithLabelValues(id, w.Title).Set(float64(w.Used))
		TraylordWindowLimit.WithLabelValues(id, w.Title).Set(float64(w.Limit))
	}

	p.mu.Lock()
	p.state.Snapshot = snap
	p.state.LastError = ""
	p.state.LastErrorAt = time.Time{}
	p.state.LastSuccessAt = snap.FetchedAt
	p.state.ConsecutiveFailures = 0
	state := p.state
	p.mu.Unlock()

	p.publish(state)
}

// pollWithRetry retries transport failures with backoff inside a
// single tick. Auth, rate-limit and parse failures surface
// immediately; their retry is the next scheduled tick.
func (p *Poller) pollWithRetry(ctx context.Context) (*provider.Snapshot, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(p.backoff.Next(attempt - 1)):
			}
		}

		snap, err := p.prov.Poll(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err

		if !provider.Retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		log.Printf("Transient poll failure for %s (attempt %d/%d): %v", p.prov.ID(), attempt+1, maxAttempts, err)
	}

	return nil, lastErr
}

func (p *Poller) publish(state State) {
	p.mu.RLock()
	subs := make([]chan State, len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	for _, ch := range subs {
		// Latest-wins: clear a stale pending value rather than block.
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
