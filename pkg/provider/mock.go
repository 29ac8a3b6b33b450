package provider

import (
	"context"
	"sync"
	"time"
)

// MockProvider serves scripted snapshots and errors for testing
type MockProvider struct {
	id      ProviderID
	mu      sync.Mutex
	queue   []mockStep
	latency time.Duration
	polls   int

	// Default snapshot returned when the script is exhausted
	snapshot *Snapshot
}

type mockStep struct {
	snapshot *Snapshot
	err      error
}

// NewMockProvider creates a mock provider with a default single-window snapshot
func NewMockProvider(id string) *MockProvider {
	now := time.Now()
	return &MockProvider{
		id: ProviderID(id),
		snapshot: &Snapshot{
			Provider: ProviderID(id),
			Tier:     "Pro",
			Windows: []Window{
				{
					Title:       "5h Limit",
					ShortLabel:  "5h",
					Used:        12,
					Limit:       100,
					PeriodStart: now.Add(-time.Hour),
					PeriodEnd:   now.Add(4 * time.Hour),
				},
			},
			FetchedAt: now,
		},
	}
}

// SetLatency makes each Poll block for d (or until ctx is done)
func (p *MockProvider) SetLatency(d time.Duration) {
	p.mu.Lock()
	p.latency = d
	p.mu.Unlock()
}

// SetSnapshot replaces the default snapshot
func (p *MockProvider) SetSnapshot(s *Snapshot) {
	p.mu.Lock()
	p.snapshot = s
	p.mu.Unlock()
}

// QueueResult appends a scripted poll outcome; scripted outcomes are
// consumed in order before the default snapshot is used
func (p *MockProvider) QueueResult(s *Snapshot, err error) {
	p.mu.Lock()
	p.queue = append(p.queue, mockStep{snapshot: s, err: err})
	p.mu.Unlock()
}

// QueueError appends a scripted failure
func (p *MockProvider) QueueError(err error) {
	p.QueueResult(nil, err)
}

// Polls returns how many times Poll has been invoked
func (p *MockProvider) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

func (p *MockProvider) ID() ProviderID {
	return p.id
}

func (p *MockProvider) Poll(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	p.polls++
	latency := p.latency
	var step *mockStep
	if len(p.queue) > 0 {
		s := p.queue[0]
		p.queue = p.queue[1:]
		step = &s
	}
	snapshot := p.snapshot
	p.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return nil, NetworkErr(ctx.Err())
		case <-time.After(latency):
		}
	}

	if step != nil {
		if step.err != nil {
			return nil, step.err
		}
		return step.snapshot, nil
	}

	out := *snapshot
	out.FetchedAt = time.Now()
	return &out, nil
}
