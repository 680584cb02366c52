// Package counters polls the badge counts shown in the navigation.
package counters

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Kind names one polled count.
type Kind string

const (
	None                Kind = ""
	PendingOrders       Kind = "pending_orders"
	UnreadNotifications Kind = "unread_notifications"
)

// Snapshot holds the latest value per Kind.
type Snapshot map[Kind]int

// Get returns the count for k, zero when absent.
func (s Snapshot) Get(k Kind) int {
	if s == nil {
		return 0
	}
	return s[k]
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Source computes a count for one Kind.
type Source interface {
	Count(ctx context.Context, kind Kind) (int, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, kind Kind) (int, error)

// Count calls f.
func (f SourceFunc) Count(ctx context.Context, kind Kind) (int, error) {
	return f(ctx, kind)
}

// ErrUnsupported is returned by sources asked for a Kind they do not serve.
var ErrUnsupported = errors.New("counters: unsupported kind")

// Poller refreshes a Snapshot on a fixed interval.
//
// Each poll replaces the previous snapshot. A poll that completes after
// Stop, after its context ended, or after a newer poll was published is
// discarded. A failing kind keeps its previous value.
type Poller struct {
	source   Source
	kinds    []Kind
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	snapshot  Snapshot
	issued    uint64
	published uint64
	stopped   bool
}

// NewPoller constructs a Poller for kinds.
func NewPoller(source Source, interval time.Duration, logger *slog.Logger, kinds ...Kind) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		source:   source,
		kinds:    kinds,
		interval: interval,
		logger:   logger,
		snapshot: Snapshot{},
	}
}

// Snapshot returns a copy of the latest published counts.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot.clone()
}

// Poll queries the source once and publishes the result. It reports
// whether the result was published.
func (p *Poller) Poll(ctx context.Context) (Snapshot, bool) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, false
	}
	p.issued++
	gen := p.issued
	p.mu.Unlock()

	next := make(Snapshot, len(p.kinds))
	failed := make(map[Kind]bool)
	for _, kind := range p.kinds {
		n, err := p.source.Count(ctx, kind)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("counter poll failed", slog.String("kind", string(kind)), slog.Any("error", err))
			}
			failed[kind] = true
			continue
		}
		next[kind] = n
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || ctx.Err() != nil || gen < p.published {
		return nil, false
	}
	for kind := range failed {
		if prev, ok := p.snapshot[kind]; ok {
			next[kind] = prev
		}
	}
	p.published = gen
	p.snapshot = next
	return next.clone(), true
}

// Run polls immediately and then on every tick until ctx ends, calling
// publish with each published snapshot. Run stops the poller on return.
func (p *Poller) Run(ctx context.Context, publish func(Snapshot)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.Stop()

	for {
		if snap, ok := p.Poll(ctx); ok && publish != nil {
			publish(snap)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop discards every in-flight and future poll.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
