package docgen

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the aggregator drains its event queue.
const DefaultPollInterval = 100 * time.Millisecond

// ProgressEvent is one unit completion.
type ProgressEvent struct {
	Key       string
	Succeeded bool
}

// Snapshot is the externally visible progress state.
type Snapshot struct {
	Completed     int
	Failed        int
	Total         int
	LastKey       string
	LastSucceeded bool
	Done          bool
}

// Ratio returns Completed/Total in [0, 1]. An empty run reports 1 once it
// is done.
func (s Snapshot) Ratio() float64 {
	if s.Total == 0 {
		if s.Done {
			return 1
		}
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Aggregator turns concurrent completion events into a monotonic progress
// signal. Producers call Record; a single consumer goroutine started by
// Start drains the queue every poll interval and publishes snapshots. The
// consumer exits when Finish is called, after draining whatever is queued.
type Aggregator struct {
	total    int
	interval time.Duration
	events   chan ProgressEvent
	updates  chan Snapshot
	onUpdate func(Snapshot)

	mu   sync.RWMutex
	snap Snapshot

	startOnce  sync.Once
	finishOnce sync.Once
	finished   chan struct{}
	stopped    chan struct{}
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithUpdateFunc registers a callback invoked from the consumer goroutine
// every time the snapshot changes.
func WithUpdateFunc(fn func(Snapshot)) AggregatorOption {
	return func(a *Aggregator) { a.onUpdate = fn }
}

// NewAggregator creates an Aggregator expecting total completion events.
func NewAggregator(total int, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		total:    total,
		interval: DefaultPollInterval,
		// One slot per expected event so Record never blocks.
		events:   make(chan ProgressEvent, max(total, 1)),
		updates:  make(chan Snapshot, 1),
		snap:     Snapshot{Total: total},
		finished: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record enqueues a completion event. It never blocks; events beyond the
// expected total are dropped.
func (a *Aggregator) Record(key string, succeeded bool) {
	select {
	case a.events <- ProgressEvent{Key: key, Succeeded: succeeded}:
	default:
	}
}

// Start launches the consumer goroutine. It stops on Finish or when ctx is
// cancelled. Calling Start more than once has no effect.
func (a *Aggregator) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.consume(ctx)
	})
}

// Finish marks generation complete and waits for the consumer to drain the
// queue and exit. It is safe to call more than once and before Start.
func (a *Aggregator) Finish() {
	a.finishOnce.Do(func() { close(a.finished) })
	a.startOnce.Do(func() {
		// Never started: drain synchronously.
		a.drain()
		a.markDone()
		close(a.updates)
		close(a.stopped)
	})
	<-a.stopped
}

// Snapshot returns the current progress state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// Updates returns a channel carrying the latest snapshot whenever it
// changes. Only the newest snapshot is retained if the reader falls behind.
// The channel is closed when the consumer exits.
func (a *Aggregator) Updates() <-chan Snapshot {
	return a.updates
}

func (a *Aggregator) consume(ctx context.Context) {
	defer close(a.stopped)
	defer close(a.updates)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.drain()
		case <-a.finished:
			a.drain()
			a.markDone()
			return
		case <-ctx.Done():
			a.drain()
			a.markDone()
			return
		}
	}
}

// drain applies every queued event without blocking.
func (a *Aggregator) drain() {
	for {
		select {
		case evt := <-a.events:
			a.apply(evt)
		default:
			return
		}
	}
}

func (a *Aggregator) apply(evt ProgressEvent) {
	a.mu.Lock()
	if a.snap.Completed >= a.total {
		a.mu.Unlock()
		return
	}
	a.snap.Completed++
	if !evt.Succeeded {
		a.snap.Failed++
	}
	a.snap.LastKey = evt.Key
	a.snap.LastSucceeded = evt.Succeeded
	snap := a.snap
	a.mu.Unlock()
	a.publish(snap)
}

func (a *Aggregator) markDone() {
	a.mu.Lock()
	a.snap.Done = true
	snap := a.snap
	a.mu.Unlock()
	a.publish(snap)
}

// publish is only called from the consumer, so replacing a stale value in
// the one-slot channel cannot race with another sender.
func (a *Aggregator) publish(snap Snapshot) {
	select {
	case a.updates <- snap:
	default:
		select {
		case <-a.updates:
		default:
		}
		a.updates <- snap
	}
	if a.onUpdate != nil {
		a.onUpdate(snap)
	}
}
