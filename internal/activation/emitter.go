package activation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finguard-ai/finguard/internal/redact"
)

// Sink consumes activation events (stdout, webhook).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Metrics is a point-in-time copy of the emitter counters.
type Metrics struct {
	enqueued    uint64
	dropped     uint64
	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64
}

func (m Metrics) Enqueued() uint64 { return m.enqueued }
func (m Metrics) Dropped() uint64  { return m.dropped }

func (m Metrics) SinkSuccess(name string) uint64 { return m.sinkSuccess[name] }
func (m Metrics) SinkFailure(name string) uint64 { return m.sinkFailure[name] }

// DeliveryHook observes each sink delivery. It runs on a worker goroutine.
type DeliveryHook func(sink string, err error)

// Emitter buffers events and delivers them to sinks off the request path.
type Emitter struct {
	queue           chan *Event
	sinks           []Sink
	shutdownTimeout time.Duration
	hook            DeliveryHook

	enqueued atomic.Uint64
	dropped  atomic.Uint64

	countsMu    sync.Mutex
	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// EmitterConfig controls worker and queue sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
	OnDeliver       DeliveryHook
}

// NewEmitter starts background workers to deliver events to the provided sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}

	em := &Emitter{
		queue:           make(chan *Event, cfg.QueueSize),
		sinks:           sinks,
		shutdownTimeout: cfg.ShutdownTimeout,
		hook:            cfg.OnDeliver,
		sinkSuccess:     make(map[string]uint64, len(sinks)),
		sinkFailure:     make(map[string]uint64, len(sinks)),
	}
	for _, s := range sinks {
		em.sinkSuccess[s.Name()] = 0
		em.sinkFailure[s.Name()] = 0
	}

	for i := 0; i < cfg.Workers; i++ {
		em.wg.Add(1)
		go em.worker()
	}
	return em
}

// Emit enqueues the event without blocking. Events are dropped when the queue
// is full or the emitter is closed.
func (e *Emitter) Emit(_ context.Context, ev *Event) {
	if e == nil || ev == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.dropped.Add(1)
		return
	}
	select {
	case e.queue <- ev:
		e.enqueued.Add(1)
	default:
		e.dropped.Add(1)
	}
}

// Close stops accepting events and waits up to the shutdown timeout for the
// queue to drain before closing sinks.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
		redact.Logf("activation: shutdown timeout, %d events left in queue", len(e.queue))
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			redact.Logf("activation: sink %s close error: %v", s.Name(), err)
		}
	}
}

// MetricsSnapshot copies the current counters.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil {
		return Metrics{}
	}
	e.countsMu.Lock()
	defer e.countsMu.Unlock()
	out := Metrics{
		enqueued:    e.enqueued.Load(),
		dropped:     e.dropped.Load(),
		sinkSuccess: make(map[string]uint64, len(e.sinkSuccess)),
		sinkFailure: make(map[string]uint64, len(e.sinkFailure)),
	}
	for k, v := range e.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range e.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		e.deliver(ev)
	}
}

func (e *Emitter) deliver(ev *Event) {
	for _, s := range e.sinks {
		err := s.Deliver(context.Background(), ev)
		e.countsMu.Lock()
		if err != nil {
			e.sinkFailure[s.Name()]++
		} else {
			e.sinkSuccess[s.Name()]++
		}
		e.countsMu.Unlock()

		if err != nil {
			redact.Logf("activation: sink %s failed: %v", s.Name(), err)
		}
		if e.hook != nil {
			e.hook(s.Name(), err)
		}
	}
}
