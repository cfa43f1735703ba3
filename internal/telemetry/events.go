package telemetry

import (
	"sync"
	"time"
)

// EventKind identifies the cached artifact class an event refers to.
type EventKind string

const (
	KindPattern   EventKind = "pattern"
	KindSearch    EventKind = "search"
	KindEmbedding EventKind = "embedding"
)

// Event is one cache or pipeline observation.
type Event struct {
	Kind    EventKind
	Key     string
	Tier    string
	Hit     bool
	Latency time.Duration
}

// Sink accepts telemetry events. Implementations must never block.
type Sink interface {
	Record(Event)
}

// NopSink discards all events. Useful for tests.
type NopSink struct{}

func (NopSink) Record(Event) {}

// Bus is a bounded, drop-on-full event queue drained by one consumer
// goroutine into the Prometheus collectors.
type Bus struct {
	events  chan Event
	metrics *Metrics

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// NewBus starts a bus with the given queue depth. metrics may be nil.
func NewBus(queueDepth int, metrics *Metrics) *Bus {
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	b := &Bus{
		events:  make(chan Event, queueDepth),
		metrics: metrics,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go b.drain()
	return b
}

// Record enqueues an event without blocking. Full queue drops the event,
// and a closed bus ignores it; detached cache writes may still emit
// after shutdown, so the events channel itself is never closed.
func (b *Bus) Record(ev Event) {
	select {
	case <-b.quit:
		return
	default:
	}
	select {
	case b.events <- ev:
	default:
		if b.metrics != nil {
			b.metrics.RecordDropped()
		}
	}
}

// Close stops the consumer after draining queued events.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.quit)
		<-b.done
	})
}

func (b *Bus) drain() {
	defer close(b.done)
	for {
		select {
		case ev := <-b.events:
			b.consume(ev)
		case <-b.quit:
			for {
				select {
				case ev := <-b.events:
					b.consume(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) consume(ev Event) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordCacheAccess(string(ev.Kind), ev.Tier, ev.Hit, ev.Latency)
}
