// Package stream funnels live ticks from the feed into the engine's
// event queue.
package stream

import (
	"context"
	"sync"

	"kite-levels-trader/internal/broker"
	"kite-levels-trader/internal/models"
)

// HubConfig holds configuration for the hub.
type HubConfig struct {
	// BufferSize is the size of the internal tick channel buffer.
	BufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{BufferSize: 1000}
}

// Hub bridges the feed's callback-based delivery to a buffered channel
// the engine drains from its event loop. Publishing is non-blocking:
// when the engine falls behind, ticks are dropped and counted rather
// than stalling the feed goroutine.
type Hub struct {
	config   HubConfig
	feed     broker.Feed
	tickChan chan models.Tick
	done     chan struct{}
	started  bool
	mu       sync.Mutex

	metricsMu      sync.RWMutex
	ticksReceived  uint64
	ticksDelivered uint64
	ticksDropped   uint64
}

// NewHub creates a hub with default configuration.
func NewHub(feed broker.Feed) *Hub {
	return NewHubWithConfig(feed, DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom configuration.
func NewHubWithConfig(feed broker.Feed, config HubConfig) *Hub {
	return &Hub{
		config:   config,
		feed:     feed,
		tickChan: make(chan models.Tick, config.BufferSize),
		done:     make(chan struct{}),
	}
}

// Start wires the feed's tick callback into the hub and connects.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.mu.Unlock()

	h.feed.OnTick(func(tick models.Tick) {
		h.Publish(tick)
	})

	return h.feed.Connect(ctx)
}

// Stop disconnects the feed.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}
	close(h.done)
	h.started = false
	h.feed.Disconnect()
}

// Ticks returns the channel the engine drains.
func (h *Hub) Ticks() <-chan models.Tick {
	return h.tickChan
}

// Publish enqueues a tick for the engine. Non-blocking: a full buffer
// drops the tick and bumps the drop counter.
func (h *Hub) Publish(tick models.Tick) {
	h.metricsMu.Lock()
	h.ticksReceived++
	h.metricsMu.Unlock()

	select {
	case h.tickChan <- tick:
		h.metricsMu.Lock()
		h.ticksDelivered++
		h.metricsMu.Unlock()
	default:
		h.metricsMu.Lock()
		h.ticksDropped++
		h.metricsMu.Unlock()
	}
}

// HubMetrics contains hub throughput counters.
type HubMetrics struct {
	TicksReceived  uint64
	TicksDelivered uint64
	TicksDropped   uint64
}

// Metrics returns a snapshot of the hub counters.
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()

	return HubMetrics{
		TicksReceived:  h.ticksReceived,
		TicksDelivered: h.ticksDelivered,
		TicksDropped:   h.ticksDropped,
	}
}

// IsStarted reports whether the hub is running.
func (h *Hub) IsStarted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}
