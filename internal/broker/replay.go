package broker

import (
	"context"
	"sync"

	"kite-levels-trader/internal/models"
)

// ReplayFeed is a deterministic Feed that emits a pre-loaded tick
// sequence. Used for paper-trading replays and tests.
type ReplayFeed struct {
	mu         sync.Mutex
	ticks      []models.Tick
	subscribed map[uint32]bool
	connected  bool

	onTick    func(models.Tick)
	onConnect func()
}

// NewReplayFeed creates a replay feed over the given tick sequence.
func NewReplayFeed(ticks []models.Tick) *ReplayFeed {
	return &ReplayFeed{
		ticks:      ticks,
		subscribed: make(map[uint32]bool),
	}
}

func (f *ReplayFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	onConnect := f.onConnect
	f.mu.Unlock()

	if onConnect != nil {
		onConnect()
	}
	return nil
}

func (f *ReplayFeed) Disconnect() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *ReplayFeed) Subscribe(tokens []uint32) error {
	f.mu.Lock()
	for _, t := range tokens {
		f.subscribed[t] = true
	}
	f.mu.Unlock()
	return nil
}

func (f *ReplayFeed) Unsubscribe(tokens []uint32) error {
	f.mu.Lock()
	for _, t := range tokens {
		delete(f.subscribed, t)
	}
	f.mu.Unlock()
	return nil
}

func (f *ReplayFeed) OnTick(handler func(models.Tick)) { f.onTick = handler }
func (f *ReplayFeed) OnError(handler func(error))      {}
func (f *ReplayFeed) OnConnect(handler func())         { f.onConnect = handler }
func (f *ReplayFeed) OnDisconnect(handler func())      {}

// Run emits every loaded tick for a subscribed token, in order, then
// returns. Cancel the context to stop early.
func (f *ReplayFeed) Run(ctx context.Context) {
	for _, tick := range f.ticks {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.mu.Lock()
		subscribed := f.subscribed[tick.Token]
		handler := f.onTick
		f.mu.Unlock()

		if subscribed && handler != nil {
			handler(tick)
		}
	}
}

var _ Feed = (*ReplayFeed)(nil)
