package broker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"kite-levels-trader/internal/models"
)

// KiteTicker implements Feed over the Zerodha WebSocket stream.
type KiteTicker struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string

	onTick       func(models.Tick)
	onError      func(error)
	onConnect    func()
	onDisconnect func()

	connected  bool
	subscribed map[uint32]bool
	symbols    map[uint32]string

	reconnecting bool
	maxRetries   int
	baseDelay    time.Duration

	mu      sync.RWMutex
	writeMu sync.Mutex // protects websocket writes (Subscribe, SetMode)
}

// KiteTickerConfig holds configuration for the ticker.
type KiteTickerConfig struct {
	APIKey      string
	AccessToken string
	MaxRetries  int
	BaseDelay   time.Duration
}

// NewKiteTicker creates a ticker instance.
func NewKiteTicker(cfg KiteTickerConfig) *KiteTicker {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}

	return &KiteTicker{
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		subscribed:  make(map[uint32]bool),
		symbols:     make(map[uint32]string),
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
	}
}

// RegisterSymbol maps an instrument token to its trading symbol so
// ticks carry a readable symbol.
func (t *KiteTicker) RegisterSymbol(token uint32, symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.symbols[token] = symbol
}

// Connect establishes the WebSocket connection.
func (t *KiteTicker) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}

	t.ticker = kiteticker.New(t.apiKey, t.accessToken)

	connectedCh := make(chan struct{})
	firstConnect := true

	t.ticker.OnConnect(func() {
		t.mu.Lock()
		t.connected = true
		t.reconnecting = false
		isFirst := firstConnect
		firstConnect = false
		t.mu.Unlock()

		select {
		case connectedCh <- struct{}{}:
		default:
		}

		// On reconnection, resubscribe to the previous token set. The
		// external handler subscribes only on first connect.
		if !isFirst {
			t.resubscribe()
			return
		}
		if t.onConnect != nil {
			go t.onConnect()
		}
	})

	t.ticker.OnClose(func(code int, reason string) {
		t.mu.Lock()
		wasConnected := t.connected
		t.connected = false
		t.mu.Unlock()

		if t.onDisconnect != nil && wasConnected {
			go t.onDisconnect()
		}
		go t.reconnect(ctx)
	})

	t.ticker.OnError(func(err error) {
		if t.onError != nil {
			go t.onError(err)
		}
	})

	t.ticker.OnTick(func(tick kitemodels.Tick) {
		if t.onTick != nil {
			t.onTick(t.convertTick(tick))
		}
	})

	t.ticker.OnReconnect(func(attempt int, delay time.Duration) {
		t.mu.Lock()
		t.reconnecting = true
		t.mu.Unlock()
	})

	t.mu.Unlock()

	go t.ticker.Serve()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-connectedCh:
		return nil
	case <-time.After(30 * time.Second):
		t.mu.RLock()
		connected := t.connected
		t.mu.RUnlock()
		if !connected {
			return fmt.Errorf("connection timeout")
		}
		return nil
	}
}

// Disconnect closes the WebSocket connection.
func (t *KiteTicker) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Close()
		t.connected = false
	}
	return nil
}

// Subscribe subscribes to instrument tokens in quote mode.
func (t *KiteTicker) Subscribe(tokens []uint32) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	for _, token := range tokens {
		t.subscribed[token] = true
	}
	t.mu.Unlock()

	if len(tokens) == 0 {
		return nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := t.ticker.SetMode(kiteticker.ModeQuote, tokens); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}
	return nil
}

// Unsubscribe unsubscribes from instrument tokens.
func (t *KiteTicker) Unsubscribe(tokens []uint32) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	for _, token := range tokens {
		delete(t.subscribed, token)
	}
	t.mu.Unlock()

	if len(tokens) == 0 {
		return nil
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.ticker.Unsubscribe(tokens); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// OnTick sets the tick handler.
func (t *KiteTicker) OnTick(handler func(models.Tick)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = handler
}

// OnError sets the error handler.
func (t *KiteTicker) OnError(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = handler
}

// OnConnect sets the connect handler.
func (t *KiteTicker) OnConnect(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnect = handler
}

// OnDisconnect sets the disconnect handler.
func (t *KiteTicker) OnDisconnect(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisconnect = handler
}

// IsConnected returns whether the ticker is connected.
func (t *KiteTicker) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *KiteTicker) convertTick(tick kitemodels.Tick) models.Tick {
	t.mu.RLock()
	symbol := t.symbols[tick.InstrumentToken]
	t.mu.RUnlock()

	ts := tick.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return models.Tick{
		Token:     tick.InstrumentToken,
		Symbol:    symbol,
		LTP:       tick.LastPrice,
		Volume:    int64(tick.VolumeTraded),
		Timestamp: ts,
	}
}

// reconnect attempts to reconnect with exponential backoff.
func (t *KiteTicker) reconnect(ctx context.Context) {
	t.mu.Lock()
	if t.reconnecting {
		t.mu.Unlock()
		return
	}
	t.reconnecting = true
	t.mu.Unlock()

	for attempt := 0; attempt < t.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delay := t.baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		time.Sleep(delay)

		t.mu.Lock()
		if t.connected {
			t.reconnecting = false
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()

		if err := t.Connect(ctx); err == nil {
			return
		}
	}

	t.mu.Lock()
	t.reconnecting = false
	t.mu.Unlock()

	if t.onError != nil {
		t.onError(fmt.Errorf("max reconnection attempts reached"))
	}
}

// resubscribe restores the subscription set after a reconnect.
func (t *KiteTicker) resubscribe() {
	t.mu.RLock()
	tokens := make([]uint32, 0, len(t.subscribed))
	for token := range t.subscribed {
		tokens = append(tokens, token)
	}
	t.mu.RUnlock()

	if len(tokens) == 0 {
		return
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.ticker.Subscribe(tokens)
	t.ticker.SetMode(kiteticker.ModeQuote, tokens)
}

var _ Feed = (*KiteTicker)(nil)
