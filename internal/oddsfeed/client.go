package oddsfeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/pkg/cache"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// Update is one odds message from the feed. The feed sends arrays of these;
// prices are decimal, American-odds conversion happens upstream of the wire.
type Update struct {
	EventID    string  `json:"event_id"`
	BetType    string  `json:"bet_type"`
	Line       float64 `json:"line"`
	HasLine    bool    `json:"has_line"`
	OverPrice  float64 `json:"over_price,omitempty"`
	UnderPrice float64 `json:"under_price,omitempty"`
	HomePrice  float64 `json:"home_price,omitempty"`
	AwayPrice  float64 `json:"away_price,omitempty"`
	Timestamp  int64   `json:"ts"`
}

// Client maintains a single WebSocket connection to the odds feed and
// mirrors every update into the shared odds cache, where the evaluation
// pipeline reads market snapshots before falling back to the warehouse.
type Client struct {
	url             string
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	cache           cache.Cache
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	subscribed      map[string]bool // tracks subscribed event IDs
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64
}

// Config holds odds feed client configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	SnapshotTTL           time.Duration
	Cache                 cache.Cache
	Logger                *zap.Logger
}

// New creates a new odds feed client.
func New(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Client{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		cache:        cfg.Cache,
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start connects and launches the read, ping and reconnect loops.
func (c *Client) Start() error {
	c.logger.Info("odds-feed-starting", zap.String("url", c.url))

	err := c.connect(c.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	c.wg.Add(3)
	go c.readLoop()
	go c.pingLoop()
	go c.reconnectLoop()

	return nil
}

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		c.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	now := time.Now()
	c.connected.Store(true)
	c.lastPongTime.Store(now.Unix())
	c.connectionStart.Store(now.Unix())
	FeedConnected.Set(1)

	c.logger.Info("odds-feed-connected")

	return nil
}

// Subscribe registers interest in a set of event IDs.
func (c *Client) Subscribe(eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	c.mu.Lock()

	newEvents := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if !c.subscribed[id] {
			newEvents = append(newEvents, id)
			c.subscribed[id] = true
		}
	}

	if len(newEvents) == 0 {
		c.mu.Unlock()
		c.logger.Debug("all-events-already-subscribed")
		return nil
	}

	subscribeMsg := map[string]interface{}{
		"event_ids": newEvents,
		"operation": "subscribe",
	}

	total := len(c.subscribed)
	m := c.conn
	c.mu.Unlock()

	// Network I/O without holding the lock.
	err := m.WriteJSON(subscribeMsg)
	if err != nil {
		c.mu.Lock()
		for _, id := range newEvents {
			delete(c.subscribed, id)
		}
		total = len(c.subscribed)
		c.mu.Unlock()

		SubscribedEvents.Set(float64(total))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscribedEvents.Set(float64(total))

	c.logger.Info("subscribed-to-events",
		zap.Int("new-count", len(newEvents)),
		zap.Int("total-count", total))

	return nil
}

// Unsubscribe drops interest in a set of event IDs.
func (c *Client) Unsubscribe(eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	c.mu.Lock()

	toDrop := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if c.subscribed[id] {
			toDrop = append(toDrop, id)
			delete(c.subscribed, id)
		}
	}

	if len(toDrop) == 0 {
		c.mu.Unlock()
		return nil
	}

	unsubscribeMsg := map[string]interface{}{
		"event_ids": toDrop,
		"operation": "unsubscribe",
	}

	total := len(c.subscribed)
	m := c.conn
	c.mu.Unlock()

	err := m.WriteJSON(unsubscribeMsg)
	if err != nil {
		c.mu.Lock()
		for _, id := range toDrop {
			c.subscribed[id] = true
		}
		total = len(c.subscribed)
		c.mu.Unlock()

		SubscribedEvents.Set(float64(total))
		return fmt.Errorf("write unsubscribe message: %w", err)
	}

	SubscribedEvents.Set(float64(total))

	c.logger.Info("unsubscribed-from-events",
		zap.Int("count", len(toDrop)),
		zap.Int("remaining-count", total))

	return nil
}

// readLoop reads update batches and mirrors them into the cache.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("read-error", zap.Error(err))

			startTime := c.connectionStart.Load()
			if startTime > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			c.connected.Store(false)
			FeedConnected.Set(0)
			return
		}

		var updates []Update
		err = json.Unmarshal(message, &updates)
		if err != nil {
			// Heartbeats come through as empty arrays.
			if len(message) < 10 {
				c.logger.Debug("odds-feed-heartbeat", zap.Int("bytes", len(message)))
				continue
			}

			var control map[string]interface{}
			if json.Unmarshal(message, &control) == nil {
				if op, ok := control["operation"].(string); ok {
					c.logger.Debug("odds-feed-control-message",
						zap.String("operation", op),
						zap.Int("bytes", len(message)))
					continue
				}
			}

			UpdatesDroppedTotal.WithLabelValues("unparseable").Inc()
			c.logger.Debug("odds-feed-unparseable-message",
				zap.Error(err),
				zap.Int("bytes", len(message)))
			continue
		}

		for i := range updates {
			c.apply(&updates[i])
		}
	}
}

// apply writes one update into the shared cache under the same key the
// pipeline's cached warehouse reads.
func (c *Client) apply(u *Update) {
	betType := types.BetType(u.BetType)
	switch betType {
	case types.BetTypeTotal, types.BetTypeSpread, types.BetTypePlayerProp:
	default:
		UpdatesDroppedTotal.WithLabelValues("unknown_bet_type").Inc()
		return
	}

	snapshot := &types.MarketSnapshot{
		Line:       u.Line,
		HasLine:    u.HasLine,
		OverPrice:  u.OverPrice,
		UnderPrice: u.UnderPrice,
		HomePrice:  u.HomePrice,
		AwayPrice:  u.AwayPrice,
		FetchedAt:  time.Unix(0, u.Timestamp*int64(time.Millisecond)).UTC(),
	}
	if u.Timestamp == 0 {
		snapshot.FetchedAt = time.Now().UTC()
	}

	key := dataaccess.OddsCacheKey(u.EventID, betType)
	c.cache.Set(key, snapshot, c.config.SnapshotTTL)

	UpdatesReceivedTotal.WithLabelValues(u.BetType).Inc()

	c.logger.Debug("odds-updated",
		zap.String("event-id", u.EventID),
		zap.String("bet-type", u.BetType),
		zap.Float64("line", u.Line))
}

// pingLoop sends periodic PING frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if !c.connected.Load() {
				continue
			}

			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				c.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop reconnects with backoff whenever the connection drops.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if c.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		c.logger.Warn("connection-lost-initiating-reconnect")

		err := c.reconnectMgr.Reconnect(c.ctx, c.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			c.logger.Error("reconnection-failed", zap.Error(err))
			continue
		}

		err = c.resubscribeAll()
		if err != nil {
			c.logger.Error("resubscribe-failed", zap.Error(err))
			c.connected.Store(false)
			continue
		}

		c.logger.Info("reconnection-complete-restarting-read-loop")

		c.wg.Add(1)
		go c.readLoop()
	}
}

// resubscribeAll re-registers every subscribed event after a reconnect.
func (c *Client) resubscribeAll() error {
	c.mu.RLock()
	eventIDs := make([]string, 0, len(c.subscribed))
	for id := range c.subscribed {
		eventIDs = append(eventIDs, id)
	}
	c.mu.RUnlock()

	if len(eventIDs) == 0 {
		return nil
	}

	subscribeMsg := map[string]interface{}{
		"event_ids": eventIDs,
		"operation": "subscribe",
	}

	c.mu.RLock()
	err := c.conn.WriteJSON(subscribeMsg)
	c.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	c.logger.Info("resubscribed-to-all-events", zap.Int("count", len(eventIDs)))

	return nil
}

// Connected reports whether the feed is currently connected.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Close gracefully shuts the client down.
func (c *Client) Close() error {
	c.logger.Info("closing-odds-feed")

	c.cancel()

	c.mu.RLock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.RUnlock()

	c.wg.Wait()

	FeedConnected.Set(0)

	c.logger.Info("odds-feed-closed")

	return nil
}
