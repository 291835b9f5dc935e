package oddsfeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sharpline/sharpline/internal/dataaccess"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
)

// mapCache is a plain map-backed cache for tests.
type mapCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]interface{})}
}

func (m *mapCache) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapCache) Set(key string, value interface{}, _ time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return true
}

func (m *mapCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *mapCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]interface{})
}

func (m *mapCache) Close() {}

func testClientConfig(url string, c *mapCache) Config {
	return Config{
		URL:                   url,
		DialTimeout:           2 * time.Second,
		PongTimeout:           5 * time.Second,
		PingInterval:          time.Second,
		ReconnectInitialDelay: 50 * time.Millisecond,
		ReconnectMaxDelay:     time.Second,
		ReconnectBackoffMult:  2.0,
		SnapshotTTL:           time.Minute,
		Cache:                 c,
		Logger:                zap.NewNop(),
	}
}

func TestNew(t *testing.T) {
	c := newMapCache()
	client := New(testClientConfig("ws://example.invalid/feed", c))

	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.reconnectMgr == nil {
		t.Error("expected non-nil reconnect manager")
	}
	if client.subscribed == nil {
		t.Error("expected non-nil subscribed map")
	}
	if client.Connected() {
		t.Error("expected new client to report disconnected")
	}
}

func TestSubscribeEmpty(t *testing.T) {
	client := New(testClientConfig("ws://example.invalid/feed", newMapCache()))

	err := client.Subscribe(nil)
	if err != nil {
		t.Errorf("expected no error for empty event list, got %v", err)
	}
}

func TestSubscribeDuplicateEvents(t *testing.T) {
	client := New(testClientConfig("ws://example.invalid/feed", newMapCache()))

	client.mu.Lock()
	client.subscribed["evt-1"] = true
	client.subscribed["evt-2"] = true
	client.mu.Unlock()

	err := client.Subscribe([]string{"evt-1", "evt-2"})
	if err != nil {
		t.Errorf("expected no error for duplicate events, got %v", err)
	}

	client.mu.RLock()
	count := len(client.subscribed)
	client.mu.RUnlock()

	if count != 2 {
		t.Errorf("expected 2 subscribed events, got %d", count)
	}
}

func TestApplyWritesSnapshot(t *testing.T) {
	c := newMapCache()
	client := New(testClientConfig("ws://example.invalid/feed", c))

	client.apply(&Update{
		EventID:    "2026-01-15:lal@bos",
		BetType:    "total",
		Line:       221.5,
		HasLine:    true,
		OverPrice:  1.91,
		UnderPrice: 1.91,
		Timestamp:  time.Now().UnixMilli(),
	})

	v, ok := c.Get(dataaccess.OddsCacheKey("2026-01-15:lal@bos", types.BetTypeTotal))
	if !ok {
		t.Fatal("expected snapshot in cache")
	}
	snap, ok := v.(*types.MarketSnapshot)
	if !ok {
		t.Fatalf("expected *types.MarketSnapshot, got %T", v)
	}
	if snap.Line != 221.5 || !snap.HasLine {
		t.Errorf("unexpected snapshot line: %+v", snap)
	}
	if snap.OverPrice != 1.91 {
		t.Errorf("expected over price 1.91, got %v", snap.OverPrice)
	}
}

func TestApplyRejectsUnknownBetType(t *testing.T) {
	c := newMapCache()
	client := New(testClientConfig("ws://example.invalid/feed", c))

	client.apply(&Update{EventID: "evt-1", BetType: "moneyline_parlay", Line: 1})

	if len(c.data) != 0 {
		t.Errorf("expected no cache writes for unknown bet type, got %d", len(c.data))
	}
}

// feedServer is a minimal in-process odds feed for end-to-end tests.
func feedServer(t *testing.T, payload []Update) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		body, err := json.Marshal(payload)
		if err != nil {
			t.Errorf("marshal payload: %v", err)
			return
		}
		err = conn.WriteMessage(websocket.TextMessage, body)
		if err != nil {
			return
		}

		// Hold the connection open until the client hangs up.
		for {
			_, _, err = conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
}

func TestClientMirrorsFeedIntoCache(t *testing.T) {
	srv := feedServer(t, []Update{
		{EventID: "evt-1", BetType: "total", Line: 218.5, HasLine: true, OverPrice: 1.95, UnderPrice: 1.87},
		{EventID: "evt-1", BetType: "spread", Line: -3.5, HasLine: true, HomePrice: 1.91, AwayPrice: 1.91},
	})
	defer srv.Close()

	c := newMapCache()
	client := New(testClientConfig("ws"+strings.TrimPrefix(srv.URL, "http"), c))

	err := client.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer client.Close()

	if !client.Connected() {
		t.Error("expected connected client")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, okTotal := c.Get(dataaccess.OddsCacheKey("evt-1", types.BetTypeTotal))
		_, okSpread := c.Get(dataaccess.OddsCacheKey("evt-1", types.BetTypeSpread))
		if okTotal && okSpread {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("feed updates never reached the cache")
}
