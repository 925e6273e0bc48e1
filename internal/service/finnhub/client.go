package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"OTCFeed/internal/domain/models"
	applogger "OTCFeed/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"
)

// Client is a ReferenceStream backed by the Finnhub trades WebSocket.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex // guards conn and writes
	conn      *websocket.Conn
	connected bool
}

// New creates a Finnhub stream for the given base symbols.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        append([]string(nil), symbols...),
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.websocketURL)
	if err != nil {
		return fmt.Errorf("finnhub url: %w", err)
	}
	q := u.Query()
	q.Set("token", c.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.l.Info("finnhub connected", applogger.String("url", c.websocketURL))
	return nil
}

type subscribeMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Subscribe subscribes to every tracked symbol.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("finnhub not connected")
	}
	for _, s := range c.symbols {
		if err := c.conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbol: s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.l.Info("finnhub subscribed", applogger.Strings("symbols", c.symbols))
	return nil
}

// SubscribeSymbol tracks symbol so it survives reconnects and subscribes to
// it now if the socket is up. Known symbols are a no-op.
func (c *Client) SubscribeSymbol(_ context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.symbols {
		if s == symbol {
			return nil
		}
	}
	c.symbols = append(c.symbols, symbol)
	if c.conn == nil || !c.connected {
		return nil
	}
	if err := c.conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbol: symbol}); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	c.l.Info("finnhub subscribed", applogger.String("symbol", symbol))
	return nil
}

// Read streams reference quotes until ctx ends or the connection fails.
// When the consumer lags, quotes are dropped; only the latest price matters.
func (c *Client) Read(ctx context.Context) (<-chan *models.ReferenceQuote, <-chan error) {
	quotes := make(chan *models.ReferenceQuote, 256)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		errs <- fmt.Errorf("finnhub not connected")
		close(quotes)
		close(errs)
		return quotes, errs
	}

	done := make(chan struct{})
	go c.pingLoop(ctx, done)

	go func() {
		defer close(quotes)
		defer close(errs)
		defer close(done)
		var parser fastjson.Parser
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("finnhub read: %w", err)
				}
				return
			}
			batch, ping := decodeFrame(&parser, b)
			if ping {
				c.pong()
				continue
			}
			for _, q := range batch {
				select {
				case quotes <- q:
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	return quotes, errs
}

func (c *Client) pingLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
			c.mu.Unlock()
		}
	}
}

// decodeFrame extracts trades from a frame and reports Finnhub keep-alive
// pings. Malformed frames and trades without symbol or price are skipped.
func decodeFrame(p *fastjson.Parser, b []byte) (quotes []*models.ReferenceQuote, ping bool) {
	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, false
	}
	switch string(v.GetStringBytes("type")) {
	case "ping":
		return nil, true
	case "trade":
	default:
		return nil, false
	}

	for _, t := range v.GetArray("data") {
		sym := string(t.GetStringBytes("s"))
		if sym == "" || t.Get("p") == nil {
			continue
		}
		quotes = append(quotes, &models.ReferenceQuote{
			Symbol:    sym,
			Price:     t.GetFloat64("p"),
			Volume:    t.GetFloat64("v"),
			Timestamp: t.GetInt64("t"),
		})
	}
	return quotes, false
}

type pongMsg struct {
	Type string `json:"type"`
}

func (c *Client) pong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.WriteJSON(pongMsg{Type: "pong"})
	}
}

// Reconnect closes, waits and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
