package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func fakeFinnhub(t *testing.T, subscribed chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeMsg
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub.Symbol

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		var pong pongMsg
		if err := conn.ReadJSON(&pong); err != nil || pong.Type != "pong" {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"trade","data":[{"s":"OANDA:EUR_USD","p":1.1911,"v":0,"t":1700000000550}]}`))

		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestClientStreamsQuotes(t *testing.T) {
	subscribed := make(chan string, 1)
	srv := fakeFinnhub(t, subscribed)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New("secret", wsURL, []string{"OANDA:EUR_USD"}, time.Millisecond, time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	require.True(t, c.IsConnected())
	require.NoError(t, c.Subscribe(ctx))
	require.Equal(t, "OANDA:EUR_USD", <-subscribed)

	quotes, _ := c.Read(ctx)
	select {
	case q := <-quotes:
		require.Equal(t, "OANDA:EUR_USD", q.Symbol)
		require.Equal(t, 1.1911, q.Price)
		require.Equal(t, int64(1700000000550), q.Timestamp)
	case <-ctx.Done():
		t.Fatal("no quote received")
	}

	require.NoError(t, c.Close())
	require.False(t, c.IsConnected())
}

// recordingFinnhub forwards every subscribe message it receives.
func recordingFinnhub(t *testing.T, subscribed chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var sub subscribeMsg
			if err := conn.ReadJSON(&sub); err != nil {
				return
			}
			if sub.Type == "subscribe" {
				subscribed <- sub.Symbol
			}
		}
	}))
}

func TestSubscribeSymbolAfterStart(t *testing.T) {
	subscribed := make(chan string, 8)
	srv := recordingFinnhub(t, subscribed)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	next := func() string {
		select {
		case s := <-subscribed:
			return s
		case <-ctx.Done():
			t.Fatal("no subscribe message")
			return ""
		}
	}

	c := New("secret", "ws"+strings.TrimPrefix(srv.URL, "http"), []string{"OANDA:EUR_USD"}, time.Millisecond, time.Hour, nil)
	require.NoError(t, c.SubscribeSymbol(ctx, "OANDA:GBP_USD"), "offline adds are kept for the next subscribe")

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx))
	require.Equal(t, "OANDA:EUR_USD", next())
	require.Equal(t, "OANDA:GBP_USD", next())

	require.NoError(t, c.SubscribeSymbol(ctx, "OANDA:USD_JPY"))
	require.Equal(t, "OANDA:USD_JPY", next())

	require.NoError(t, c.SubscribeSymbol(ctx, "OANDA:EUR_USD"))
	require.NoError(t, c.SubscribeSymbol(ctx, "BINANCE:BTCUSDT"))
	require.Equal(t, "BINANCE:BTCUSDT", next(), "known symbols are not resent")

	require.NoError(t, c.Reconnect(ctx))
	for _, want := range []string{"OANDA:EUR_USD", "OANDA:GBP_USD", "OANDA:USD_JPY", "BINANCE:BTCUSDT"} {
		require.Equal(t, want, next())
	}
	require.NoError(t, c.Close())
}

func TestReadWithoutConnection(t *testing.T) {
	c := New("k", "ws://127.0.0.1:1", nil, 0, 0, nil)
	quotes, errs := c.Read(context.Background())
	require.Error(t, <-errs)
	_, open := <-quotes
	require.False(t, open)
}

func TestSubscribeWithoutConnection(t *testing.T) {
	c := New("k", "ws://127.0.0.1:1", []string{"X"}, 0, 0, nil)
	require.Error(t, c.Subscribe(context.Background()))
}

func TestDecodeFrame(t *testing.T) {
	var p fastjson.Parser

	qs, ping := decodeFrame(&p, []byte(`{"type":"ping"}`))
	require.True(t, ping)
	require.Empty(t, qs)

	qs, ping = decodeFrame(&p, []byte(`{`))
	require.False(t, ping)
	require.Empty(t, qs)

	qs, _ = decodeFrame(&p, []byte(`{"type":"trade","data":[{"s":"A","p":1,"t":5},{"p":9,"t":5},{"s":"B","p":2.5,"v":3,"t":6}]}`))
	require.Len(t, qs, 2)
	require.Equal(t, "A", qs[0].Symbol)
	require.Equal(t, int64(5), qs[0].Timestamp)
	require.Equal(t, "B", qs[1].Symbol)
	require.Equal(t, 2.5, qs[1].Price)
	require.Equal(t, 3.0, qs[1].Volume)
}
