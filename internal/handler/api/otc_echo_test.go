package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository"
	"OTCFeed/internal/domain/repository/fake"
	"OTCFeed/internal/services/otc"
	xhttp "OTCFeed/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const eurBody = `{
	"symbol": "EUR/USD-OTC",
	"base_symbol": "OANDA:EUR_USD",
	"pip_size": 0.00001,
	"base_volatility": 0.00002,
	"mean_reversion_strength": 0.02,
	"max_deviation_percent": 0.5,
	"momentum_factor": 0.3,
	"garch_alpha": 0.08,
	"garch_beta": 0.9,
	"garch_omega": 0.02,
	"start_price": 1.1
}`

type fixture struct {
	e       *echo.Echo
	gen     *otc.Generator
	cache   *fake.TickCache
	storage *fake.TickSink
	inits   []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		e:       echo.New(),
		gen:     otc.NewGenerator(otc.NewStore(otc.WithSources(otc.SeededSources(3)))),
		cache:   fake.NewTickCache(),
		storage: &fake.TickSink{},
	}
	h := NewOTCEchoHandler(nil, f.gen,
		WithTickCache(f.cache),
		WithTickStorage(f.storage),
		WithInitHook(func(c models.SymbolConfig) { f.inits = append(f.inits, c.Symbol) }),
	)
	h.now = func() time.Time { return time.UnixMilli(10_000_000) }
	h.RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, xhttp.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestInitializeAndList(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodPost, "/api/otc/symbols", eurBody)
	require.Equal(t, http.StatusCreated, code)
	st := resp.Data.(map[string]interface{})
	require.Equal(t, "EUR/USD-OTC", st["symbol"])
	require.Equal(t, 1.1, st["current_price"])
	require.Equal(t, []string{"EUR/USD-OTC"}, f.inits)

	code, resp = f.do(t, http.MethodPost, "/api/otc/symbols", eurBody)
	require.Equal(t, http.StatusConflict, code)
	errs := resp.Data.([]interface{})
	require.Equal(t, "ERR_CONFLICT", errs[0].(map[string]interface{})["code"])

	require.NoError(t, f.cache.SaveLast(context.Background(), &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.1, Timestamp: 1}))
	code, _ = f.do(t, http.MethodPost, "/api/otc/symbols?reset=true", strings.Replace(eurBody, `"start_price": 1.1`, `"start_price": 1.2`, 1))
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, f.inits, 2)
	_, err := f.cache.Last(context.Background(), "EUR/USD-OTC")
	require.ErrorIs(t, err, repository.ErrNotFound)

	code, resp = f.do(t, http.MethodGet, "/api/otc/symbols", "")
	require.Equal(t, http.StatusOK, code)
	list := resp.Data.(map[string]interface{})
	require.Equal(t, 1.0, list["total"])
	row := list["rows"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, 1.2, row["current_price"])
	require.Equal(t, "OANDA:EUR_USD", row["base_symbol"])
	require.Equal(t, "FOREX", row["market_type"])
}

func TestInitializeValidation(t *testing.T) {
	f := newFixture(t)

	code, resp := f.do(t, http.MethodPost, "/api/otc/symbols", `{"symbol":"X"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.NotEmpty(t, resp.Data)

	// passes struct validation but alpha+beta >= 1
	bad := strings.Replace(eurBody, `"garch_beta": 0.9`, `"garch_beta": 0.95`, 1)
	code, resp = f.do(t, http.MethodPost, "/api/otc/symbols", bad)
	require.Equal(t, http.StatusBadRequest, code)
	errs := resp.Data.([]interface{})
	require.Equal(t, "ERR_BAD_REQUEST", errs[0].(map[string]interface{})["code"])
	require.Empty(t, f.inits)
}

func TestStateAndReference(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/otc/symbols", eurBody)

	code, _ := f.do(t, http.MethodGet, "/api/otc/symbols/NOPE/state", "")
	require.Equal(t, http.StatusNotFound, code)

	code, resp := f.do(t, http.MethodGet, "/api/otc/symbols/EUR%2FUSD-OTC/state", "")
	require.Equal(t, http.StatusOK, code)
	wave := resp.Data.(map[string]interface{})["wave"].(map[string]interface{})
	require.Contains(t, wave, "phase_length")

	code, resp = f.do(t, http.MethodPost, "/api/otc/symbols/EUR%2FUSD-OTC/reference", `{"price":1.2}`)
	require.Equal(t, http.StatusOK, code)
	st := resp.Data.(map[string]interface{})
	require.Equal(t, 1.2, st["reference_price"])
	// pulled into the 0.5% band around the new reference
	require.InDelta(t, 1.194, st["current_price"], 1e-9)

	code, _ = f.do(t, http.MethodPost, "/api/otc/symbols/EUR%2FUSD-OTC/reference", `{"price":-1}`)
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodPost, "/api/otc/symbols/NOPE/reference", `{"price":1}`)
	require.Equal(t, http.StatusNotFound, code)
}

func TestLastTick(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodGet, "/api/otc/symbols/EUR%2FUSD-OTC/tick", "")
	require.Equal(t, http.StatusNotFound, code)

	require.NoError(t, f.cache.SaveLast(context.Background(), &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.10002, Timestamp: 42}))
	code, resp := f.do(t, http.MethodGet, "/api/otc/symbols/EUR%2FUSD-OTC/tick", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1.10002, resp.Data.(map[string]interface{})["price"])

	f.cache.Err = errors.New("redis down")
	code, _ = f.do(t, http.MethodGet, "/api/otc/symbols/EUR%2FUSD-OTC/tick", "")
	require.Equal(t, http.StatusInternalServerError, code)
}

func TestTicksHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := int64(0); i < 5; i++ {
		require.NoError(t, f.storage.Store(ctx, &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.1, Timestamp: 9_000_000 + i*1000}))
	}
	require.NoError(t, f.storage.Store(ctx, &models.Tick{Symbol: "EUR/USD-OTC", Price: 1.1, Timestamp: 1}))

	code, resp := f.do(t, http.MethodGet, "/api/otc/ticks?symbol=EUR/USD-OTC&limit=3", "")
	require.Equal(t, http.StatusOK, code)
	list := resp.Data.(map[string]interface{})
	require.Equal(t, 3.0, list["total"])
	first := list["rows"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, 9_004_000.0, first["timestamp"])

	code, resp = f.do(t, http.MethodGet, "/api/otc/ticks?symbol=EUR/USD-OTC&from=1970-01-01T00:00:00Z&to=10000000000", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 6.0, resp.Data.(map[string]interface{})["total"])

	code, _ = f.do(t, http.MethodGet, "/api/otc/ticks", "")
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/api/otc/ticks?symbol=EUR/USD-OTC&from=2026-01-02T00:00:00Z&to=2026-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusBadRequest, code)
	code, _ = f.do(t, http.MethodGet, "/api/otc/ticks?symbol=EUR/USD-OTC&from=yesterday", "")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestDisabledBackends(t *testing.T) {
	e := echo.New()
	NewOTCEchoHandler(nil, otc.NewGenerator(otc.NewStore())).RegisterRoutes(e)

	for _, path := range []string{"/api/otc/ticks?symbol=X", "/api/otc/symbols/X/tick"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthDegraded(t *testing.T) {
	f := newFixture(t)
	f.storage.Err = errors.New("clickhouse down")
	code, resp := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "degraded", resp.Data.(map[string]interface{})["status"])
}
