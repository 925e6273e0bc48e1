package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	models "OTCFeed/internal/domain/models"
	domrepo "OTCFeed/internal/domain/repository"
	"OTCFeed/internal/services/otc"
	xhttp "OTCFeed/pkg/http"
	xlogger "OTCFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Engine is the generator surface exposed over HTTP.
type Engine interface {
	InitializeSymbol(cfg models.SymbolConfig, startPrice float64) error
	ResetSymbol(cfg models.SymbolConfig, startPrice float64) error
	UpdateRealPrice(symbol string, price float64) error
	GetExtendedState(symbol string) (models.SymbolState, error)
	Config(symbol string) (models.SymbolConfig, error)
	Symbols() []string
}

// SymbolView is one row of the symbol list.
type SymbolView struct {
	Symbol         string            `json:"symbol"`
	BaseSymbol     string            `json:"base_symbol,omitempty"`
	MarketType     models.MarketType `json:"market_type"`
	CurrentPrice   float64           `json:"current_price"`
	ReferencePrice float64           `json:"reference_price"`
	TicksGenerated uint64            `json:"ticks_generated"`
}

// OTCEchoHandler serves the OTC generator API.
type OTCEchoHandler struct {
	logger  *xlogger.Logger
	engine  Engine
	cache   domrepo.TickCache
	storage domrepo.TickStorage
	onInit  func(models.SymbolConfig)
	now     func() time.Time
}

type Option func(*OTCEchoHandler)

// WithTickCache enables GET /symbols/:symbol/tick.
func WithTickCache(c domrepo.TickCache) Option {
	return func(h *OTCEchoHandler) { h.cache = c }
}

// WithTickStorage enables GET /ticks.
func WithTickStorage(s domrepo.TickStorage) Option {
	return func(h *OTCEchoHandler) { h.storage = s }
}

// WithInitHook is called after a symbol is initialized or reset.
func WithInitHook(fn func(models.SymbolConfig)) Option {
	return func(h *OTCEchoHandler) { h.onInit = fn }
}

func NewOTCEchoHandler(logger *xlogger.Logger, engine Engine, opts ...Option) *OTCEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &OTCEchoHandler{logger: logger, engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *OTCEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/otc")
	g.GET("/symbols", h.ListSymbols)
	g.POST("/symbols", h.InitializeSymbol)
	g.GET("/symbols/:symbol/state", h.State)
	g.POST("/symbols/:symbol/reference", h.UpdateReference)
	g.GET("/symbols/:symbol/tick", h.LastTick)
	g.GET("/ticks", h.Ticks)
}

func (h *OTCEchoHandler) ListSymbols(c echo.Context) error {
	symbols := h.engine.Symbols()
	rows := make([]SymbolView, 0, len(symbols))
	for _, s := range symbols {
		st, err := h.engine.GetExtendedState(s)
		if err != nil {
			continue
		}
		cfg, err := h.engine.Config(s)
		if err != nil {
			continue
		}
		rows = append(rows, SymbolView{
			Symbol:         s,
			BaseSymbol:     cfg.BaseSymbol,
			MarketType:     cfg.MarketType,
			CurrentPrice:   st.CurrentPrice,
			ReferencePrice: st.ReferencePrice,
			TicksGenerated: st.TicksGenerated,
		})
	}
	return xhttp.ListResponse(c, rows, len(rows))
}

// InitializeSymbol creates a symbol; ?reset=true replaces an existing one.
func (h *OTCEchoHandler) InitializeSymbol(c echo.Context) error {
	req := &models.InitializeSymbolRequest{}
	if verr := xhttp.BindRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var err error
	reset := c.QueryParam("reset") == "true"
	if reset {
		err = h.engine.ResetSymbol(req.SymbolConfig, req.StartPrice)
		if err == nil && h.cache != nil {
			if ferr := h.cache.Forget(c.Request().Context(), req.Symbol); ferr != nil {
				h.logger.Warn("drop cached tick failed", xlogger.String("symbol", req.Symbol), xlogger.Error(ferr))
			}
		}
	} else {
		err = h.engine.InitializeSymbol(req.SymbolConfig, req.StartPrice)
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, h.engineError(err, req.Symbol))
	}
	h.logger.Info("symbol initialized",
		xlogger.String("symbol", req.Symbol),
		xlogger.Float64("start_price", req.StartPrice),
	)
	if h.onInit != nil {
		h.onInit(req.SymbolConfig)
	}

	st, err := h.engine.GetExtendedState(req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.engineError(err, req.Symbol))
	}
	return xhttp.CreatedResponse(c, st)
}

func (h *OTCEchoHandler) State(c echo.Context) error {
	symbol := symbolParam(c)
	st, err := h.engine.GetExtendedState(symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.engineError(err, symbol))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *OTCEchoHandler) UpdateReference(c echo.Context) error {
	req := &models.ReferencePriceRequest{}
	if verr := xhttp.BindRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := symbolParam(c)
	if err := h.engine.UpdateRealPrice(symbol, req.Price); err != nil {
		return xhttp.AppErrorResponse(c, h.engineError(err, symbol))
	}
	st, err := h.engine.GetExtendedState(symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.engineError(err, symbol))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *OTCEchoHandler) LastTick(c echo.Context) error {
	if h.cache == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("tick cache disabled"))
	}
	symbol := symbolParam(c)
	t, err := h.cache.Last(c.Request().Context(), symbol)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no tick for %s", symbol))
	}
	if err != nil {
		h.logger.Error("last tick lookup failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("last tick lookup failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, t)
}

// Ticks returns stored history, newest first. The window defaults to the last hour.
func (h *OTCEchoHandler) Ticks(c echo.Context) error {
	if h.storage == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("tick storage disabled"))
	}
	req := &models.TickHistoryRequest{}
	if verr := xhttp.BindRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, rerr := xhttp.ParseTimeRange(req.From, req.To, h.now(), time.Hour)
	if rerr != nil {
		return xhttp.AppErrorResponse(c, rerr)
	}

	ticks, err := h.storage.Query(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("tick query failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("tick query failed").WithError(err))
	}
	return xhttp.ListResponse(c, ticks, len(ticks))
}

func (h *OTCEchoHandler) Health(c echo.Context) error {
	res := map[string]interface{}{
		"status":  "ok",
		"symbols": len(h.engine.Symbols()),
	}
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Health(ctx); err != nil {
			res["status"] = "degraded"
			res["storage"] = err.Error()
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, res)
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *OTCEchoHandler) engineError(err error, symbol string) error {
	switch {
	case errors.Is(err, otc.ErrUnknownSymbol):
		return xhttp.NotFoundErrorf("unknown symbol %s", symbol).WithError(err)
	case errors.Is(err, otc.ErrAlreadyInitialized):
		return xhttp.ConflictErrorf("symbol %s already initialized", symbol).WithError(err)
	case errors.Is(err, otc.ErrInvalidConfig), errors.Is(err, otc.ErrInvalidPrice):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	}
	h.logger.Error("engine error", xlogger.String("symbol", symbol), xlogger.Error(err))
	return xhttp.InternalError("engine error").WithError(err)
}

// symbolParam unescapes the :symbol segment, since OTC symbols contain a slash.
func symbolParam(c echo.Context) string {
	s := c.Param("symbol")
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
