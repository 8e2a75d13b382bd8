package api

import (
	"errors"
	"time"

	"FinCache/internal/domain/models"
	domrepo "FinCache/internal/domain/repository"
	domservice "FinCache/internal/domain/service"
	"FinCache/internal/usecase"
	xhttp "FinCache/pkg/http"
	xlogger "FinCache/pkg/logger"
	"FinCache/pkg/util"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler exposes the cached market data over HTTP.
type MarketEchoHandler struct {
	logger  *xlogger.Logger
	prices  *usecase.PriceCache
	news    *usecase.NewsCache
	scorer  domservice.Scorer
	symbols map[string]struct{} // symbols served by the yahoo route; empty allows all
	health  []domrepo.BarStore
}

func NewMarketEchoHandler(logger *xlogger.Logger, prices *usecase.PriceCache, news *usecase.NewsCache, scorer domservice.Scorer, symbols []string, health []domrepo.BarStore) *MarketEchoHandler {
	known := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		known[s] = struct{}{}
	}
	return &MarketEchoHandler{
		logger:  logger,
		prices:  prices,
		news:    news,
		scorer:  scorer,
		symbols: known,
		health:  health,
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/stocks/yf", h.StocksYahoo)
	g.GET("/stocks/av", h.StocksAlphaVantage)
	g.GET("/news", h.News)
	g.GET("/analyze", h.Analyze)
	e.GET("/healthz", h.Healthz)
}

// StocksYahoo serves daily bars from the Yahoo-backed cache. It only
// answers for configured symbols so arbitrary tickers cannot burn the
// upstream quota.
func (h *MarketEchoHandler) StocksYahoo(c echo.Context) error {
	req := &models.StockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if len(h.symbols) > 0 {
		if _, ok := h.symbols[req.Symbol]; !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("symbol %q is not served", req.Symbol))
		}
	}
	return h.serveStocks(c, req, "yahoo", true)
}

// StocksAlphaVantage serves daily bars from the Alpha Vantage-backed
// cache.
func (h *MarketEchoHandler) StocksAlphaVantage(c echo.Context) error {
	req := &models.StockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serveStocks(c, req, "alphavantage", false)
}

// Request windows are bounded: at most a year back and a month ahead.
const (
	maxPastDays   = 365
	maxFutureDays = 31
)

func (h *MarketEchoHandler) serveStocks(c echo.Context, req *models.StockRequest, source string, emptyIsError bool) error {
	start, _ := util.ParseDate(req.Start)
	end, _ := util.ParseDate(req.End)

	now := time.Now().UTC()
	if start.Before(now.AddDate(0, 0, -maxPastDays)) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("start must be within the last %d days", maxPastDays))
	}
	if end.After(now.AddDate(0, 0, maxFutureDays)) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("end must be within the next %d days", maxFutureDays))
	}

	bars, err := h.prices.GetRange(c.Request().Context(), req.Symbol, source, start, end)
	if err != nil {
		return h.writeError(c, err)
	}
	if emptyIsError && len(bars) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("no data for symbol "+req.Symbol))
	}

	points := make([]models.PricePoint, 0, len(bars))
	for i := range bars {
		points = append(points, models.NewPricePoint(&bars[i]))
	}
	return xhttp.SuccessResponse(c, &models.StockResponse{
		Symbol: req.Symbol,
		Source: source,
		Data:   points,
	})
}

// News serves cached articles for a query from the given day forward.
func (h *MarketEchoHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, _ := util.ParseDate(req.From)

	arts, err := h.news.GetArticles(c.Request().Context(), req.Query, req.Lang, from)
	if err != nil {
		return h.writeError(c, err)
	}

	out := make([]models.ArticleJSON, 0, len(arts))
	for i := range arts {
		out = append(out, models.NewArticleJSON(&arts[i]))
	}
	return xhttp.SuccessResponse(c, &models.NewsResponse{
		Query:        req.Query,
		From:         req.From,
		TotalResults: len(out),
		Articles:     out,
	})
}

// Analyze scores one headline against a topic.
func (h *MarketEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	verdict, err := h.scorer.Score(c.Request().Context(), req.Title, req.Description, req.Topic)
	if err != nil {
		h.logger.Error("sentiment scoring failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("analysis failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, &models.AnalyzeResponse{
		Topic:   req.Topic,
		Verdict: verdict,
	})
}

// Healthz pings the stores.
func (h *MarketEchoHandler) Healthz(c echo.Context) error {
	for _, s := range h.health {
		if err := s.Health(c.Request().Context()); err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("store unhealthy").WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *MarketEchoHandler) writeError(c echo.Context, err error) error {
	if verr, ok := usecase.AsValidation(err); ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(verr.Msg))
	}
	switch {
	case errors.Is(err, usecase.ErrUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("upstream data unavailable").WithError(err))
	case errors.Is(err, domrepo.ErrNotConfigured):
		return xhttp.AppErrorResponse(c, xhttp.InternalError("provider is not configured").WithError(err))
	default:
		h.logger.Error("request failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
