// Package api serves stored results over HTTP and exposes the manual
// scrape and backfill triggers.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/poller"
	"github.com/hyperifyio/lotteryresults/internal/render"
	"github.com/hyperifyio/lotteryresults/internal/source/feed"
	"github.com/hyperifyio/lotteryresults/internal/store"
)

// Results is the read side of the store.
type Results interface {
	Get(ctx context.Context, code string) (*lottery.Result, error)
	List(ctx context.Context, q store.ListQuery) ([]lottery.Result, error)
	Names(ctx context.Context) ([]string, error)
}

// Trigger runs polls on demand.
type Trigger interface {
	ScrapeNow(ctx context.Context, now time.Time) (poller.Outcome, error)
	Backfill(ctx context.Context, limit, offset int) (poller.BackfillReport, error)
}

// History pages through the feed's archive.
type History interface {
	History(ctx context.Context, limit, offset int) (feed.Page, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler holds the dependencies of every route. Trigger and History may
// be nil, in which case their routes answer 503.
type Handler struct {
	Results Results
	Trigger Trigger
	History History
	Now     func() time.Time
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/pdf$`})))

	r.GET("/health", h.health)
	g := r.Group("/api")
	g.GET("/results", h.listResults)
	g.GET("/results/:code", h.getResult)
	g.GET("/results/:code/pdf", h.resultPDF)
	g.GET("/lottery-types", h.lotteryTypes)
	g.GET("/scrape-now", h.scrapeNow)
	g.POST("/scrape-now", h.scrapeNow)
	g.POST("/backfill", h.backfill)
	g.GET("/feed/history", h.feedHistory)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listResults(c *gin.Context) {
	results, err := h.Results.List(c.Request.Context(), store.ListQuery{Name: c.Query("name")})
	if err != nil {
		serverError(c, "list results", err)
		return
	}
	if results == nil {
		results = []lottery.Result{}
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) lookup(c *gin.Context) (*lottery.Result, bool) {
	res, err := h.Results.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		serverError(c, "get result", err)
		return nil, false
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return nil, false
	}
	return res, true
}

func (h *Handler) getResult(c *gin.Context) {
	if res, ok := h.lookup(c); ok {
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) resultPDF(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.PDF(&buf, *res); err != nil {
		serverError(c, "render pdf", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, res.Code))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) lotteryTypes(c *gin.Context) {
	names, err := h.Results.Names(c.Request.Context())
	if err != nil {
		serverError(c, "list names", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, names)
}

func (h *Handler) scrapeNow(c *gin.Context) {
	if h.Trigger == nil {
		unavailable(c, "scraping disabled")
		return
	}
	out, err := h.Trigger.ScrapeNow(c.Request.Context(), h.now())
	if err != nil {
		serverError(c, "scrape now", err)
		return
	}
	if out.Result == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Failed to fetch", "run_id": out.RunID, "failures": out.Failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Success", "run_id": out.RunID, "status": out.Status, "data": out.Result})
}

func (h *Handler) backfill(c *gin.Context) {
	if h.Trigger == nil {
		unavailable(c, "backfill disabled")
		return
	}
	limit, offset, ok := paging(c)
	if !ok {
		return
	}
	rep, err := h.Trigger.Backfill(c.Request.Context(), limit, offset)
	if err != nil {
		upstreamError(c, "backfill", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) feedHistory(c *gin.Context) {
	if h.History == nil {
		unavailable(c, "feed disabled")
		return
	}
	limit, offset, ok := paging(c)
	if !ok {
		return
	}
	page, err := h.History.History(c.Request.Context(), limit, offset)
	if err != nil {
		upstreamError(c, "feed history", err)
		return
	}
	if page.Items == nil {
		page.Items = []lottery.Result{}
	}
	c.JSON(http.StatusOK, page)
}

func paging(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxPageSize)})
			return 0, 0, false
		}
		limit = n
	}
	if s := c.Query("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func serverError(c *gin.Context, what string, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(what)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func unavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
}

// upstreamError answers 502 for source failures and 500 for anything else.
func upstreamError(c *gin.Context, what string, err error) {
	if errors.Is(err, poller.ErrNoFeed) {
		unavailable(c, "feed disabled")
		return
	}
	var f *lottery.Failure
	if errors.As(err, &f) {
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(what)
		c.JSON(http.StatusBadGateway, gin.H{"error": f.Error()})
		return
	}
	serverError(c, what, err)
}
