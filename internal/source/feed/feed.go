// Package feed maps the third-party results API (latest, by-date and
// history endpoints) onto canonical results.
package feed

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/cache"
	"github.com/hyperifyio/lotteryresults/internal/fetch"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/source"
)

const (
	Name           = "feed"
	DefaultBaseURL = "https://indialotteryapi.com/wp-json/klr/v1"
	Timeout        = 10 * time.Second
)

// Status tells whether the latest endpoint had anything new.
type Status int

const (
	Updated Status = iota
	Unchanged
)

func (s Status) String() string {
	if s == Unchanged {
		return "unchanged"
	}
	return "updated"
}

// LatestResult is the answer of the latest endpoint. Result is nil when
// Status is Unchanged.
type LatestResult struct {
	Status    Status
	Result    *lottery.Result
	Validator cache.Validator
}

// Page is one page of the history endpoint. Items that failed to map are
// not included, so len(Items) may be below the requested limit.
type Page struct {
	Total int              `json:"total"`
	Items []lottery.Result `json:"items"`
}

// Adapter talks to the API. Use New for defaults.
type Adapter struct {
	BaseURL string
	HTTP    *fetch.Client
	Now     func() time.Time
}

// NewClient returns a single-attempt JSON client.
func NewClient(hc *http.Client, userAgent string) *fetch.Client {
	return &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         userAgent,
		Accept:            "application/json",
		MaxAttempts:       1,
		PerRequestTimeout: Timeout,
	}
}

func New() *Adapter {
	return &Adapter{BaseURL: DefaultBaseURL, HTTP: NewClient(nil, ""), Now: time.Now}
}

func (a *Adapter) Name() string { return Name }

// LatestURL is the key the latest endpoint's validator is stored under.
func (a *Adapter) LatestURL() string {
	return a.endpoint("latest", nil)
}

// Latest fetches the newest draw, sending v as a conditional request. A
// 304 answer is reported as Unchanged without reading a body.
func (a *Adapter) Latest(ctx context.Context, v cache.Validator) (LatestResult, error) {
	u := a.LatestURL()
	resp, err := a.HTTP.Do(ctx, fetch.Request{URL: u, ETag: v.ETag, LastModified: v.LastModified})
	if err != nil {
		return LatestResult{}, a.transportFailure("latest", err)
	}
	if resp.NotModified() {
		log.Debug().Str("source", Name).Str("etag", v.ETag).Msg("latest not modified")
		return LatestResult{Status: Unchanged, Validator: v}, nil
	}
	res, err := a.mapBody("latest", resp.Body)
	if err != nil {
		return LatestResult{}, err
	}
	return LatestResult{
		Status: Updated,
		Result: res,
		Validator: cache.Validator{
			URL:          u,
			ETag:         resp.ETag,
			LastModified: resp.LastModified,
		},
	}, nil
}

// ByDate fetches the draw held on day.
func (a *Adapter) ByDate(ctx context.Context, day time.Time) (*lottery.Result, error) {
	date := day.Format(lottery.FeedLayout)
	resp, err := a.HTTP.Do(ctx, fetch.Request{URL: a.endpoint("by-date", url.Values{"date": {date}})})
	if err != nil {
		if fetch.IsStatus(err, http.StatusNotFound) {
			return nil, lottery.Fail(Name, lottery.ErrNotFound, err, "no draw on %s", date)
		}
		return nil, a.transportFailure("by-date", err)
	}
	return a.mapBody("by-date "+date, resp.Body)
}

// Fetch implements source.Source through ByDate.
func (a *Adapter) Fetch(ctx context.Context, day time.Time) (*lottery.Result, error) {
	return a.ByDate(ctx, day)
}

type historyBody struct {
	Total int               `json:"total"`
	Items []json.RawMessage `json:"items"`
}

// History fetches one page of past draws. Items are mapped one by one and
// unmappable ones are dropped.
func (a *Adapter) History(ctx context.Context, limit, offset int) (Page, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
	resp, err := a.HTTP.Do(ctx, fetch.Request{URL: a.endpoint("history", q)})
	if err != nil {
		return Page{}, a.transportFailure("history", err)
	}
	var body historyBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return Page{}, lottery.Fail(Name, lottery.ErrMalformedSource, err, "history body")
	}
	page := Page{Total: body.Total, Items: make([]lottery.Result, 0, len(body.Items))}
	now := a.now().UTC()
	for i, raw := range body.Items {
		res, err := Map(raw)
		if err != nil {
			log.Debug().Str("source", Name).Int("index", offset+i).Err(err).Msg("history item dropped")
			continue
		}
		res.ScrapedAt = now
		page.Items = append(page.Items, *res)
	}
	return page, nil
}

func (a *Adapter) mapBody(what string, body []byte) (*lottery.Result, error) {
	res, err := Map(body)
	switch {
	case errors.Is(err, ErrErrorPayload):
		return nil, lottery.Fail(Name, lottery.ErrNotFound, err, "%s", what)
	case err != nil:
		log.Warn().Str("source", Name).Str("excerpt", source.Excerpt(string(body), 200)).Err(err).Msg("feed item not mappable")
		return nil, lottery.Fail(Name, lottery.ErrMalformedSource, err, "%s", what)
	}
	res.ScrapedAt = a.now().UTC()
	return res, nil
}

func (a *Adapter) endpoint(path string, q url.Values) string {
	u := strings.TrimRight(a.BaseURL, "/") + "/" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (a *Adapter) transportFailure(what string, err error) error {
	var se *fetch.StatusError
	if errors.As(err, &se) {
		if _, mapErr := Map(se.Body); errors.Is(mapErr, ErrErrorPayload) && se.Code == http.StatusNotFound {
			return lottery.Fail(Name, lottery.ErrNotFound, err, "%s", what)
		}
	}
	return lottery.Fail(Name, lottery.ErrTransport, err, "%s", what)
}

func (a *Adapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
