// Package live reads the news page that posts provisional results while a
// draw is in progress, and the upcoming-draw banner before it starts.
package live

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/extract"
	"github.com/hyperifyio/lotteryresults/internal/fetch"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/source"
)

const (
	Name       = "live"
	DefaultURL = "https://www.goodreturns.in/kerala-lottery-results.html"
	Timeout    = 20 * time.Second
)

type Adapter struct {
	URL  string
	HTTP *fetch.Client
	Now  func() time.Time
}

// NewClient returns a single-attempt HTML client with a browser user agent.
func NewClient(hc *http.Client, userAgent string) *fetch.Client {
	if userAgent == "" {
		userAgent = fetch.BrowserUserAgent
	}
	return &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         userAgent,
		Accept:            "text/html,application/xhtml+xml",
		MaxAttempts:       1,
		PerRequestTimeout: Timeout,
		AcceptTypes:       []string{"text/html", "application/xhtml+xml"},
	}
}

func New() *Adapter {
	return &Adapter{URL: DefaultURL, HTTP: NewClient(nil, ""), Now: time.Now}
}

func (a *Adapter) Name() string { return Name }

// Fetch reads whatever the page currently shows. day is not used; the page
// only carries the current or next draw.
func (a *Adapter) Fetch(ctx context.Context, _ time.Time) (*lottery.Result, error) {
	page, _, err := a.HTTP.Get(ctx, a.URL)
	if err != nil {
		return nil, lottery.Fail(Name, lottery.ErrTransport, err, "live page")
	}
	text, err := extract.Flatten(page)
	if err != nil {
		return nil, lottery.Fail(Name, lottery.ErrMalformedSource, err, "flatten live page")
	}
	res := Parse(text, a.now())
	if !res.IsUpcoming && res.Code == lottery.Unknown && len(res.Prizes) == 0 {
		log.Warn().Str("source", Name).Str("excerpt", source.Excerpt(text, 200)).Msg("live page layout not recognised")
	}
	return res, nil
}

func (a *Adapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
