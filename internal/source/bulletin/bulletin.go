// Package bulletin reads the official result bulletin: it finds the newest
// PDF on the result index page, extracts its text and parses prize blocks.
package bulletin

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/extract"
	"github.com/hyperifyio/lotteryresults/internal/fetch"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/source"
)

const (
	// Name identifies the adapter in results, logs and config.
	Name = "bulletin"

	DefaultIndexURL = "https://statelottery.kerala.gov.in/English/index.php/lottery-result-view"
	DefaultLinkBase = "https://statelottery.kerala.gov.in/English/"

	Attempts   = 3
	RetryDelay = 5 * time.Second
	Timeout    = 60 * time.Second
)

var viewLink = regexp.MustCompile(`(?i)View`)

// Adapter fetches the latest bulletin. The zero value is not usable; use New.
type Adapter struct {
	IndexURL string
	LinkBase string
	HTTP     *fetch.Client
	Pages    extract.PageExtractor
	Now      func() time.Time
}

// NewClient returns the fetch client the bulletin needs: a browser user
// agent, a long per-request timeout and three attempts on timeouts.
func NewClient(hc *http.Client, userAgent string) *fetch.Client {
	if userAgent == "" {
		userAgent = fetch.BrowserUserAgent
	}
	return &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         userAgent,
		MaxAttempts:       Attempts,
		RetryDelay:        RetryDelay,
		PerRequestTimeout: Timeout,
	}
}

// New returns an adapter with production defaults.
func New() *Adapter {
	return &Adapter{
		IndexURL: DefaultIndexURL,
		LinkBase: DefaultLinkBase,
		HTTP:     NewClient(nil, ""),
		Pages:    extract.PDFText,
		Now:      time.Now,
	}
}

func (a *Adapter) Name() string { return Name }

// Fetch returns the newest bulletin's result. The bulletin site only lists
// the latest draw, so day is not used here; callers compare the date.
func (a *Adapter) Fetch(ctx context.Context, _ time.Time) (*lottery.Result, error) {
	index, _, err := a.HTTP.Get(ctx, a.IndexURL)
	if err != nil {
		return nil, transportFailure("index page", err)
	}
	pdfURL, ok, err := extract.FindLink(index, viewLink, a.LinkBase)
	if err != nil {
		return nil, lottery.Fail(Name, lottery.ErrMalformedSource, err, "index page")
	}
	if !ok {
		log.Info().Str("source", Name).Str("url", a.IndexURL).Msg("no result link on index page")
		return nil, lottery.Fail(Name, lottery.ErrNotFound, nil, "no result link on index page")
	}
	log.Debug().Str("source", Name).Str("pdf", pdfURL).Msg("found bulletin")

	doc, _, err := a.HTTP.Get(ctx, pdfURL)
	if err != nil {
		return nil, transportFailure("bulletin download", err)
	}
	text, err := a.Text(doc)
	if err != nil {
		log.Warn().Str("source", Name).Str("pdf", pdfURL).Err(err).Msg("bulletin text extraction failed")
		return nil, err
	}
	res, err := Parse(text)
	if err != nil {
		log.Warn().Str("source", Name).Str("excerpt", source.Excerpt(text, 200)).Err(err).Msg("bulletin layout not recognised")
		return nil, err
	}
	res.ScrapedAt = a.now().UTC()
	return res, nil
}

// Text validates the document header and joins page texts in page order.
func (a *Adapter) Text(doc []byte) (string, error) {
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		return "", lottery.Fail(Name, lottery.ErrMalformedSource, nil, "download is not a PDF (%d bytes)", len(doc))
	}
	pages := a.Pages
	if pages == nil {
		pages = extract.PDFText
	}
	texts, err := pages.Pages(doc)
	if err != nil {
		return "", lottery.Fail(Name, lottery.ErrMalformedSource, err, "pdf text extraction")
	}
	return strings.Join(texts, "\n"), nil
}

func (a *Adapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func transportFailure(what string, err error) error {
	if errors.Is(err, fetch.ErrExhausted) {
		log.Warn().Str("source", Name).Err(err).Msg("all attempts timed out, site likely down")
		return lottery.Fail(Name, lottery.ErrExhaustedRetries, err, "%s", what)
	}
	return lottery.Fail(Name, lottery.ErrTransport, err, "%s", what)
}
