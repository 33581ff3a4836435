// Package poller decides which source is asked for a draw and when, and
// hands whatever it finds to the result store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/cache"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/source"
	"github.com/hyperifyio/lotteryresults/internal/source/feed"
)

// Sink receives every result the poller accepts.
type Sink interface {
	Upsert(ctx context.Context, r *lottery.Result) error
}

// Store is a Sink that can also tell whether a day is already done.
type Store interface {
	Sink
	FindFinalized(ctx context.Context, day time.Time) (*lottery.Result, error)
}

// Feed is the subset of the feed adapter used for syncing and backfill.
type Feed interface {
	LatestURL() string
	Latest(ctx context.Context, v cache.Validator) (feed.LatestResult, error)
	History(ctx context.Context, limit, offset int) (feed.Page, error)
}

// ValidatorStore persists conditional request validators between runs.
type ValidatorStore interface {
	Load(ctx context.Context, url string) (cache.Validator, error)
	Save(ctx context.Context, v cache.Validator) error
}

// Status is the result of one poll.
type Status int

const (
	NotReady Status = iota
	Saved
	AlreadyStored
	Placeholder
	Unchanged
)

func (s Status) String() string {
	switch s {
	case Saved:
		return "saved"
	case AlreadyStored:
		return "already_stored"
	case Placeholder:
		return "placeholder"
	case Unchanged:
		return "unchanged"
	default:
		return "not_ready"
	}
}

// MarshalText renders the status name in JSON responses.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome describes what a run did. Failures maps a source name to the
// error it returned.
type Outcome struct {
	RunID    string            `json:"run_id"`
	Day      string            `json:"day,omitempty"`
	Status   Status            `json:"status"`
	Source   string            `json:"source,omitempty"`
	Result   *lottery.Result   `json:"result,omitempty"`
	Failures map[string]string `json:"failures,omitempty"`
}

func (o *Outcome) fail(src string, err error) {
	if o.Failures == nil {
		o.Failures = map[string]string{}
	}
	o.Failures[src] = err.Error()
}

// noCode reports a dated result that cannot be stored because its draw
// code was not found on the page.
func noCode(src string, res *lottery.Result) error {
	return lottery.Fail(src, lottery.ErrMalformedSource, nil, "no draw code for %s", res.DrawDate)
}

// BackfillReport summarises one history page import.
type BackfillReport struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Fetched int    `json:"fetched"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
}

// Orchestrator asks Sources in order and writes to Store. Feed and
// Validators are optional; without Feed, SyncLatest and Backfill fail.
type Orchestrator struct {
	Sources    []source.Source
	Store      Store
	Feed       Feed
	Validators ValidatorStore
}

// ErrNoFeed is returned by feed-only operations when no feed is configured.
var ErrNoFeed = errors.New("poller: feed not configured")

func runLogger(runID string) zerolog.Logger {
	return log.With().Str("run_id", runID).Logger()
}

// RunOnce polls for the draw held on day. It does nothing when a finalized
// record for day exists. Otherwise the first source that returns a final
// or live result dated day wins. An upcoming placeholder dated day is kept
// only when no source had more. Source failures are reported in the
// outcome; the returned error is set only when the store fails or ctx ends.
func (o *Orchestrator) RunOnce(ctx context.Context, day time.Time) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString(), Day: day.Format(lottery.FeedLayout)}
	logger := runLogger(out.RunID).With().Str("day", out.Day).Logger()

	existing, err := o.Store.FindFinalized(ctx, day)
	if err != nil {
		return out, fmt.Errorf("find finalized %s: %w", out.Day, err)
	}
	if existing != nil {
		out.Status, out.Source, out.Result = AlreadyStored, existing.Source, existing
		logger.Debug().Str("code", existing.Code).Msg("draw already stored")
		return out, nil
	}

	var placeholder *lottery.Result
	for _, src := range o.Sources {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		l := logger.With().Str("source", src.Name()).Logger()
		res, err := source.Run(ctx, src, day)
		if err != nil {
			out.fail(src.Name(), err)
			logFailure(l, err)
			continue
		}
		switch {
		case !res.Resolved():
			l.Info().Str("draw_date", res.DrawDate).Msg("draw date not recognised")
			continue
		case !res.DrawnOn(day):
			l.Info().Str("draw_date", res.DrawDate).Msg("source still shows another draw")
			continue
		case res.Code == lottery.Unknown:
			out.fail(src.Name(), noCode(src.Name(), res))
			l.Warn().Str("draw_date", res.DrawDate).Msg("draw code not recognised")
			continue
		case res.IsUpcoming:
			if placeholder == nil {
				placeholder = res
			}
			continue
		}
		if err := o.Store.Upsert(ctx, res); err != nil {
			return out, fmt.Errorf("save %s: %w", res.Code, err)
		}
		out.Status, out.Source, out.Result = Saved, src.Name(), res
		l.Info().Str("code", res.Code).Bool("live", res.IsLive).Int("tiers", len(res.Prizes)).Msg("draw saved")
		return out, nil
	}

	if placeholder != nil {
		if err := o.Store.Upsert(ctx, placeholder); err != nil {
			return out, fmt.Errorf("save placeholder %s: %w", placeholder.Code, err)
		}
		out.Status, out.Source, out.Result = Placeholder, placeholder.Source, placeholder
		logger.Info().Str("source", placeholder.Source).Str("code", placeholder.Code).Msg("placeholder saved")
		return out, nil
	}
	out.Status = NotReady
	logger.Info().Int("failures", len(out.Failures)).Msg("draw not ready")
	return out, nil
}

// ScrapeNow saves the first resolved result any source returns, whatever
// its date. It backs the manual trigger.
func (o *Orchestrator) ScrapeNow(ctx context.Context, now time.Time) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}
	logger := runLogger(out.RunID)
	for _, src := range o.Sources {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		l := logger.With().Str("source", src.Name()).Logger()
		res, err := source.Run(ctx, src, now)
		if err != nil {
			out.fail(src.Name(), err)
			logFailure(l, err)
			continue
		}
		if !res.Resolved() {
			l.Info().Str("draw_date", res.DrawDate).Msg("draw date not recognised")
			continue
		}
		if res.Code == lottery.Unknown {
			out.fail(src.Name(), noCode(src.Name(), res))
			l.Warn().Str("draw_date", res.DrawDate).Msg("draw code not recognised")
			continue
		}
		if err := o.Store.Upsert(ctx, res); err != nil {
			return out, fmt.Errorf("save %s: %w", res.Code, err)
		}
		out.Status, out.Source, out.Result = Saved, src.Name(), res
		out.Day = res.ISODate.Format(lottery.FeedLayout)
		if res.IsUpcoming {
			out.Status = Placeholder
		}
		l.Info().Str("code", res.Code).Str("day", out.Day).Msg("manual scrape saved")
		return out, nil
	}
	out.Status = NotReady
	return out, nil
}

// SyncLatest asks the feed's latest endpoint with the stored validator.
// An unchanged answer writes nothing. A new answer is saved and its
// validator stored for the next call.
func (o *Orchestrator) SyncLatest(ctx context.Context) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}
	if o.Feed == nil {
		return out, ErrNoFeed
	}
	logger := runLogger(out.RunID).With().Str("source", feed.Name).Logger()
	u := o.Feed.LatestURL()
	v := cache.Validator{URL: u}
	if o.Validators != nil {
		loaded, err := o.Validators.Load(ctx, u)
		if err != nil {
			logger.Warn().Err(err).Msg("validator load failed")
		} else {
			v = loaded
		}
	}

	latest, err := o.Feed.Latest(ctx, v)
	if err != nil {
		out.fail(feed.Name, err)
		if lottery.RetryLater(err) {
			out.Status = NotReady
			return out, nil
		}
		return out, fmt.Errorf("sync latest: %w", err)
	}
	if latest.Status == feed.Unchanged {
		out.Status = Unchanged
		logger.Debug().Msg("latest unchanged")
		return out, nil
	}

	res := latest.Result
	if err := o.Store.Upsert(ctx, res); err != nil {
		return out, fmt.Errorf("save %s: %w", res.Code, err)
	}
	out.Status, out.Source, out.Result = Saved, feed.Name, res
	if res.ISODate != nil {
		out.Day = res.ISODate.Format(lottery.FeedLayout)
	}
	if o.Validators != nil && !latest.Validator.Empty() {
		if err := o.Validators.Save(ctx, latest.Validator); err != nil {
			logger.Warn().Err(err).Msg("validator save failed")
		}
	}
	logger.Info().Str("code", res.Code).Msg("latest synced")
	return out, nil
}

// Backfill imports one page of the feed's history.
func (o *Orchestrator) Backfill(ctx context.Context, limit, offset int) (BackfillReport, error) {
	rep := BackfillReport{RunID: uuid.NewString()}
	if o.Feed == nil {
		return rep, ErrNoFeed
	}
	logger := runLogger(rep.RunID)
	page, err := o.Feed.History(ctx, limit, offset)
	if err != nil {
		return rep, fmt.Errorf("history: %w", err)
	}
	rep.Total, rep.Fetched = page.Total, len(page.Items)
	for i := range page.Items {
		res := lottery.Normalize(page.Items[i])
		if res.Code == lottery.Unknown {
			rep.Skipped++
			continue
		}
		if err := o.Store.Upsert(ctx, &res); err != nil {
			return rep, fmt.Errorf("save %s: %w", res.Code, err)
		}
		rep.Saved++
	}
	logger.Info().Int("limit", limit).Int("offset", offset).Int("saved", rep.Saved).Int("skipped", rep.Skipped).Msg("backfill done")
	return rep, nil
}

func logFailure(l zerolog.Logger, err error) {
	switch {
	case lottery.RetryLater(err):
		l.Info().Err(err).Msg("source has no result yet")
	case errors.Is(err, lottery.ErrExhaustedRetries):
		l.Error().Err(err).Msg("source unreachable")
	default:
		l.Warn().Err(err).Msg("source failed")
	}
}
