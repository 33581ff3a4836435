package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/api"
	"github.com/hyperifyio/lotteryresults/internal/cache"
	"github.com/hyperifyio/lotteryresults/internal/extract"
	"github.com/hyperifyio/lotteryresults/internal/poller"
	"github.com/hyperifyio/lotteryresults/internal/source"
	"github.com/hyperifyio/lotteryresults/internal/source/bulletin"
	"github.com/hyperifyio/lotteryresults/internal/source/feed"
	"github.com/hyperifyio/lotteryresults/internal/source/live"
	"github.com/hyperifyio/lotteryresults/internal/store"
)

// App wires the sources, the store, the poller and the API from a Config.
type App struct {
	cfg     Config
	loc     *time.Location
	store   *store.Store
	feed    *feed.Adapter
	sources []source.Source
	orch    *poller.Orchestrator
}

func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	loc, err := poller.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("stale validators purged")
			}
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	hc := newHTTPClient()
	a := &App{
		cfg:   cfg,
		loc:   loc,
		store: st,
		feed:  &feed.Adapter{BaseURL: cfg.FeedBaseURL, HTTP: feed.NewClient(hc, cfg.UserAgent), Now: time.Now},
	}
	for _, name := range cfg.Sources {
		switch name {
		case bulletin.Name:
			a.sources = append(a.sources, &bulletin.Adapter{
				IndexURL: cfg.BulletinIndexURL,
				LinkBase: cfg.BulletinLinkBase,
				HTTP:     bulletin.NewClient(hc, cfg.UserAgent),
				Pages:    extract.PDFText,
				Now:      time.Now,
			})
		case feed.Name:
			a.sources = append(a.sources, a.feed)
		case live.Name:
			a.sources = append(a.sources, &live.Adapter{URL: cfg.LiveURL, HTTP: live.NewClient(hc, cfg.UserAgent), Now: time.Now})
		}
	}

	var validators *cache.Validators
	if cfg.CacheDir != "" {
		validators = &cache.Validators{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	a.orch = &poller.Orchestrator{Sources: a.sources, Store: st, Feed: a.feed}
	if validators != nil {
		a.orch.Validators = validators
	}
	log.Debug().Strs("sources", cfg.Sources).Str("db", cfg.DBPath).Str("tz", loc.String()).Msg("app ready")
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) Store() *store.Store                { return a.store }
func (a *App) Orchestrator() *poller.Orchestrator { return a.orch }

// Today returns the current time in the configured timezone.
func (a *App) Today() time.Time { return time.Now().In(a.loc) }

// Source returns the configured adapter with the given name.
func (a *App) Source(name string) (source.Source, bool) {
	for _, s := range a.sources {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	if !a.cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(&api.Handler{
		Results: a.store,
		Trigger: a.orch,
		History: a.feed,
		Now:     a.Today,
	})
}

// Serve runs the API and, unless disabled, the scheduler until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	if !a.cfg.DisableSchedule {
		sched := poller.NewScheduler(a.orch, a.loc)
		sched.DrawSpec, sched.LatestSpec = a.cfg.DrawSchedule, a.cfg.LatestSchedule
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", srv.Addr).Msg("api listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info().Msg("api stopped")
		return nil
	}
}
