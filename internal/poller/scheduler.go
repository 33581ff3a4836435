package poller

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Default schedules. Draws are announced between 15:00 and 19:00 IST.
const (
	DefaultLocation       = "Asia/Kolkata"
	DefaultDrawSchedule   = "*/5 15-18 * * *"
	DefaultLatestSchedule = "@every 30m"
)

// Scheduler runs the draw poll and the latest sync on cron schedules.
// A run still in progress makes the next tick of the same job skip.
type Scheduler struct {
	Orchestrator *Orchestrator
	Location     *time.Location
	// DrawSpec triggers RunOnce for the current day. Empty disables it.
	DrawSpec string
	// LatestSpec triggers SyncLatest. Empty disables it.
	LatestSpec string
	// RunTimeout bounds each job. Zero means 10 minutes.
	RunTimeout time.Duration

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler returns a scheduler with the default schedules in loc.
func NewScheduler(o *Orchestrator, loc *time.Location) *Scheduler {
	return &Scheduler{
		Orchestrator: o,
		Location:     loc,
		DrawSpec:     DefaultDrawSchedule,
		LatestSpec:   DefaultLatestSchedule,
	}
}

// LoadLocation resolves name, falling back to DefaultLocation when empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

// Start registers the jobs and starts the cron loop. Jobs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(&log.Logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.DrawSpec != "" {
		if _, err := c.AddFunc(s.DrawSpec, func() { s.pollDraw(loc) }); err != nil {
			s.cancel()
			return fmt.Errorf("draw schedule %q: %w", s.DrawSpec, err)
		}
	}
	if s.LatestSpec != "" {
		if _, err := c.AddFunc(s.LatestSpec, s.syncLatest); err != nil {
			s.cancel()
			return fmt.Errorf("latest schedule %q: %w", s.LatestSpec, err)
		}
	}
	s.cron = c
	c.Start()
	log.Info().Str("location", loc.String()).Str("draw", s.DrawSpec).Str("latest", s.LatestSpec).Msg("scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	d := s.RunTimeout
	if d <= 0 {
		d = 10 * time.Minute
	}
	return context.WithTimeout(s.ctx, d)
}

func (s *Scheduler) pollDraw(loc *time.Location) {
	ctx, cancel := s.jobContext()
	defer cancel()
	out, err := s.Orchestrator.RunOnce(ctx, time.Now().In(loc))
	if err != nil {
		log.Error().Str("run_id", out.RunID).Err(err).Msg("draw poll failed")
	}
}

func (s *Scheduler) syncLatest() {
	ctx, cancel := s.jobContext()
	defer cancel()
	out, err := s.Orchestrator.SyncLatest(ctx)
	if err != nil {
		log.Error().Str("run_id", out.RunID).Err(err).Msg("latest sync failed")
	}
}
