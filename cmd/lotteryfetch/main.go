package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/app"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/render"
	"github.com/hyperifyio/lotteryresults/internal/source"
	"github.com/hyperifyio/lotteryresults/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("lotteryfetch failed")
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when every source only said "not yet", so a wrapper script
// can retry later, and 1 for anything else.
func exitCode(err error) int {
	if retryLater(err) {
		return 2
	}
	return 1
}

func retryLater(err error) bool {
	if f, ok := err.(*lottery.Failure); ok {
		return lottery.RetryLater(f)
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) == 0 {
			return false
		}
		for _, e := range errs {
			if !retryLater(e) {
				return false
			}
		}
		return true
	}
	if inner := errors.Unwrap(err); inner != nil {
		return retryLater(inner)
	}
	return err != nil && lottery.RetryLater(err)
}

type options struct {
	source string
	day    string
	format string
	out    string
	save   bool
	sync   bool
	list   bool
	name   string

	backfill int
	offset   int
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var o options
	fs := flag.NewFlagSet("lotteryfetch", flag.ContinueOnError)
	cfg, _, err := app.Load(fs, args, func(fs *flag.FlagSet) {
		fs.StringVar(&o.source, "source", "", "Ask only this source (default: configured order, first result wins)")
		fs.StringVar(&o.day, "day", "", "Draw day as YYYY-MM-DD (default: today in -tz)")
		fs.StringVar(&o.format, "format", "table", "Output format: table, json or pdf")
		fs.StringVar(&o.out, "o", "", "Write output to this file instead of stdout")
		fs.BoolVar(&o.save, "save", false, "Poll like the scheduler does and store the result")
		fs.BoolVar(&o.sync, "sync", false, "Sync the feed's latest draw into the store")
		fs.BoolVar(&o.list, "list", false, "List stored results")
		fs.StringVar(&o.name, "name", "", "With -list, only this series")
		fs.IntVar(&o.backfill, "backfill", 0, "Import this many draws from the feed history")
		fs.IntVar(&o.offset, "offset", 0, "With -backfill, skip this many draws")
	})
	if err != nil {
		return err
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if o.format == "pdf" && o.out == "" {
		return errors.New("-format pdf needs -o")
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	day := a.Today()
	if o.day != "" {
		d, err := lottery.ParseFeedDate(o.day)
		if err != nil {
			return fmt.Errorf("-day: %w", err)
		}
		day = time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, day.Location())
	}

	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	orch := a.Orchestrator()
	switch {
	case o.list:
		results, err := a.Store().List(ctx, store.ListQuery{Name: o.name})
		if err != nil {
			return err
		}
		if o.format == "json" {
			return writeJSON(w, results)
		}
		return render.Summary(w, results)
	case o.backfill > 0:
		rep, err := orch.Backfill(ctx, o.backfill, o.offset)
		if err != nil {
			return err
		}
		return writeJSON(w, rep)
	case o.sync:
		out, err := orch.SyncLatest(ctx)
		if err != nil {
			return err
		}
		if out.Result == nil {
			return writeJSON(w, out)
		}
		return emit(w, o.format, *out.Result)
	case o.save:
		out, err := orch.RunOnce(ctx, day)
		if err != nil {
			return err
		}
		if out.Result == nil {
			return writeJSON(w, out)
		}
		return emit(w, o.format, *out.Result)
	}

	res, err := fetchOne(ctx, a, o.source, day)
	if err != nil {
		return err
	}
	return emit(w, o.format, *res)
}

// fetchOne asks one named source, or every configured source in order
// until one returns a result with a recognised date.
func fetchOne(ctx context.Context, a *app.App, name string, day time.Time) (*lottery.Result, error) {
	if name != "" {
		s, ok := a.Source(name)
		if !ok {
			return nil, fmt.Errorf("source %q is not configured", name)
		}
		return source.Run(ctx, s, day)
	}
	var errs []error
	for _, s := range a.Orchestrator().Sources {
		res, err := source.Run(ctx, s, day)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Resolved() {
			return res, nil
		}
	}
	if len(errs) == 0 {
		return nil, lottery.Fail("lotteryfetch", lottery.ErrNotFound, nil, "no source returned a dated result")
	}
	return nil, errors.Join(errs...)
}

func emit(w io.Writer, format string, r lottery.Result) error {
	switch format {
	case "json":
		return writeJSON(w, r)
	case "pdf":
		return render.PDF(w, r)
	case "table", "":
		return render.Table(w, r)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
