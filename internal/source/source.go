// Package source defines the contract every result adapter implements.
package source

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

// Source produces the result for a draw day from one upstream.
type Source interface {
	Name() string
	Fetch(ctx context.Context, day time.Time) (*lottery.Result, error)
}

// Func adapts a function to Source.
type Func struct {
	ID string
	Fn func(ctx context.Context, day time.Time) (*lottery.Result, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Fetch(ctx context.Context, day time.Time) (*lottery.Result, error) {
	return f.Fn(ctx, day)
}

// Run calls s.Fetch and turns a panic into a MalformedSource failure.
// Successful results are normalized and tagged with the source name.
func Run(ctx context.Context, s Source, day time.Time) (res *lottery.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("source", s.Name()).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("adapter panicked")
			res = nil
			err = lottery.Fail(s.Name(), lottery.ErrMalformedSource, nil, "adapter panic: %v", r)
		}
	}()
	res, err = s.Fetch(ctx, day)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, lottery.Fail(s.Name(), lottery.ErrNotFound, nil, "no result")
	}
	out := lottery.Normalize(*res)
	if out.Source == "" {
		out.Source = s.Name()
	}
	return &out, nil
}

// Excerpt shortens text for log lines.
func Excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
