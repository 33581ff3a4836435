package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

func TestRun_RecoversPanic(t *testing.T) {
	s := Func{ID: "boom", Fn: func(context.Context, time.Time) (*lottery.Result, error) {
		var m map[string]int
		m["x"] = 1
		return nil, nil
	}}
	res, err := Run(context.Background(), s, time.Now())
	if res != nil {
		t.Fatalf("expected nil result")
	}
	if !errors.Is(err, lottery.ErrMalformedSource) {
		t.Fatalf("expected malformed source, got %v", err)
	}
	var f *lottery.Failure
	if !errors.As(err, &f) || f.Source != "boom" {
		t.Fatalf("expected failure tagged with source, got %v", err)
	}
}

func TestRun_NormalizesAndTags(t *testing.T) {
	s := Func{ID: "feed", Fn: func(context.Context, time.Time) (*lottery.Result, error) {
		r := lottery.Result{Name: " KARUNYA  ", Prizes: lottery.Prizes{"2nd Prize Rs 3000000": {" KA 111111 "}}}
		return &r, nil
	}}
	res, err := Run(context.Background(), s, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Name != "KARUNYA" || res.Code != lottery.Unknown || res.Source != "feed" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := res.Prizes["2nd Prize Rs 3000000"]; len(got) != 1 || got[0] != "KA 111111" {
		t.Fatalf("tickets not trimmed: %v", got)
	}
}

func TestRun_NilResultIsNotFound(t *testing.T) {
	s := Func{ID: "empty", Fn: func(context.Context, time.Time) (*lottery.Result, error) { return nil, nil }}
	if _, err := Run(context.Background(), s, time.Now()); !lottery.RetryLater(err) {
		t.Fatalf("expected retry-later error, got %v", err)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("₹₹₹₹", 2); got != "₹₹..." {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if got := Excerpt("short", 10); got != "short" {
		t.Fatalf("unexpected excerpt %q", got)
	}
}
