package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/hyperifyio/lotteryresults/internal/cache"
	"github.com/hyperifyio/lotteryresults/internal/fetch"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

const samrudhi = `{"draw_date":"2026-02-15","draw_name":"Samrudhi","draw_code":"SM-42","prizes":{"amounts":{"1st":"₹1,00,00,000/-"},"first":{"ticket":"SM 123456"}}}`

func TestMap_NestedFirstPrize(t *testing.T) {
	res, err := Map([]byte(samrudhi))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DrawDate != "15/02/2026" || res.ISODate.Format(lottery.FeedLayout) != "2026-02-15" {
		t.Fatalf("unexpected date %q %v", res.DrawDate, res.ISODate)
	}
	if res.Name != "Samrudhi" || res.Code != "SM-42" {
		t.Fatalf("unexpected metadata %+v", res)
	}
	want := lottery.Prizes{"1st Prize Rs 1,00,00,000": {"SM 123456"}}
	if !reflect.DeepEqual(res.Prizes, want) {
		t.Fatalf("got %v, want %v", res.Prizes, want)
	}
}

func TestMap_FullItem(t *testing.T) {
	body := `{
	  "draw_date": "2026-01-23",
	  "draw_name": "Suvarna Keralam",
	  "draw_code": "SK-37",
	  "first": {"ticket": "RH 700044", "location": "Kollam"},
	  "prizes": {
	    "amounts": {"1st": "₹10,000,000/-", "2nd": 3000000, "3rd": "₹ 5,00,000/-", "4th": "5,000"},
	    "consolation": ["RA 700044", "RB 700044"],
	    "2nd": ["RK 123456"],
	    "3rd": ["RA 111111", "RB 222222"],
	    "4th": ["1671", "2881"],
	    "5th": ["4512"],
	    "6th": [],
	    "7th": {"unexpected": true}
	  }
	}`
	res, err := Map([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := lottery.Prizes{
		"1st Prize Rs 10000000": {"RH 700044"},
		"Consolation Prize":     {"RA 700044", "RB 700044"},
		"2nd Prize Rs 3000000":  {"RK 123456"},
		"3rd Prize Rs 5,00,000": {"RA 111111", "RB 222222"},
		"4th Prize Rs 5000":     {"1671", "2881"},
		"5th Prize Rs Unknown":  {"4512"},
	}
	if !reflect.DeepEqual(res.Prizes, want) {
		t.Fatalf("prizes mismatch:\n got %v\nwant %v", res.Prizes, want)
	}
}

func TestMap_FlatFirstTicket(t *testing.T) {
	res, err := Map([]byte(`{"draw_date":"2026-02-14","draw_code":"KR-700","first_ticket":"KA 654321"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Prizes["1st Prize Rs Unknown"]; !reflect.DeepEqual(got, []string{"KA 654321"}) {
		t.Fatalf("flat first ticket not mapped: %v", res.Prizes)
	}
	if res.Name != lottery.Unknown {
		t.Fatalf("missing name should be Unknown, got %q", res.Name)
	}
}

func TestMap_ErrorPayload(t *testing.T) {
	res, err := Map([]byte(`{"code":"rest_no_route","message":"not found"}`))
	if res != nil {
		t.Fatalf("expected no result for error payload, got %+v", res)
	}
	if !errors.Is(err, ErrErrorPayload) {
		t.Fatalf("expected ErrErrorPayload, got %v", err)
	}
}

func TestMap_BadDate(t *testing.T) {
	for _, body := range []string{`{"draw_code":"X-1"}`, `{"draw_date":"15/02/2026"}`, `not json`} {
		if res, err := Map([]byte(body)); res != nil || err == nil {
			t.Fatalf("expected failure for %s, got %+v %v", body, res, err)
		}
	}
}

func newTestAdapter(srv *httptest.Server) *Adapter {
	return &Adapter{
		BaseURL: srv.URL + "/wp-json/klr/v1/",
		HTTP:    NewClient(nil, "lottery-test"),
		Now:     func() time.Time { return time.Date(2026, 2, 15, 16, 0, 0, 0, time.UTC) },
	}
}

func TestLatest_ConditionalRequests(t *testing.T) {
	const etag = `"latest-1"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/klr/v1/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing Accept header")
		}
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte(samrudhi))
	}))
	defer srv.Close()

	a := newTestAdapter(srv)
	first, err := a.Latest(context.Background(), cache.Validator{})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if first.Status != Updated || first.Result == nil || first.Result.Code != "SM-42" {
		t.Fatalf("unexpected first answer %+v", first)
	}
	if first.Validator.ETag != etag || first.Validator.URL != a.LatestURL() {
		t.Fatalf("unexpected validator %+v", first.Validator)
	}
	if first.Result.ScrapedAt.IsZero() {
		t.Fatalf("expected scrape time")
	}

	second, err := a.Latest(context.Background(), first.Validator)
	if err != nil {
		t.Fatalf("latest again: %v", err)
	}
	if second.Status != Unchanged || second.Result != nil || second.Validator.ETag != etag {
		t.Fatalf("expected unchanged, got %+v", second)
	}
}

func TestByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("date") {
		case "2026-02-15":
			_, _ = w.Write([]byte(samrudhi))
		case "2026-02-16":
			_, _ = w.Write([]byte(`{"code":"no_draw","message":"No draw found"}`))
		case "2026-02-17":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"rest_no_route","message":"not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	a := newTestAdapter(srv)
	ctx := context.Background()

	res, err := a.Fetch(ctx, time.Date(2026, 2, 15, 15, 30, 0, 0, time.UTC))
	if err != nil || res.Code != "SM-42" {
		t.Fatalf("by-date: %+v %v", res, err)
	}
	for _, day := range []int{16, 17} {
		_, err := a.ByDate(ctx, time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, lottery.ErrNotFound) {
			t.Fatalf("day %d: expected not found, got %v", day, err)
		}
	}
	_, err = a.ByDate(ctx, time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, lottery.ErrTransport) || !fetch.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestHistory_DropsUnmappableItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" || r.URL.Query().Get("offset") != "6" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 120, "items": [
		  {"draw_date":"2026-02-14","draw_name":"Karunya","draw_code":"KR-700","first_ticket":"KA 654321","prizes":{"amounts":{"1st":"₹1,00,00,000/-"}}},
		  {"draw_date":"bogus","draw_code":"X-1"},
		  {"code":"oops","message":"broken item"},
		  false,
		  "KR-699",
		  null
		]}`))
	}))
	defer srv.Close()

	page, err := newTestAdapter(srv).History(context.Background(), 3, 6)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Total != 120 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	got := page.Items[0]
	if got.Code != "KR-700" || !reflect.DeepEqual(got.Prizes["1st Prize Rs 1,00,00,000"], []string{"KA 654321"}) {
		t.Fatalf("unexpected item %+v", got)
	}
}

func TestHistory_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>cloudflare</html>`))
	}))
	defer srv.Close()
	if _, err := newTestAdapter(srv).History(context.Background(), 10, 0); !errors.Is(err, lottery.ErrMalformedSource) {
		t.Fatalf("expected malformed source, got %v", err)
	}
}
