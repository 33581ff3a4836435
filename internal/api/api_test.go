package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
	"github.com/hyperifyio/lotteryresults/internal/poller"
	"github.com/hyperifyio/lotteryresults/internal/source/feed"
	"github.com/hyperifyio/lotteryresults/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seeded(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	for i, name := range []string{"KARUNYA", "Suvarna Keralam"} {
		r := lottery.New("bulletin", time.Now())
		r.Name, r.Code = name, []string{"KR-701", "SK-37"}[i]
		r.SetDrawDate(time.Date(2026, 1, 23+i, 0, 0, 0, 0, time.UTC))
		r.Prizes.Set("1st Prize Rs :10000000/-", []string{"RH 700044"})
		if err := st.Upsert(context.Background(), r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return st
}

type fakeTrigger struct {
	out poller.Outcome
	rep poller.BackfillReport
	err error

	limit, offset int
}

func (f *fakeTrigger) ScrapeNow(context.Context, time.Time) (poller.Outcome, error) {
	return f.out, f.err
}

func (f *fakeTrigger) Backfill(_ context.Context, limit, offset int) (poller.BackfillReport, error) {
	f.limit, f.offset = limit, offset
	return f.rep, f.err
}

type fakeHistory struct {
	page feed.Page
	err  error
}

func (f fakeHistory) History(context.Context, int, int) (feed.Page, error) { return f.page, f.err }

func do(t *testing.T, r http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestResults_ListAndFilter(t *testing.T) {
	r := NewRouter(&Handler{Results: seeded(t)})

	w := do(t, r, http.MethodGet, "/api/results")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var all []lottery.Result
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 || all[0].Code != "SK-37" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	w = do(t, r, http.MethodGet, "/api/results?name=suvarna%20keralam")
	var one []lottery.Result
	if err := json.Unmarshal(w.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(one) != 1 || one[0].Name != "Suvarna Keralam" {
		t.Fatalf("case-insensitive filter failed: %+v", one)
	}

	w = do(t, r, http.MethodGet, "/api/results?name=nobody")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty list should encode as [], got %s", w.Body.String())
	}
}

func TestResults_ByCode(t *testing.T) {
	r := NewRouter(&Handler{Results: seeded(t)})

	w := do(t, r, http.MethodGet, "/api/results/KR-701")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"RH 700044"`) {
		t.Fatalf("unexpected %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/results/XX-1")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"Result not found"}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestResults_PDF(t *testing.T) {
	r := NewRouter(&Handler{Results: seeded(t)})
	w := do(t, r, http.MethodGet, "/api/results/SK-37/pdf")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "SK-37.pdf") {
		t.Fatalf("missing filename")
	}
}

func TestLotteryTypes(t *testing.T) {
	r := NewRouter(&Handler{Results: seeded(t)})
	w := do(t, r, http.MethodGet, "/api/lottery-types")
	var names []string
	if err := json.Unmarshal(w.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 2 || names[0] != "KARUNYA" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestScrapeNow(t *testing.T) {
	res := lottery.New("feed", time.Now())
	res.Code = "KR-702"
	tr := &fakeTrigger{out: poller.Outcome{RunID: "run-1", Status: poller.Saved, Result: res}}
	r := NewRouter(&Handler{Results: seeded(t), Trigger: tr})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := do(t, r, method, "/api/scrape-now")
		var body struct {
			Message string         `json:"message"`
			Status  string         `json:"status"`
			Data    lottery.Result `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Message != "Success" || body.Status != "saved" || body.Data.Code != "KR-702" {
			t.Fatalf("%s: unexpected body %s", method, w.Body.String())
		}
	}

	tr.out = poller.Outcome{RunID: "run-2", Failures: map[string]string{"bulletin": "down"}}
	w := do(t, r, http.MethodGet, "/api/scrape-now")
	if !strings.Contains(w.Body.String(), "Failed to fetch") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	tr.err = errors.New("disk full")
	if w := do(t, r, http.MethodGet, "/api/scrape-now"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
}

func TestBackfill_Paging(t *testing.T) {
	tr := &fakeTrigger{rep: poller.BackfillReport{RunID: "run-3", Saved: 5}}
	r := NewRouter(&Handler{Results: seeded(t), Trigger: tr})

	w := do(t, r, http.MethodPost, "/api/backfill?limit=5&offset=10")
	if w.Code != http.StatusOK || tr.limit != 5 || tr.offset != 10 {
		t.Fatalf("status %d, limit %d offset %d", w.Code, tr.limit, tr.offset)
	}
	if w := do(t, r, http.MethodPost, "/api/backfill?limit=500"); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized limit accepted: %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/backfill?offset=-1"); w.Code != http.StatusBadRequest {
		t.Fatalf("negative offset accepted: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/backfill"); w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET backfill should not be routed: %d", w.Code)
	}

	tr.err = lottery.Fail("feed", lottery.ErrTransport, errors.New("503"), "history")
	if w := do(t, r, http.MethodPost, "/api/backfill"); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	tr.err = poller.ErrNoFeed
	if w := do(t, r, http.MethodPost, "/api/backfill"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestFeedHistory(t *testing.T) {
	item := lottery.New("feed", time.Now())
	item.Code = "KR-700"
	h := &Handler{Results: seeded(t), History: fakeHistory{page: feed.Page{Total: 9, Items: []lottery.Result{*item}}}}
	r := NewRouter(h)
	w := do(t, r, http.MethodGet, "/api/feed/history?limit=1")
	var page feed.Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 9 || len(page.Items) != 1 || page.Items[0].Code != "KR-700" {
		t.Fatalf("unexpected page %+v", page)
	}

	h.History = nil
	if w := do(t, r, http.MethodGet, "/api/feed/history"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHealth_Gzip(t *testing.T) {
	r := NewRouter(&Handler{Results: seeded(t)})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got %d %q", w.Code, w.Header().Get("Content-Encoding"))
	}
}
