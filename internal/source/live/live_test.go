package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/hyperifyio/lotteryresults/internal/fetch"
	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

var testNow = time.Date(2026, 2, 15, 15, 10, 0, 0, time.FixedZone("IST", 5*3600+1800))

const declaredPage = "Kerala Lottery Suvarna Keralam SK-37 Results Declared 23 January 2026 " +
	"1st Prize - ₹1 Crore RH 700044 (Kollam) " +
	"Consolation Prize - ₹5,000 RA 700044 RB 700044 " +
	"2nd Prize - ₹30 Lakh RK 123456 (Kottayam) " +
	"3rd Prize - ₹5 Lakh RA 111111 " +
	"4th Prize - ₹5,000 1671 2881 " +
	"5th Prize - ₹2000 2000 0456 7788 " +
	"9th Prize - Rs 100 1234 5678 " +
	"Read More Kerala Lottery Karunya KR-700 Results 4455"

func TestParse_Declared(t *testing.T) {
	res := Parse(declaredPage, testNow)
	if !res.IsLive || res.IsUpcoming {
		t.Fatalf("expected live result, got %+v", res)
	}
	if res.Name != "Suvarna Keralam" || res.Code != "SK-37" {
		t.Fatalf("unexpected header %q %q", res.Name, res.Code)
	}
	if res.DrawDate != "23/01/2026" || res.ISODate == nil {
		t.Fatalf("unexpected date %q %v", res.DrawDate, res.ISODate)
	}
	want := lottery.Prizes{
		"1st Prize Rs 1 Crore": {"RH 700044"},
		"Consolation Prize":    {"RA 700044", "RB 700044"},
		"2nd Prize Rs 30 Lakh": {"RK 123456"},
		"3rd Prize Rs 5 Lakh":  {"RA 111111"},
		"4th Prize Rs 5000":    {"1671", "2881"},
		"5th Prize Rs 2000":    {"2000", "0456", "7788"},
		"9th Prize Rs 100":     {"1234", "5678"},
	}
	if !reflect.DeepEqual(res.Prizes, want) {
		t.Fatalf("prizes mismatch:\n got %v\nwant %v", res.Prizes, want)
	}
}

func TestParse_GroupedAmountKeepsMatchingTicket(t *testing.T) {
	res := Parse("Kerala Lottery Karunya KR-700 Results Declared 14 February 2026 "+
		"4th Prize - ₹5,000 5000 1234 5678 "+
		"6th Prize - ₹1000 1000 4321", testNow)
	if got := res.Prizes["4th Prize Rs 5000"]; !reflect.DeepEqual(got, []string{"5000", "1234", "5678"}) {
		t.Fatalf("grouped amount dropped a real ticket: %v", got)
	}
	if got := res.Prizes["6th Prize Rs 1000"]; !reflect.DeepEqual(got, []string{"1000", "4321"}) {
		t.Fatalf("bare amount not dropped: %v", got)
	}
}

func TestParse_Upcoming(t *testing.T) {
	text := "Kerala Lottery Result Today Sunday, 15 February 2026 Samrudhi Draw Number SM-42 Winning Price ₹ 1 Crore Result Out In 02 : 10 : 05 " +
		"1st Prize - ₹1 Crore SM 123456"
	res := Parse(text, testNow)
	if !res.IsUpcoming || res.IsLive {
		t.Fatalf("expected upcoming placeholder, got %+v", res)
	}
	if res.Name != "Samrudhi" || res.Code != "SM-42" {
		t.Fatalf("unexpected metadata %q %q", res.Name, res.Code)
	}
	if len(res.Prizes) != 1 || !reflect.DeepEqual(res.Prizes["1st Prize Rs 1 Crore"], []string{lottery.Waiting}) {
		t.Fatalf("expected a single WAITING tier, got %v", res.Prizes)
	}
	if res.DrawDate != "15/02/2026" {
		t.Fatalf("unexpected date %q", res.DrawDate)
	}
}

func TestParse_UpcomingShortMonthAndPrizeSpelling(t *testing.T) {
	res := Parse("monday, 16 Feb 2026 Bhagyathara draw number BT-41 winning prize ₹1 Crore result out in", testNow)
	if !res.IsUpcoming || res.Code != "BT-41" || res.DrawDate != "16/02/2026" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestParse_UpcomingUnparsableDateFallsBackToNow(t *testing.T) {
	res := Parse("Someday, 45 Smarch 2026 Samrudhi Draw Number SM-42 Winning Prize ₹1 Crore Result Out In", testNow)
	if !res.IsUpcoming {
		t.Fatalf("expected upcoming placeholder")
	}
	if res.DrawDate != "15/02/2026" || res.ISODate.Format(lottery.DisplayLayout) != res.DrawDate {
		t.Fatalf("expected both dates from now, got %q %v", res.DrawDate, res.ISODate)
	}
}

func TestParse_ProseFirstPrizeAndDrawNumberHeader(t *testing.T) {
	res := Parse("Karunya Draw Number KR-700 held on 14 Feb 2026. The 1st Prize of ₹1 Crore goes to ticket KC 889462 sold at Kottayam", testNow)
	if res.Name != "Karunya" || res.Code != "KR-700" || res.DrawDate != "14/02/2026" {
		t.Fatalf("unexpected metadata %+v", res)
	}
	if got := res.Prizes["1st Prize Rs 1 Crore"]; !reflect.DeepEqual(got, []string{"KC 889462"}) {
		t.Fatalf("prose first prize not found: %v", res.Prizes)
	}
}

func TestParse_UnmatchedTiersAbsent(t *testing.T) {
	res := Parse("Kerala Lottery news for 32 Jan 2026 with no results yet", testNow)
	if !res.IsLive || len(res.Prizes) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Code != lottery.Unknown || res.Name != lottery.Unknown {
		t.Fatalf("expected Unknown metadata, got %+v", res)
	}
	if res.DrawDate != "32 Jan 2026" || res.ISODate != nil {
		t.Fatalf("expected raw date fallback, got %q %v", res.DrawDate, res.ISODate)
	}
}

func TestPatterns(t *testing.T) {
	if m := declaredHeader.FindStringSubmatch("Kerala Lottery Win Win WW-812 Results Declared"); m == nil || m[1] != "Win Win" || m[2] != "WW-812" {
		t.Fatalf("declared header: %v", m)
	}
	if m := secondPrize.FindStringSubmatch("2nd Prize - Rs. 30,00,000 KB 765432"); m == nil || m[1] != "30,00,000" || m[2] != "KB 765432" {
		t.Fatalf("second prize: %v", m)
	}
	if m := thirdPrize.FindStringSubmatch("3rd Prize - ₹5 Lakh KB765432"); m != nil {
		t.Fatalf("third prize needs a spaced ticket: %v", m)
	}
	if m := firstPrize.FindStringSubmatch("1st Prize - ₹ 1,00,00,000 KB765432"); m == nil || m[2] != "KB765432" {
		t.Fatalf("first prize allows an unspaced ticket: %v", m)
	}
	if loc := consolationEnd.FindStringIndex(" RA 111111 there RB 222222 The prize"); loc == nil || loc[0] != 27 {
		t.Fatalf("consolation slice must end at the capitalised word The: %v", loc)
	}
	if len(lowTiers) != 6 || lowTiers[0].rank != 4 || lowTiers[5].rank != 9 {
		t.Fatalf("unexpected low tiers %+v", lowTiers)
	}
	if lowTiers[0].marker.MatchString("14th Prize") {
		t.Fatalf("4th marker must not match inside 14th")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != fetch.BrowserUserAgent {
			t.Errorf("expected browser user agent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><script>var x = "1st Prize - ₹9 Crore ZZ 999999";</script>
		  <h1>Kerala Lottery Suvarna Keralam SK-37 Results Declared</h1>
		  <p>23&nbsp;January&nbsp;2026</p>
		  <table><tr><td>1st Prize - ₹1 Crore</td><td>RH 700044</td></tr></table>
		</body></html>`))
	}))
	defer srv.Close()

	a := &Adapter{URL: srv.URL, HTTP: NewClient(nil, ""), Now: func() time.Time { return testNow }}
	res, err := a.Fetch(context.Background(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != "SK-37" || res.DrawDate != "23/01/2026" {
		t.Fatalf("unexpected metadata %+v", res)
	}
	if got := res.Prizes["1st Prize Rs 1 Crore"]; !reflect.DeepEqual(got, []string{"RH 700044"}) {
		t.Fatalf("unexpected prizes %v", res.Prizes)
	}
	if !res.ScrapedAt.Equal(testNow) {
		t.Fatalf("expected scrape time from clock, got %v", res.ScrapedAt)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := &Adapter{URL: srv.URL, HTTP: NewClient(nil, "")}
	if _, err := a.Fetch(context.Background(), testNow); !errors.Is(err, lottery.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}
