package live

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

// Live page patterns, matched against flattened single-line text.
var (
	// upcomingBanner is the "next draw" headline:
	// "Sunday, 15 February 2026 Samrudhi Draw Number SM-42 Winning Price ₹ 1 Crore Result Out In".
	upcomingBanner = regexp.MustCompile(`(?i)(\w+,\s+\d{1,2}\s+\w+\s+\d{4})\s+(.*?)\s+Draw Number\s+([A-Z0-9-]+)\s+Winning Pri[cz]e\s+(.*?)\s+Result Out In`)

	declaredHeader = regexp.MustCompile(`(?i)Kerala Lottery ([A-Za-z\s]+) ([A-Z]{2,}-\d+) Results Declared`)
	drawNumber     = regexp.MustCompile(`(?i)([A-Za-z]+)\s+Draw Number\s+([A-Z]{2,}-\d+)`)
	monthDate      = regexp.MustCompile(`(?i)(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})`)

	firstPrize      = regexp.MustCompile(`(?i)1st Prize - (?:₹|Rs\.?)\s?([\d\s,]+(?:Crore|Lakh)?)\s+([A-Z]{2}\s?\d{6})`)
	firstPrizeProse = regexp.MustCompile(`(?i)1st Prize of.*?(?:₹|Rs\.?)\s?([\d\s,]+(?:Crore|Lakh)?).*?([A-Z]{2}\s?\d{6})`)
	secondPrize     = regexp.MustCompile(`(?i)2nd Prize - (?:₹|Rs\.?)\s?([\d\s,]+(?:Crore|Lakh)?)\s+([A-Z]{2}\s\d{6})`)
	thirdPrize      = regexp.MustCompile(`(?i)3rd Prize - (?:₹|Rs\.?)\s?([\d\s,]+(?:Crore|Lakh)?)\s+([A-Z]{2}\s\d{6})`)

	consolationMarker = regexp.MustCompile(`(?i)Consolation Prize`)
	consolationEnd    = regexp.MustCompile(`(?i:\d+(?:st|nd|rd|th)\s+Prize)|\bThe\b`)
	seriesTicket      = regexp.MustCompile(`\b[A-Z]{2}\s\d{6}\b`)

	sliceEnd    = regexp.MustCompile(`(?i)\d+(?:st|nd|rd|th)\s+Prize|Kerala Lottery|Read More`)
	shortTicket = regexp.MustCompile(`\b\d{4}\b`)
	bareAmount  = regexp.MustCompile(`^\d{4}$`)

	// lowTiers holds the marker and anchored amount pattern for tiers 4 to 9.
	lowTiers = buildLowTiers(4, 9)
)

type lowTier struct {
	rank   int
	marker *regexp.Regexp
	amount *regexp.Regexp
}

func buildLowTiers(from, to int) []lowTier {
	out := make([]lowTier, 0, to-from+1)
	for i := from; i <= to; i++ {
		token := fmt.Sprintf("%d%s Prize", i, lottery.Ordinal(i))
		out = append(out, lowTier{
			rank:   i,
			marker: regexp.MustCompile(`(?i)\b` + token),
			amount: regexp.MustCompile(`(?i)^` + token + ` - (?:₹|Rs\.?)\s?([\d,]+)`),
		})
	}
	return out
}

// Parse extracts a result from flattened page text. An upcoming-draw banner
// wins over everything else and yields a placeholder; otherwise the page is
// read as a provisional live result. Parse never fails: tiers that do not
// match are absent.
func Parse(text string, now time.Time) *lottery.Result {
	text = strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
	if res := parseUpcoming(text, now); res != nil {
		return res
	}
	return parseLive(text, now)
}

var spaceRun = regexp.MustCompile(`\s+`)

func parseUpcoming(text string, now time.Time) *lottery.Result {
	m := upcomingBanner.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	res := lottery.New(Name, now)
	res.IsUpcoming = true
	res.Name = strings.TrimSpace(m[2])
	res.Code = strings.TrimSpace(m[3])
	jackpot := lottery.CleanAmount(m[4])
	res.Prizes.Set(lottery.PrizeLabel(1, jackpot), []string{lottery.Waiting})
	if d, err := lottery.ParseLongDate(m[1]); err == nil {
		res.SetDrawDate(d)
	} else {
		res.SetDrawDate(now)
	}
	return res
}

func parseLive(text string, now time.Time) *lottery.Result {
	res := lottery.New(Name, now)
	res.IsLive = true

	m := declaredHeader.FindStringSubmatch(text)
	if m == nil {
		m = drawNumber.FindStringSubmatch(text)
	}
	if m != nil {
		res.Name = strings.TrimSpace(m[1])
		res.Code = strings.TrimSpace(m[2])
	}

	if m := monthDate.FindStringSubmatch(text); m != nil {
		if d, err := lottery.ParseLongDate(m[1]); err == nil {
			res.SetDrawDate(d)
		} else {
			res.DrawDate = m[1]
		}
	}

	m = firstPrize.FindStringSubmatch(text)
	if m == nil {
		m = firstPrizeProse.FindStringSubmatch(text)
	}
	setSeriesTier(res.Prizes, 1, m)
	setSeriesTier(res.Prizes, 2, secondPrize.FindStringSubmatch(text))
	setSeriesTier(res.Prizes, 3, thirdPrize.FindStringSubmatch(text))

	if loc := consolationMarker.FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if end := consolationEnd.FindStringIndex(rest); end != nil {
			rest = rest[:end[0]]
		}
		res.Prizes.Set(lottery.ConsolationLabel, seriesTicket.FindAllString(rest, -1))
	}

	for _, tier := range lowTiers {
		loc := tier.marker.FindStringIndex(text)
		if loc == nil {
			continue
		}
		slice := text[loc[0]:]
		if end := sliceEnd.FindStringIndex(slice[loc[1]-loc[0]:]); end != nil {
			slice = slice[:loc[1]-loc[0]+end[0]]
		}
		amount := ""
		tickets := shortTicket.FindAllString(slice, -1)
		if a := tier.amount.FindStringSubmatch(slice); a != nil {
			amount = lottery.CleanAmount(a[1])
			// "₹5,000" is invisible to the ticket scan; only a bare "5000" is picked up.
			if bareAmount.MatchString(a[1]) {
				tickets = lottery.DropLeadingAmount(tickets, amount)
			}
		}
		res.Prizes.Set(lottery.PrizeLabel(tier.rank, amount), tickets)
	}
	return res
}

func setSeriesTier(p lottery.Prizes, rank int, m []string) {
	if m == nil {
		return
	}
	p.Set(lottery.PrizeLabel(rank, lottery.CleanAmount(m[1])), []string{strings.TrimSpace(m[2])})
}
