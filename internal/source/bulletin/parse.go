package bulletin

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

// Bulletin text patterns. Each one has a fixture in parse_test.go.
var (
	// seriesName captures the upper-case series name before "LOTTERY NO",
	// skipping the e-mail line the header usually carries.
	seriesName = regexp.MustCompile(`(?s)(?:EMAIL:.*?\s+)?([A-Z\s\-]{3,})\s+LOTTERY NO`)
	drawCode   = regexp.MustCompile(`NO\.([A-Z0-9\-]+)`)
	heldOn     = regexp.MustCompile(`held on:-\s+(\d{2}/\d{2}/\d{4})`)

	// tierToken starts a prize block.
	tierToken = regexp.MustCompile(`\d+(?:st|nd|rd|th)\s+Prize`)

	// blockLabel runs from the block start to the first "/-" on its first line.
	blockLabel  = regexp.MustCompile(`^(.*?Prize.*?/-)`)
	labelAmount = regexp.MustCompile(`:(\d+)/-`)

	firstWinner  = regexp.MustCompile(`1\)\s+([A-Z]{2}\s\d{6})`)
	seriesTicket = regexp.MustCompile(`\b[A-Z]{2}\s\d{6}\b`)
	shortTicket  = regexp.MustCompile(`\b\d{4}\b`)
)

const (
	terminalMarker    = "The prize winners"
	consolationMarker = "Cons Prize-Rs :"
	firstPrizeMarker  = "1st Prize"
)

// Parse turns the concatenated bulletin text into a result. Metadata that
// is missing defaults to Unknown. It fails only when the text carries
// neither metadata nor a single prize tier.
func Parse(text string) (*lottery.Result, error) {
	res := &lottery.Result{
		Name:     lottery.Unknown,
		Code:     lottery.Unknown,
		DrawDate: lottery.Unknown,
		Prizes:   lottery.Prizes{},
		Source:   Name,
	}
	found := false
	if m := seriesName.FindStringSubmatch(text); m != nil {
		res.Name = strings.TrimSpace(m[1])
		found = true
	}
	if m := drawCode.FindStringSubmatch(text); m != nil {
		res.Code = strings.TrimSpace(m[1])
		found = true
	}
	if m := heldOn.FindStringSubmatch(text); m != nil {
		found = true
		if d, err := lottery.ParseDisplayDate(m[1]); err == nil {
			res.SetDrawDate(d)
		} else {
			res.DrawDate = m[1]
		}
	}

	for _, block := range Blocks(text) {
		parseBlock(block, res.Prizes)
	}
	if !found && len(res.Prizes) == 0 {
		return nil, lottery.Fail(Name, lottery.ErrMalformedSource, nil, "no metadata and no prize blocks")
	}
	return res, nil
}

// Blocks splits text at every ordinal prize token. A block ends at the next
// token, at the terminal marker or at the end of the text.
func Blocks(text string) []string {
	starts := tierToken.FindAllStringIndex(text, -1)
	blocks := make([]string, 0, len(starts))
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		if j := strings.Index(text[loc[1]:end], terminalMarker); j >= 0 {
			end = loc[1] + j
		}
		blocks = append(blocks, text[loc[0]:end])
	}
	return blocks
}

func parseBlock(block string, prizes lottery.Prizes) {
	m := blockLabel.FindStringSubmatch(block)
	if m == nil {
		return
	}
	label := strings.TrimSpace(m[1])

	if strings.Contains(label, firstPrizeMarker) {
		if w := firstWinner.FindStringSubmatch(block); w != nil {
			prizes.Set(label, []string{w[1]})
		}
		if i := strings.Index(block, consolationMarker); i >= 0 {
			prizes.Set(lottery.ConsolationLabel, seriesTicket.FindAllString(block[i+len(consolationMarker):], -1))
		}
		return
	}

	if high := seriesTicket.FindAllString(block, -1); len(high) > 0 {
		prizes.Set(label, high)
		return
	}
	low := shortTicket.FindAllString(block, -1)
	if a := labelAmount.FindStringSubmatch(label); a != nil {
		low = lottery.DropLeadingAmount(low, a[1])
	}
	prizes.Set(label, low)
}
