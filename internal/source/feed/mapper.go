package feed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

// ErrErrorPayload is returned by Map for API error bodies such as
// {"code":"rest_no_route","message":"..."}.
var ErrErrorPayload = errors.New("feed: error payload")

type item map[string]json.RawMessage

type ticketRef struct {
	Ticket string `json:"ticket"`
}

// Map converts one API item into a result. It returns a nil result for
// error payloads and for items without a parsable draw_date.
func Map(data []byte) (*lottery.Result, error) {
	var it item
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return mapItem(it)
}

func mapItem(it item) (*lottery.Result, error) {
	if _, hasCode := it["code"]; hasCode {
		if _, hasMsg := it["message"]; hasMsg {
			return nil, fmt.Errorf("%w: %s", ErrErrorPayload, it.str("message"))
		}
	}
	day, err := lottery.ParseFeedDate(it.str("draw_date"))
	if err != nil {
		return nil, fmt.Errorf("draw_date: %w", err)
	}

	res := &lottery.Result{
		Name:   it.strOr("draw_name", lottery.Unknown),
		Code:   it.strOr("draw_code", lottery.Unknown),
		Prizes: lottery.Prizes{},
		Source: Name,
	}
	res.SetDrawDate(day)

	var tiers item
	if raw, ok := it["prizes"]; ok {
		_ = json.Unmarshal(raw, &tiers)
	}
	var amounts item
	if raw, ok := tiers["amounts"]; ok {
		_ = json.Unmarshal(raw, &amounts)
	}

	if ticket := firstTicket(it, tiers); ticket != "" {
		res.Prizes.Set(lottery.PrizeLabel(1, amounts.amount("1st")), []string{ticket})
	}
	res.Prizes.Set(lottery.ConsolationLabel, tiers.list("consolation"))
	for rank := 2; rank <= 9; rank++ {
		key := fmt.Sprintf("%d%s", rank, lottery.Ordinal(rank))
		res.Prizes.Set(lottery.PrizeLabel(rank, amounts.amount(key)), tiers.list(key))
	}
	return res, nil
}

// firstTicket looks for the jackpot ticket at first.ticket, then under
// prizes.first.ticket, then at the flat first_ticket the history endpoint
// uses.
func firstTicket(it, tiers item) string {
	for _, raw := range []json.RawMessage{it["first"], tiers["first"]} {
		if len(raw) == 0 {
			continue
		}
		var ref ticketRef
		if err := json.Unmarshal(raw, &ref); err == nil && strings.TrimSpace(ref.Ticket) != "" {
			return strings.TrimSpace(ref.Ticket)
		}
	}
	return strings.TrimSpace(it.str("first_ticket"))
}

func (it item) str(key string) string {
	raw, ok := it[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return s
}

func (it item) strOr(key, def string) string {
	if _, ok := it[key]; !ok {
		return def
	}
	return it.str(key)
}

// amount returns the cleaned amount for a tier key, or Unknown.
func (it item) amount(key string) string {
	if s := lottery.CleanAmount(it.str(key)); s != "" {
		return s
	}
	return lottery.Unknown
}

// list returns a tier's tickets verbatim. Anything but a list of strings
// yields nil.
func (it item) list(key string) []string {
	raw, ok := it[key]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
