// Package lottery holds the canonical draw result every source adapter
// converges on, and the shared rules used to build it.
package lottery

import (
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	// Unknown fills metadata a source did not expose.
	Unknown = "Unknown"
	// Waiting is the only ticket of an upcoming draw placeholder tier.
	Waiting = "WAITING"
	// ConsolationLabel is the fixed key for consolation tickets.
	ConsolationLabel = "Consolation Prize"
)

// Result is the canonical draw record.
type Result struct {
	Name     string     `json:"name"`
	Code     string     `json:"code"`
	DrawDate string     `json:"draw_date"`
	ISODate  *time.Time `json:"iso_date,omitempty"`
	Prizes   Prizes     `json:"prizes"`

	IsLive     bool `json:"is_live,omitempty"`
	IsUpcoming bool `json:"is_upcoming,omitempty"`

	Source    string    `json:"source,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// New returns an empty result with Unknown metadata.
func New(source string, now time.Time) *Result {
	return &Result{
		Name:      Unknown,
		Code:      Unknown,
		DrawDate:  Unknown,
		Prizes:    Prizes{},
		Source:    source,
		ScrapedAt: now.UTC(),
	}
}

// Resolved reports whether the draw date was parsed into a calendar date.
func (r *Result) Resolved() bool {
	return r != nil && r.ISODate != nil
}

// DrawnOn reports whether the result's calendar date equals day's calendar
// date in day's own location.
func (r *Result) DrawnOn(day time.Time) bool {
	if !r.Resolved() {
		return false
	}
	y, m, d := day.Date()
	ry, rm, rd := r.ISODate.Date()
	return y == ry && m == rm && d == rd
}

// Prizes maps a tier label to its winning tickets in source order.
type Prizes map[string][]string

// Set stores tickets under label unless the list is empty.
func (p Prizes) Set(label string, tickets []string) {
	if len(tickets) == 0 {
		return
	}
	p[label] = tickets
}

var rankPrefix = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)\b`)

// Labels returns tier labels in display order: by rank, consolation right
// after the first prize, unranked labels last.
func (p Prizes) Labels() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := labelRank(out[i]), labelRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func labelRank(label string) float64 {
	if label == ConsolationLabel {
		return 1.5
	}
	if m := rankPrefix.FindStringSubmatch(label); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return float64(n)
		}
	}
	return 1 << 20
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	out := r
	if r.ISODate != nil {
		d := *r.ISODate
		out.ISODate = &d
	}
	out.Prizes = make(Prizes, len(r.Prizes))
	for k, v := range r.Prizes {
		out.Prizes[k] = append([]string(nil), v...)
	}
	return out
}
