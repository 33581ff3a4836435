package lottery

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date layouts seen across the sources.
const (
	DisplayLayout = "02/01/2006"
	FeedLayout    = "2006-01-02"
	LongLayout    = "2 January 2006"
	ShortLayout   = "2 Jan 2006"
)

// CivilDate truncates t to its calendar date at UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SetDrawDate sets both date representations from one value.
func (r *Result) SetDrawDate(t time.Time) {
	d := CivilDate(t)
	r.ISODate = &d
	r.DrawDate = d.Format(DisplayLayout)
}

// ParseDisplayDate parses DD/MM/YYYY.
func ParseDisplayDate(s string) (time.Time, error) {
	return time.Parse(DisplayLayout, strings.TrimSpace(s))
}

// ParseFeedDate parses YYYY-MM-DD.
func ParseFeedDate(s string) (time.Time, error) {
	return time.Parse(FeedLayout, strings.TrimSpace(s))
}

var (
	weekdayPrefix = regexp.MustCompile(`^\w+,\s*`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// ParseLongDate parses a month-name date such as "15 February 2026" or
// "15 Feb 2026". A leading "Sunday, " style weekday is ignored.
func ParseLongDate(s string) (time.Time, error) {
	s = spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	s = weekdayPrefix.ReplaceAllString(s, "")
	if t, err := time.Parse(LongLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(ShortLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse long date %q: %w", s, err)
	}
	return t, nil
}
