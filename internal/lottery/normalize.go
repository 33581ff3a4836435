package lottery

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	currencyGlyphs = strings.NewReplacer("₹", "", "₨", "")
	westernGrouped = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// CleanAmount strips currency glyphs, the "/-" suffix, surrounding space and
// western thousands separators. Indian lakh grouping such as "1,00,00,000" is
// kept as written.
func CleanAmount(s string) string {
	s = currencyGlyphs.Replace(s)
	s = strings.ReplaceAll(s, "/-", "")
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	if westernGrouped.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

// Ordinal returns the English suffix for a prize rank.
func Ordinal(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 13:
		return "th"
	case n%10 == 1:
		return "st"
	case n%10 == 2:
		return "nd"
	case n%10 == 3:
		return "rd"
	}
	return "th"
}

// PrizeLabel builds "<n><suffix> Prize Rs <amount>".
func PrizeLabel(rank int, amount string) string {
	if amount == "" {
		amount = Unknown
	}
	return fmt.Sprintf("%d%s Prize Rs %s", rank, Ordinal(rank), amount)
}

// DropLeadingAmount removes the first token when it is the tier amount that
// the number scan picked up from the label.
func DropLeadingAmount(tickets []string, amount string) []string {
	if len(tickets) > 0 && amount != "" && tickets[0] == amount {
		return tickets[1:]
	}
	return tickets
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Normalize returns r in canonical form. Applying it twice gives the same
// value as applying it once.
func Normalize(r Result) Result {
	out := r.Clone()
	out.Name = collapse(out.Name)
	if out.Name == "" {
		out.Name = Unknown
	}
	out.Code = collapse(out.Code)
	if out.Code == "" {
		out.Code = Unknown
	}
	if out.ISODate != nil {
		out.SetDrawDate(*out.ISODate)
	} else {
		out.DrawDate = collapse(out.DrawDate)
		if out.DrawDate == "" {
			out.DrawDate = Unknown
		}
	}
	prizes := make(Prizes, len(out.Prizes))
	for label, tickets := range out.Prizes {
		label = collapse(label)
		if label == "" {
			continue
		}
		clean := make([]string, 0, len(tickets))
		for _, t := range tickets {
			if t = collapse(t); t != "" {
				clean = append(clean, t)
			}
		}
		if len(clean) == 0 {
			continue
		}
		prizes[label] = append(prizes[label], clean...)
	}
	out.Prizes = prizes
	return out
}
