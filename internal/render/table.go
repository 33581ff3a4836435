package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

// Table writes r as a two column table, tier on the left and tickets on
// the right. Columns are padded by display width so wide runes line up.
func Table(w io.Writer, r lottery.Result) error {
	header := fmt.Sprintf("%s %s  %s", r.Name, r.Code, r.DrawDate)
	if note := statusNote(r); note != "" {
		header += "  (" + note + ")"
	}
	rows := [][]string{{"Prize", "Tickets"}}
	for _, label := range r.Prizes.Labels() {
		for i, line := range chunk(r.Prizes[label], ticketsPerLine) {
			first := ""
			if i == 0 {
				first = label
			}
			rows = append(rows, []string{first, strings.Join(line, " ")})
		}
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	return writeRows(w, rows)
}

// Summary writes one line per result: code, name, draw date, tier count.
func Summary(w io.Writer, results []lottery.Result) error {
	rows := [][]string{{"Code", "Name", "Draw date", "Tiers", "Source"}}
	for _, r := range results {
		rows = append(rows, []string{r.Code, r.Name, r.DrawDate, fmt.Sprint(len(r.Prizes)), r.Source})
	}
	return writeRows(w, rows)
}

func writeRows(w io.Writer, rows [][]string) error {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	widths := make([]int, cols)
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i, row := range rows {
		var sb strings.Builder
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			if j > 0 {
				sb.WriteString(" | ")
			}
			if j == cols-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[j]))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
		if i == 0 {
			if err := writeRule(w, widths); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRule(w io.Writer, widths []int) error {
	parts := make([]string, len(widths))
	for i, n := range widths {
		parts[i] = strings.Repeat("-", n)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, "-+-"))
	return err
}
