// Package render turns stored results into documents for people: a
// printable PDF and a plain text table for terminals.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/lotteryresults/internal/lottery"
)

const ticketsPerLine = 8

// PDF writes a one-result A4 document to w. Tiers follow Prizes.Labels
// order and tickets wrap ticketsPerLine to a line.
func PDF(w io.Writer, r lottery.Result) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("%s %s", r.Name, r.Code), true)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(fmt.Sprintf("%s LOTTERY NO.%s", strings.ToUpper(r.Name), r.Code)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Draw held on: "+r.DrawDate), "", 1, "C", false, 0, "")
	if note := statusNote(r); note != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, note, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, label := range r.Prizes.Labels() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, tr(label), "B", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 11)
		for _, line := range chunk(r.Prizes[label], ticketsPerLine) {
			pdf.CellFormat(0, 6, tr(strings.Join(line, "   ")), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Source: %s, scraped %s", r.Source, r.ScrapedAt.UTC().Format("2006-01-02 15:04 MST"))), "T", 1, "L", false, 0, "")
	return pdf.Output(w)
}

func statusNote(r lottery.Result) string {
	switch {
	case r.IsUpcoming:
		return "Upcoming draw, results not yet announced"
	case r.IsLive:
		return "Live results, subject to change"
	}
	return ""
}

func chunk(items []string, n int) [][]string {
	var out [][]string
	for len(items) > n {
		out = append(out, items[:n])
		items = items[n:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
