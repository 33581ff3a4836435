package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrPDF wraps any failure to read a PDF document, including parser panics.
var ErrPDF = errors.New("extract: unreadable pdf")

// PageExtractor turns a PDF document into per-page text in page order.
type PageExtractor interface {
	Pages(data []byte) ([]string, error)
}

// PageExtractorFunc adapts a function to PageExtractor.
type PageExtractorFunc func(data []byte) ([]string, error)

func (f PageExtractorFunc) Pages(data []byte) ([]string, error) { return f(data) }

// PDFText is the default PageExtractor.
var PDFText PageExtractor = PageExtractorFunc(PDFPages)

// PDFPages extracts the plain text of every page. Pages without content
// yield an empty string so indexes still line up with page numbers.
func PDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: parser panic: %v", ErrPDF, r)
		}
	}()
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrPDF)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPDF, err)
	}
	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrPDF, i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
