// Package extractor turns a stored PDF into per-page plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrExtractionFailed is returned when the file cannot be opened or parsed
// as a PDF at all.
var ErrExtractionFailed = errors.New("pdf extraction failed")

// Page is the text of a single PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// PDFExtractor checks PDFs with pdfcpu and reads page text with
// ledongthuc/pdf.
type PDFExtractor struct {
	conf   *model.Configuration
	logger *slog.Logger
}

// NewPDFExtractor creates an extractor. A nil logger uses slog.Default().
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}

	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &PDFExtractor{conf: conf, logger: logger}
}

// Extract returns the non-blank pages of the PDF at path in physical order.
// Pages that fail to decode are logged and skipped. Only a file the reader
// cannot open at all fails with ErrExtractionFailed.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]Page, error) {
	// pdfcpu also decodes every content stream, so one broken page fails
	// validation for the whole file. Report it and read page by page.
	if err := api.ValidateFile(path, e.conf); err != nil {
		e.logger.Warn("PDF failed validation, extracting readable pages", "path", path, "error", err)
	}

	f, r, err := open(path)
	if err != nil {
		return []Page{}, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, path, err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return []Page{}, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, path, err)
		}

		text, err := pageText(r, n)
		if err != nil {
			e.logger.Warn("Skipping unreadable page", "path", path, "page", n, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: n, Text: text})
	}

	e.logger.Debug("Extracted PDF text", "path", path, "pages", total, "with_text", len(pages))
	return pages, nil
}

// open wraps pdf.Open, which can panic on badly broken cross-reference data
// and leaves the file open when the reader cannot be built.
func open(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader panic: %v", p)
		}
	}()

	f, r, err = pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, nil, err
	}
	return f, r, nil
}

func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %d: pdf reader panic: %v", n, p)
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
