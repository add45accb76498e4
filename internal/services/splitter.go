package services

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// MaxSourcePages caps how many pages of a source document are split out.
// Pages beyond the cap are not emitted; the truncation is observable through
// SplitResult.TotalPages.
const MaxSourcePages = 10

// SplitResult carries the ordered single-page buffers plus the source page
// count so callers can warn about truncation.
type SplitResult struct {
	TotalPages int
	Pages      [][]byte
}

// Truncated reports whether the source had more pages than were emitted.
func (r *SplitResult) Truncated() bool {
	return r.TotalPages > len(r.Pages)
}

// PageSplitter decomposes a PDF buffer into single-page PDF buffers.
type PageSplitter struct {
	maxPages int
	conf     *model.Configuration
}

// NewPageSplitter returns a splitter with the default page cap and relaxed
// PDF validation, which tolerates the mildly out-of-spec files scanners tend
// to produce.
func NewPageSplitter() *PageSplitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PageSplitter{maxPages: MaxSourcePages, conf: conf}
}

// Split validates and optimizes the source, then emits one buffer per page
// in ascending page order, capped at the configured maximum. An input that
// cannot be parsed as a PDF yields ErrMalformedDocument.
func (s *PageSplitter) Split(pdf []byte) (*SplitResult, error) {
	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(pdf), &optimized, s.conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(optimized.Bytes()), s.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %v", ErrMalformedDocument, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrMalformedDocument)
	}

	emit := pageCount
	if emit > s.maxPages {
		emit = s.maxPages
	}

	pages := make([][]byte, 0, emit)
	for i := 1; i <= emit; i++ {
		var page bytes.Buffer
		if err := api.Trim(bytes.NewReader(optimized.Bytes()), &page, []string{strconv.Itoa(i)}, s.conf); err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		pages = append(pages, page.Bytes())
	}

	return &SplitResult{TotalPages: pageCount, Pages: pages}, nil
}
