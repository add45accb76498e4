package services

import (
	"context"
	"errors"
	"testing"

	"github.com/demo671/pdf-docflow/internal/models"
)

// scriptedExtractor replays a fixed per-page outcome sequence. An entry of
// "" means the page succeeds with generated content; any other value is the
// failure cause for that page.
type scriptedExtractor struct {
	script  []FailureKind
	calls   int
	content func(pageIndex int) models.PageExtraction
}

func (s *scriptedExtractor) ExtractPage(_ context.Context, img models.PageImage) PageResult {
	defer func() { s.calls++ }()
	if s.calls >= len(s.script) {
		return PageResult{
			Extraction: models.PageExtraction{PageIndex: img.PageIndex},
			Cause:      FailureUpstream,
			Err:        errors.New("script exhausted"),
		}
	}
	cause := s.script[s.calls]
	if cause != FailureNone {
		return PageResult{
			Extraction: models.PageExtraction{PageIndex: img.PageIndex},
			Cause:      cause,
			Err:        errors.New("scripted failure"),
		}
	}
	if s.content != nil {
		return PageResult{Extraction: s.content(img.PageIndex)}
	}
	return PageResult{Extraction: models.PageExtraction{
		PageIndex: img.PageIndex,
		Title:     "title",
		MainData:  "body",
		Succeeded: true,
	}}
}

func makePages(n int) []models.PageImage {
	pages := make([]models.PageImage, n)
	for i := range pages {
		pages[i] = models.PageImage{PageIndex: i, Payload: []byte("%PDF"), MIMEType: PageMIMEType, SizeBytes: 4}
	}
	return pages
}

func TestAggregateAllFailedIsEmpty(t *testing.T) {
	ext := &scriptedExtractor{script: []FailureKind{FailureTimeout, FailureUpstream}}
	agg := NewResultAggregator(ext, nil)

	doc := agg.Aggregate(context.Background(), makePages(2))

	if doc.PagesSucceeded != 0 {
		t.Fatalf("PagesSucceeded = %d, want 0", doc.PagesSucceeded)
	}
	if doc.Title != "" || doc.MainData != "" || doc.ContactInfo != "" {
		t.Errorf("expected all-empty document, got %+v", doc)
	}
	if doc.PagesAttempted != 2 || doc.PagesFailed != 2 {
		t.Errorf("counters = attempted %d failed %d, want 2/2", doc.PagesAttempted, doc.PagesFailed)
	}
}

func TestAggregateNoPages(t *testing.T) {
	agg := NewResultAggregator(&scriptedExtractor{}, nil)
	doc := agg.Aggregate(context.Background(), nil)
	if doc != (models.AggregatedDocument{}) {
		t.Errorf("expected zero document, got %+v", doc)
	}
}

func TestAggregateJoinRules(t *testing.T) {
	ext := &scriptedExtractor{
		script: []FailureKind{FailureNone, FailureNone, FailureNone},
		content: func(i int) models.PageExtraction {
			p := models.PageExtraction{PageIndex: i, Succeeded: true}
			switch i {
			case 0:
				p.Title = "first title"
				p.MainData = "page one"
				p.ContactInfo = "a@x.com"
			case 1:
				p.Title = "second title"
				p.MainData = "page two"
				// no contact info: fragment must be omitted from the join
			case 2:
				p.MainData = "page three"
				p.ContactInfo = "+1 555 0100"
			}
			return p
		},
	}
	agg := NewResultAggregator(ext, nil)

	doc := agg.Aggregate(context.Background(), makePages(3))

	if doc.Title != "first title" {
		t.Errorf("Title = %q, want first succeeded page's title", doc.Title)
	}
	if want := "page one\n\npage two\n\npage three"; doc.MainData != want {
		t.Errorf("MainData = %q, want %q", doc.MainData, want)
	}
	if want := "a@x.com | +1 555 0100"; doc.ContactInfo != want {
		t.Errorf("ContactInfo = %q, want %q", doc.ContactInfo, want)
	}
	if doc.PagesSucceeded != 3 || doc.PagesFailed != 0 {
		t.Errorf("counters = %d/%d, want 3 succeeded 0 failed", doc.PagesSucceeded, doc.PagesFailed)
	}
}

func TestAggregateBreakerTripsAtThreeWithZeroSuccesses(t *testing.T) {
	ext := &scriptedExtractor{script: []FailureKind{
		FailureTimeout, FailureRateLimit, FailureUpstream, FailureNone,
	}}
	agg := NewResultAggregator(ext, nil)

	doc := agg.Aggregate(context.Background(), makePages(4))

	if ext.calls != 3 {
		t.Fatalf("extractor called %d times, want 3 (page 4 must never be attempted)", ext.calls)
	}
	if doc.PagesAttempted != 3 || doc.PagesSucceeded != 0 || doc.PagesFailed != 3 {
		t.Errorf("counters = %+v, want attempted 3 succeeded 0 failed 3", doc)
	}
}

func TestAggregateBreakerResetsAfterSuccess(t *testing.T) {
	// fail, fail, succeed, fail, fail, fail: the success resets the
	// consecutive counter and page 6 is still attempted.
	ext := &scriptedExtractor{script: []FailureKind{
		FailureUpstream, FailureUpstream, FailureNone,
		FailureUpstream, FailureUpstream, FailureUpstream,
	}}
	agg := NewResultAggregator(ext, nil)

	doc := agg.Aggregate(context.Background(), makePages(6))

	if ext.calls != 6 {
		t.Fatalf("extractor called %d times, want all 6 pages attempted", ext.calls)
	}
	if doc.PagesAttempted != 6 || doc.PagesSucceeded != 1 || doc.PagesFailed != 5 {
		t.Errorf("counters = attempted %d succeeded %d failed %d, want 6/1/5",
			doc.PagesAttempted, doc.PagesSucceeded, doc.PagesFailed)
	}
	if doc.Title != "title" {
		t.Errorf("Title = %q, want the succeeded page's title", doc.Title)
	}
}

func TestAggregateEmptyExtractionCountsForBreaker(t *testing.T) {
	// A page that parses to nothing is not a transport error but still a
	// non-success feeding the same counter.
	ext := &scriptedExtractor{script: []FailureKind{
		FailureEmptyExtraction, FailureEmptyResponse, FailureTimeout, FailureNone,
	}}
	agg := NewResultAggregator(ext, nil)

	agg.Aggregate(context.Background(), makePages(4))

	if ext.calls != 3 {
		t.Errorf("extractor called %d times, want trip after 3 mixed-cause failures", ext.calls)
	}
}

func TestAggregateStopsOnConfigurationFailure(t *testing.T) {
	// Rejected credentials fail every remaining page identically, so the
	// run stops on the first one instead of waiting for the breaker.
	ext := &scriptedExtractor{script: []FailureKind{
		FailureNone, FailureConfiguration, FailureNone, FailureNone,
	}}
	agg := NewResultAggregator(ext, nil)

	doc := agg.Aggregate(context.Background(), makePages(4))

	if ext.calls != 2 {
		t.Fatalf("extractor called %d times, want stop right after the configuration failure", ext.calls)
	}
	if doc.PagesAttempted != 2 || doc.PagesSucceeded != 1 || doc.PagesFailed != 1 {
		t.Errorf("counters = attempted %d succeeded %d failed %d, want 2/1/1",
			doc.PagesAttempted, doc.PagesSucceeded, doc.PagesFailed)
	}
}

func TestAggregateCapsPagesPerRun(t *testing.T) {
	script := make([]FailureKind, MaxPagesPerRun+5)
	ext := &scriptedExtractor{script: script}
	agg := NewResultAggregator(ext, nil)

	doc := agg.Aggregate(context.Background(), makePages(MaxPagesPerRun+5))

	if ext.calls != MaxPagesPerRun {
		t.Errorf("extractor called %d times, want cap of %d", ext.calls, MaxPagesPerRun)
	}
	if doc.PagesAttempted != MaxPagesPerRun {
		t.Errorf("PagesAttempted = %d, want %d", doc.PagesAttempted, MaxPagesPerRun)
	}
}
