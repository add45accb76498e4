package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/demo671/pdf-docflow/internal/models"
)

// MaxPagesPerRun caps the extraction loop regardless of how many page
// images are supplied. Excess pages are dropped with a warning, not an
// error.
const MaxPagesPerRun = 20

// maxConsecutiveFailures trips the breaker when nothing has succeeded yet.
// Three straight failures with zero successes reads as a systemic condition
// (bad credentials, exhausted quota, outage) rather than per-page noise.
const maxConsecutiveFailures = 3

// runState is the explicit state of one aggregation run.
type runState int

const (
	stateRunning runState = iota
	stateTripped
	stateCompleted
)

// ResultAggregator drives the sequential per-page loop and folds the
// results into one document-level value. Pages run sequentially on purpose:
// it bounds load on the recognition service and keeps "consecutive
// failures" well-defined.
type ResultAggregator struct {
	extractor PageExtractor
	maxPages  int
	log       *slog.Logger
}

// NewResultAggregator builds an aggregator over the given extractor.
func NewResultAggregator(extractor PageExtractor, logger *slog.Logger) *ResultAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultAggregator{extractor: extractor, maxPages: MaxPagesPerRun, log: logger}
}

// Aggregate processes pages in ascending page order and returns the folded
// document. It never returns an error: total failure is a valid output
// state, represented by an all-empty document with PagesSucceeded = 0.
func (a *ResultAggregator) Aggregate(ctx context.Context, pages []models.PageImage) models.AggregatedDocument {
	if len(pages) == 0 {
		a.log.Warn("No page images supplied to aggregate.")
		return models.AggregatedDocument{}
	}

	ordered := make([]models.PageImage, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PageIndex < ordered[j].PageIndex })

	if len(ordered) > a.maxPages {
		a.log.Warn("Too many pages supplied, truncating run.",
			"supplied", len(ordered), "max", a.maxPages)
		ordered = ordered[:a.maxPages]
	}

	var (
		succeeded   []models.PageExtraction
		attempted   int
		failedCount int
		consecutive int
		state       = stateRunning
	)

	for _, img := range ordered {
		if state != stateRunning {
			break
		}
		attempted++

		result := a.extractor.ExtractPage(ctx, img)
		if result.Failed() {
			failedCount++
			consecutive++
			a.log.Warn("Page attempt counted as failure.",
				"pageIndex", img.PageIndex,
				"cause", string(result.Cause),
				"consecutiveFailures", consecutive,
			)
			// Rejected credentials cannot heal between pages; stop at once
			// instead of burning attempts until the breaker threshold.
			if result.Cause == FailureConfiguration {
				state = stateTripped
				a.log.Error("Configuration failure, stopping remaining pages.",
					"pageIndex", img.PageIndex, "attempted", attempted)
				continue
			}
			if consecutive >= maxConsecutiveFailures && len(succeeded) == 0 {
				state = stateTripped
				a.log.Error("Circuit breaker tripped, stopping remaining pages.",
					"attempted", attempted, "supplied", len(ordered))
			}
			continue
		}

		succeeded = append(succeeded, result.Extraction)
		consecutive = 0
	}
	if state == stateRunning {
		state = stateCompleted
	}

	doc := foldExtractions(succeeded)
	doc.PagesAttempted = attempted
	doc.PagesSucceeded = len(succeeded)
	doc.PagesFailed = failedCount

	a.log.Info("Aggregation finished.",
		"attempted", doc.PagesAttempted,
		"succeeded", doc.PagesSucceeded,
		"failed", doc.PagesFailed,
		"tripped", state == stateTripped,
	)
	return doc
}

// foldExtractions combines succeeded pages in page order: the first page's
// title wins, body fragments join with a blank line, contact fragments with
// " | ". Empty fragments are dropped from the joins.
func foldExtractions(pages []models.PageExtraction) models.AggregatedDocument {
	if len(pages) == 0 {
		return models.AggregatedDocument{}
	}

	var mains, contacts []string
	for _, p := range pages {
		if p.MainData != "" {
			mains = append(mains, p.MainData)
		}
		if p.ContactInfo != "" {
			contacts = append(contacts, p.ContactInfo)
		}
	}

	return models.AggregatedDocument{
		Title:       pages[0].Title,
		MainData:    strings.Join(mains, "\n\n"),
		ContactInfo: strings.Join(contacts, " | "),
	}
}
