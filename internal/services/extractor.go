package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/demo671/pdf-docflow/internal/gcp"
	"github.com/demo671/pdf-docflow/internal/models"
)

// DefaultCallTimeout is the wall-clock ceiling for one recognition call.
const DefaultCallTimeout = 60 * time.Second

// PageResult is what one page attempt produces. The extraction client never
// returns a Go error to the page loop; a failed call yields an empty
// extraction together with a classified cause, so "legitimately empty" and
// "failed" stay distinguishable.
type PageResult struct {
	Extraction models.PageExtraction
	Cause      FailureKind
	Err        error
}

// Failed reports whether the attempt counts as a non-success for the
// circuit breaker.
func (r PageResult) Failed() bool {
	return r.Cause != FailureNone
}

// PageExtractor is the interface the aggregation loop depends on.
type PageExtractor interface {
	ExtractPage(ctx context.Context, img models.PageImage) PageResult
}

// VertexExtractor sends page payloads to the Vertex AI recognition model.
// It holds no mutable state and is safe for use across runs.
type VertexExtractor struct {
	model   *genai.GenerativeModel
	timeout time.Duration
	log     *slog.Logger
}

// NewVertexExtractor wraps an eagerly validated Vertex client. A zero
// timeout falls back to DefaultCallTimeout.
func NewVertexExtractor(client *gcp.VertexClient, timeout time.Duration, logger *slog.Logger) *VertexExtractor {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VertexExtractor{model: client.ExtractorModel, timeout: timeout, log: logger}
}

// ExtractPage runs one recognition call for a single page and parses the
// response against the sentinel protocol.
func (e *VertexExtractor) ExtractPage(ctx context.Context, img models.PageImage) PageResult {
	failed := func(cause FailureKind, err error) PageResult {
		e.log.Warn("Page extraction failed.",
			"pageIndex", img.PageIndex, "cause", string(cause), "error", err)
		return PageResult{
			Extraction: models.PageExtraction{PageIndex: img.PageIndex},
			Cause:      cause,
			Err:        err,
		}
	}

	// Re-guard the payload ceiling; the rasterizer checks it too, but this
	// client must never spend quota on an oversized page.
	if img.SizeBytes > MaxPagePayloadBytes {
		return failed(FailureSizeLimit, ErrPayloadTooLarge)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	payload := genai.Blob{MIMEType: img.MIMEType, Data: img.Payload}
	prompt := genai.Text(gcp.ExtractorUserPrompt)

	resp, err := e.model.GenerateContent(callCtx, payload, prompt)
	if err != nil {
		return failed(classifyCallError(err), err)
	}

	text := extractResponseText(resp)
	if text == "" {
		return failed(FailureEmptyResponse, errors.New("recognition service returned no text"))
	}

	structured := ParseStructuredResponse(text)
	extraction := models.PageExtraction{
		PageIndex:   img.PageIndex,
		Title:       structured.Title,
		MainData:    structured.MainData,
		ContactInfo: structured.ContactInfo,
	}
	if extraction.TotalChars() == 0 {
		return failed(FailureEmptyExtraction, errors.New("all parsed sections empty"))
	}

	extraction.Succeeded = true
	e.log.Info("Page extracted.",
		"pageIndex", img.PageIndex,
		"titleChars", len(extraction.Title),
		"mainChars", len(extraction.MainData),
		"contactChars", len(extraction.ContactInfo),
		"elapsed", time.Since(start).String(),
	)
	return PageResult{Extraction: extraction}
}

// classifyCallError maps transport and service errors onto the failure
// taxonomy. Unknown errors count as upstream.
func classifyCallError(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.DeadlineExceeded:
			return FailureTimeout
		case codes.ResourceExhausted:
			return FailureRateLimit
		case codes.Unauthenticated, codes.PermissionDenied:
			return FailureConfiguration
		}
	}
	return FailureUpstream
}

// extractResponseText concatenates the text parts of a model response and
// strips markdown fences the model occasionally wraps output in.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(b.String())
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
