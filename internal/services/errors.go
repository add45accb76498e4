package services

import "errors"

// Fatal, document-level errors. Per-page failures never surface as errors;
// they are absorbed into PageResult classifications below.
var (
	// ErrMalformedDocument means the input buffer could not be parsed as a
	// PDF. Raised before any external call is attempted.
	ErrMalformedDocument = errors.New("malformed pdf document")

	// ErrPayloadTooLarge means a single page exceeds the payload ceiling.
	// Fatal for that page only, never for the run.
	ErrPayloadTooLarge = errors.New("page payload exceeds size limit")

	// ErrInvalidTemplate means a rule set document failed the minimal
	// presence check before use.
	ErrInvalidTemplate = errors.New("invalid template rule set")
)

// FailureKind classifies a non-fatal per-page failure for logging and for
// the aggregator's circuit breaker. String-valued so it reads well in
// structured logs.
type FailureKind string

const (
	FailureNone FailureKind = ""
	// FailureConfiguration: missing or rejected service credentials.
	FailureConfiguration FailureKind = "configuration"
	// FailureSizeLimit: the page payload was over the ceiling.
	FailureSizeLimit FailureKind = "size_limit"
	// FailureRateLimit: the recognition service throttled the call.
	FailureRateLimit FailureKind = "rate_limit"
	// FailureTimeout: the per-call wall-clock ceiling elapsed.
	FailureTimeout FailureKind = "timeout"
	// FailureUpstream: any other transport or service error.
	FailureUpstream FailureKind = "upstream"
	// FailureEmptyResponse: the call returned but carried no text at all.
	FailureEmptyResponse FailureKind = "empty_response"
	// FailureEmptyExtraction: the call returned text but every parsed
	// section came out empty. Not a transport error, yet still a
	// non-success for the breaker.
	FailureEmptyExtraction FailureKind = "empty_extraction"
)
