package models

import "time"

// Document processing states as recorded in Firestore.
const (
	StatusValidating = "VALIDATING"
	StatusSplitting  = "SPLITTING"
	StatusExtracting = "EXTRACTING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Document represents the main record for a PDF processing run in Firestore.
// It tracks the overall status and metadata of the file.
type Document struct {
	FileHash         string            `firestore:"fileHash,omitempty"`
	OriginalFilename string            `firestore:"originalFilename,omitempty"`
	UploadedBy       string            `firestore:"uploadedBy,omitempty"`
	Status           string            `firestore:"status,omitempty"`
	ErrorDetails     string            `firestore:"errorDetails,omitempty"`
	PageCount        int               `firestore:"pageCount,omitempty"`
	PagesProcessed   int               `firestore:"pagesProcessed,omitempty"`
	PagesSucceeded   int               `firestore:"pagesSucceeded,omitempty"`
	PagesFailed      int               `firestore:"pagesFailed,omitempty"`
	TemplateID       string            `firestore:"templateId,omitempty"`
	OriginalKey      string            `firestore:"originalKey,omitempty"`
	ProcessedKey     string            `firestore:"processedKey,omitempty"`
	ExtractedFields  ExtractedFieldSet `firestore:"extractedFields,omitempty"`
	CreatedAt        time.Time         `firestore:"createdAt,omitempty"`
}
