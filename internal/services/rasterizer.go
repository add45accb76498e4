package services

import (
	"fmt"

	"github.com/demo671/pdf-docflow/internal/models"
)

// MaxPagePayloadBytes is the ceiling for a single page payload. The
// recognition service rejects larger inputs anyway, so oversized pages are
// refused here, before any network call spends quota.
const MaxPagePayloadBytes = 15 * 1024 * 1024

// PageMIMEType is the declared type of split page buffers.
const PageMIMEType = "application/pdf"

// PreparePageImage wraps one single-page buffer as a PageImage for the
// extraction client. It performs no resizing or recompression; a payload
// over the ceiling fails with ErrPayloadTooLarge and it is the caller's
// choice to shrink and retry.
func PreparePageImage(pageIndex int, payload []byte, mimeType string) (models.PageImage, error) {
	if mimeType == "" {
		mimeType = PageMIMEType
	}
	if len(payload) > MaxPagePayloadBytes {
		return models.PageImage{}, fmt.Errorf("%w: page %d is %d bytes (max %d)",
			ErrPayloadTooLarge, pageIndex, len(payload), MaxPagePayloadBytes)
	}
	return models.PageImage{
		PageIndex: pageIndex,
		Payload:   payload,
		MIMEType:  mimeType,
		SizeBytes: len(payload),
	}, nil
}
