package services

import (
	"errors"
	"testing"
)

func TestPreparePageImageSizeBoundary(t *testing.T) {
	atLimit := make([]byte, MaxPagePayloadBytes)
	overLimit := make([]byte, MaxPagePayloadBytes+1)

	img, err := PreparePageImage(0, atLimit, PageMIMEType)
	if err != nil {
		t.Fatalf("payload at the limit must be accepted, got %v", err)
	}
	if img.SizeBytes != MaxPagePayloadBytes {
		t.Errorf("SizeBytes = %d, want %d", img.SizeBytes, MaxPagePayloadBytes)
	}

	_, err = PreparePageImage(1, overLimit, PageMIMEType)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("payload over the limit: err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestPreparePageImageDefaults(t *testing.T) {
	img, err := PreparePageImage(3, []byte("%PDF-1.7"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.MIMEType != PageMIMEType {
		t.Errorf("MIMEType = %q, want default %q", img.MIMEType, PageMIMEType)
	}
	if img.PageIndex != 3 {
		t.Errorf("PageIndex = %d, want 3", img.PageIndex)
	}
}
