package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/demo671/pdf-docflow/internal/gcp"
)

const pdfContentType = "application/pdf"

// ObjectStore is the byte-level storage the router runs on. The GCS
// implementation lives in internal/gcp; tests use an in-memory map.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)
	userScopeRegex       = regexp.MustCompile(`[^a-z0-9@._-]+`)
)

// SanitizeCompanyName converts a company name into a safe key segment:
// lowercase with every run of non-alphanumerics collapsed to one underscore.
func SanitizeCompanyName(name string) string {
	sanitized := nonAlphanumericRegex.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(sanitized, "_")
}

// sanitizeUserScope keeps the characters meaningful in an email-shaped
// scope segment and collapses everything else to underscores.
func sanitizeUserScope(scope string) string {
	return userScopeRegex.ReplaceAllString(strings.ToLower(scope), "_")
}

// SentKey derives the sent-location key from a processed key. Only the
// folder prefix changes; the identity token stays, so no lookup table is
// needed.
func SentKey(processedKey string) string {
	return "sent/" + path.Base(processedKey)
}

// CompanyKey derives the company-location key from a processed key.
func CompanyKey(processedKey, companyName string) string {
	return fmt.Sprintf("company/%s/%s", SanitizeCompanyName(companyName), path.Base(processedKey))
}

// StorageRouter maps artifacts through the named workflow locations:
// original, processed, sent and company. The processed location is the
// source of truth; sent and company hold best-effort mirrors.
type StorageRouter struct {
	store ObjectStore
	log   *slog.Logger
}

// NewStorageRouter builds a router over the given store.
func NewStorageRouter(store ObjectStore, logger *slog.Logger) *StorageRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageRouter{store: store, log: logger}
}

// newIdentity returns a fresh artifact filename. Uniqueness across
// concurrent runs is the generator's job, not the router's.
func newIdentity() string {
	return uuid.NewString() + ".pdf"
}

// WriteOriginal stores the untouched upload and returns its key.
func (r *StorageRouter) WriteOriginal(ctx context.Context, pdf []byte) (string, error) {
	key := "original/" + newIdentity()
	if err := r.store.Put(ctx, key, pdf, pdfContentType); err != nil {
		return "", fmt.Errorf("failed to write original: %w", err)
	}
	r.log.Info("Original stored.", "key", key, "sizeBytes", len(pdf))
	return key, nil
}

// WriteProcessed stores the processed artifact under the user's scope and
// assigns the identity that sent/company keys will later derive from.
func (r *StorageRouter) WriteProcessed(ctx context.Context, pdf []byte, userScope string) (string, error) {
	key := fmt.Sprintf("%s/pdf_processed/%s", sanitizeUserScope(userScope), newIdentity())
	if err := r.store.Put(ctx, key, pdf, pdfContentType); err != nil {
		return "", fmt.Errorf("failed to write processed: %w", err)
	}
	r.log.Info("Processed artifact stored.", "key", key, "sizeBytes", len(pdf))
	return key, nil
}

// CopyToSent mirrors a processed artifact into the sent location unchanged,
// no re-encoding, and returns the sent key.
func (r *StorageRouter) CopyToSent(ctx context.Context, processedKey string) (string, error) {
	data, err := r.ReadProcessed(ctx, processedKey)
	if err != nil {
		return "", err
	}
	key := SentKey(processedKey)
	if err := r.store.Put(ctx, key, data, pdfContentType); err != nil {
		return "", fmt.Errorf("failed to copy to sent: %w", err)
	}
	r.log.Info("Copied to sent folder.", "key", key)
	return key, nil
}

// CopyToCompany mirrors a processed artifact into the company location.
func (r *StorageRouter) CopyToCompany(ctx context.Context, processedKey, companyName string) (string, error) {
	data, err := r.ReadProcessed(ctx, processedKey)
	if err != nil {
		return "", err
	}
	key := CompanyKey(processedKey, companyName)
	if err := r.store.Put(ctx, key, data, pdfContentType); err != nil {
		return "", fmt.Errorf("failed to copy to company folder: %w", err)
	}
	r.log.Info("Copied to company folder.", "key", key)
	return key, nil
}

// ReadProcessed reads the authoritative artifact.
func (r *StorageRouter) ReadProcessed(ctx context.Context, processedKey string) ([]byte, error) {
	data, err := r.store.Get(ctx, processedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed artifact: %w", err)
	}
	return data, nil
}

// ReadSent reads the sent mirror, falling back to the processed artifact
// when the mirror is absent.
func (r *StorageRouter) ReadSent(ctx context.Context, processedKey string) ([]byte, error) {
	data, err := r.store.Get(ctx, SentKey(processedKey))
	if err != nil {
		if errors.Is(err, gcp.ErrObjectNotFound) {
			r.log.Warn("Sent mirror absent, falling back to processed.", "processedKey", processedKey)
			return r.ReadProcessed(ctx, processedKey)
		}
		return nil, fmt.Errorf("failed to read sent artifact: %w", err)
	}
	return data, nil
}

// ReadCompany reads the company mirror, falling back to the processed
// artifact when the mirror is absent.
func (r *StorageRouter) ReadCompany(ctx context.Context, processedKey, companyName string) ([]byte, error) {
	data, err := r.store.Get(ctx, CompanyKey(processedKey, companyName))
	if err != nil {
		if errors.Is(err, gcp.ErrObjectNotFound) {
			r.log.Warn("Company mirror absent, falling back to processed.",
				"processedKey", processedKey, "company", companyName)
			return r.ReadProcessed(ctx, processedKey)
		}
		return nil, fmt.Errorf("failed to read company artifact: %w", err)
	}
	return data, nil
}

// DeleteFile removes an artifact. A missing object counts as success.
func (r *StorageRouter) DeleteFile(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, key); err != nil {
		if errors.Is(err, gcp.ErrObjectNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
