package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/demo671/pdf-docflow/internal/gcp"
	"github.com/demo671/pdf-docflow/internal/models"
)

// Distribution actions accepted by the distributor function.
const (
	ActionCopySent    = "copy_sent"
	ActionCopyCompany = "copy_company"
	ActionReadSent    = "read_sent"
	ActionReadCompany = "read_company"
	ActionDelete      = "delete"
)

// DistributorConfig holds configuration for the distributor service.
type DistributorConfig struct {
	ProjectID      string
	ArtifactBucket string
}

// DistributorFunction serves the distribution workflow: mirroring processed
// artifacts into the sent and company locations and reading them back with
// processed-location fallback.
type DistributorFunction struct {
	router *StorageRouter
	config DistributorConfig
}

// NewDistributor creates a new DistributorFunction instance.
func NewDistributor(ctx context.Context) (*DistributorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := DistributorConfig{
		ProjectID:      projectID,
		ArtifactBucket: gcp.GetEnv("ARTIFACT_BUCKET", ""),
	}
	if config.ArtifactBucket == "" {
		return nil, fmt.Errorf("ARTIFACT_BUCKET environment variable must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	artifacts, err := gcp.NewObjectStore(storageClient, config.ArtifactBucket)
	if err != nil {
		return nil, err
	}

	return &DistributorFunction{
		router: NewStorageRouter(artifacts, slog.Default()),
		config: config,
	}, nil
}

// Process executes one distribution action against the storage router.
func (f *DistributorFunction) Process(ctx context.Context, req *models.DistributeRequest) (*models.DistributeResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "action", req.Action, "executionId", req.ExecutionID)
	if req.ProcessedKey == "" {
		return nil, fmt.Errorf("processedKey is required")
	}

	switch req.Action {
	case ActionCopySent:
		key, err := f.router.CopyToSent(ctx, req.ProcessedKey)
		if err != nil {
			logCtx.Error("Copy to sent failed", "error", err)
			return nil, err
		}
		return &models.DistributeResponse{Status: "success", Key: key}, nil

	case ActionCopyCompany:
		if req.CompanyName == "" {
			return nil, fmt.Errorf("companyName is required for %s", ActionCopyCompany)
		}
		key, err := f.router.CopyToCompany(ctx, req.ProcessedKey, req.CompanyName)
		if err != nil {
			logCtx.Error("Copy to company folder failed", "error", err)
			return nil, err
		}
		return &models.DistributeResponse{Status: "success", Key: key}, nil

	case ActionReadSent:
		data, err := f.router.ReadSent(ctx, req.ProcessedKey)
		if err != nil {
			logCtx.Error("Read from sent folder failed", "error", err)
			return nil, err
		}
		return &models.DistributeResponse{
			Status:        "success",
			Key:           SentKey(req.ProcessedKey),
			ContentBase64: base64.StdEncoding.EncodeToString(data),
		}, nil

	case ActionReadCompany:
		if req.CompanyName == "" {
			return nil, fmt.Errorf("companyName is required for %s", ActionReadCompany)
		}
		data, err := f.router.ReadCompany(ctx, req.ProcessedKey, req.CompanyName)
		if err != nil {
			logCtx.Error("Read from company folder failed", "error", err)
			return nil, err
		}
		return &models.DistributeResponse{
			Status:        "success",
			Key:           CompanyKey(req.ProcessedKey, req.CompanyName),
			ContentBase64: base64.StdEncoding.EncodeToString(data),
		}, nil

	case ActionDelete:
		if err := f.router.DeleteFile(ctx, req.ProcessedKey); err != nil {
			logCtx.Error("Delete failed", "error", err)
			return nil, err
		}
		return &models.DistributeResponse{Status: "success", Key: req.ProcessedKey}, nil

	default:
		return nil, fmt.Errorf("unknown distribution action %q", req.Action)
	}
}
