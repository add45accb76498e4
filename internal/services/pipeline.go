package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"golang.org/x/sync/errgroup"

	"github.com/demo671/pdf-docflow/internal/gcp"
	"github.com/demo671/pdf-docflow/internal/models"
)

// PipelineConfig holds all configuration for the document processor.
type PipelineConfig struct {
	ProjectID          string
	ArtifactBucket     string
	PagesBucket        string
	CollectionName     string
	TemplateCollection string
	VertexRegion       string
	ExtractorModel     string
	CallTimeout        time.Duration
	WorkflowID         string
	WorkflowLocation   string
}

// DocumentProcessor wires the whole run together: split, archive, extract,
// aggregate, template, store, hand off.
type DocumentProcessor struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	vertexClient     *gcp.VertexClient
	splitter         *PageSplitter
	aggregator       *ResultAggregator
	router           *StorageRouter
	rules            *RuleStore
	config           PipelineConfig
}

// GCSEvent is the payload of a GCS object-finalize event. Uploader identity
// and the template reference travel as object metadata because request
// authentication lives outside this service.
type GCSEvent struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewDocumentProcessor reads configuration from the environment and builds
// all clients eagerly, so a misconfigured deployment fails at init rather
// than on the first page call.
func NewDocumentProcessor(ctx context.Context) (*DocumentProcessor, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := PipelineConfig{
		ProjectID:          projectID,
		ArtifactBucket:     gcp.GetEnv("ARTIFACT_BUCKET", ""),
		PagesBucket:        gcp.GetEnv("SPLIT_PAGES_BUCKET", ""),
		CollectionName:     gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		TemplateCollection: gcp.GetEnv("TEMPLATE_COLLECTION", "templateRuleSets"),
		VertexRegion:       gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ExtractorModel:     gcp.GetEnv("EXTRACTOR_MODEL", gcp.DefaultExtractorModel),
		CallTimeout:        DefaultCallTimeout,
		WorkflowLocation:   gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:         gcp.GetEnv("WORKFLOW_ID", ""),
	}
	if config.ArtifactBucket == "" {
		return nil, fmt.Errorf("ARTIFACT_BUCKET environment variable must be set")
	}
	if config.PagesBucket == "" {
		return nil, fmt.Errorf("SPLIT_PAGES_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexRegion, config.ExtractorModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	var executionsClient *executions.Client
	if config.WorkflowID != "" {
		executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create workflows executions client: %w", err)
		}
	}

	artifacts, err := gcp.NewObjectStore(storageClient, config.ArtifactBucket)
	if err != nil {
		return nil, err
	}

	extractor := NewVertexExtractor(vertexClient, config.CallTimeout, slog.Default())

	p := &DocumentProcessor{
		storageClient:    storageClient,
		firestoreClient:  firestoreClient,
		executionsClient: executionsClient,
		vertexClient:     vertexClient,
		splitter:         NewPageSplitter(),
		aggregator:       NewResultAggregator(extractor, slog.Default()),
		router:           NewStorageRouter(artifacts, slog.Default()),
		rules:            NewRuleStore(firestoreClient, config.TemplateCollection),
		config:           config,
	}
	slog.Info("Document processor initialized.",
		"artifactBucket", config.ArtifactBucket, "model", config.ExtractorModel)
	return p, nil
}

// Process runs the full pipeline for one uploaded PDF.
func (p *DocumentProcessor) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new upload.")

	pdf, err := p.readGCSObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := hashBytes(pdf)
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, existingID, err := p.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existingID)
		return nil
	}

	uploadedBy := e.Metadata["uploadedBy"]
	if uploadedBy == "" {
		uploadedBy = "unknown"
	}
	templateID := e.Metadata["templateId"]

	docRef, err := p.createInitialDocument(ctx, fileHash, e.Name, uploadedBy, templateID)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created master document in Firestore.")

	originalKey, err := p.router.WriteOriginal(ctx, pdf)
	if err != nil {
		return p.handleError(ctx, logCtx, docRef, "failed to store original", err)
	}

	split, err := p.splitter.Split(pdf)
	if err != nil {
		if errors.Is(err, ErrMalformedDocument) {
			return p.handleError(ctx, logCtx, docRef, "input is not a parseable PDF", err)
		}
		return p.handleError(ctx, logCtx, docRef, "failed to split PDF", err)
	}
	if split.Truncated() {
		logCtx.Warn("Source has more pages than the cap, truncating.",
			"totalPages", split.TotalPages, "processing", len(split.Pages))
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusSplitting},
		{Path: "pageCount", Value: split.TotalPages},
		{Path: "pagesProcessed", Value: len(split.Pages)},
		{Path: "originalKey", Value: originalKey},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return p.handleError(ctx, logCtx, docRef, "failed to update status to SPLITTING", err)
	}

	if err := p.archivePages(ctx, logCtx, docRef.ID, split.Pages); err != nil {
		return p.handleError(ctx, logCtx, docRef, "one or more pages failed to archive", err)
	}

	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "status", Value: models.StatusExtracting}}); err != nil {
		return p.handleError(ctx, logCtx, docRef, "failed to update status to EXTRACTING", err)
	}

	images := p.preparePages(logCtx, split.Pages)
	agg := p.aggregator.Aggregate(ctx, images)
	if agg.PagesSucceeded == 0 {
		// Valid outcome: extraction yielded nothing. The run still
		// completes; the per-page causes are in the logs.
		logCtx.Warn("No page produced extractable text.", "attempted", agg.PagesAttempted)
	}

	finalPdf := pdf
	var fields models.ExtractedFieldSet
	if templateID != "" {
		rules, rerr := p.rules.Load(ctx, templateID)
		if rerr != nil {
			return p.handleError(ctx, logCtx, docRef, "failed to load template rules", rerr)
		}
		fc := FooterContext{ProcessedAt: time.Now(), UserID: uploadedBy, ContactInfo: agg.ContactInfo}
		finalPdf, fields, err = ApplyTemplate(pdf, rules, agg.FlatText(), fc)
		if err != nil {
			return p.handleError(ctx, logCtx, docRef, "failed to apply template", err)
		}
	}

	processedKey, err := p.router.WriteProcessed(ctx, finalPdf, uploadedBy)
	if err != nil {
		return p.handleError(ctx, logCtx, docRef, "failed to store processed artifact", err)
	}

	updates = []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "pagesSucceeded", Value: agg.PagesSucceeded},
		{Path: "pagesFailed", Value: agg.PagesFailed},
		{Path: "processedKey", Value: processedKey},
	}
	if len(fields) > 0 {
		updates = append(updates, firestore.Update{Path: "extractedFields", Value: fields})
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return p.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}

	if err := p.triggerDistribution(ctx, logCtx, docRef.ID, processedKey, agg); err != nil {
		return err
	}

	logCtx.Info("Pipeline run complete.",
		"processedKey", processedKey,
		"pagesSucceeded", agg.PagesSucceeded,
		"pagesFailed", agg.PagesFailed,
	)
	return nil
}

// preparePages wraps split pages as PageImages. Oversized pages are skipped
// here, before any network call, and logged; the run carries on with the
// rest.
func (p *DocumentProcessor) preparePages(logCtx *slog.Logger, pages [][]byte) []models.PageImage {
	images := make([]models.PageImage, 0, len(pages))
	for i, page := range pages {
		img, err := PreparePageImage(i, page, PageMIMEType)
		if err != nil {
			logCtx.Warn("Skipping oversized page.", "pageIndex", i, "error", err)
			continue
		}
		images = append(images, img)
	}
	return images
}

// archivePages uploads the split pages concurrently. The archive is the
// durable record of what the extraction loop saw; uploads are atomic so
// re-delivered events cannot clobber it.
func (p *DocumentProcessor) archivePages(ctx context.Context, logCtx *slog.Logger, docID string, pages [][]byte) error {
	logCtx.Info("Archiving split pages.", "pageCount", len(pages))
	bucket := p.storageClient.Bucket(p.config.PagesBucket)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)
	for i, page := range pages {
		objectName := fmt.Sprintf("%s/%05d.pdf", docID, i+1)
		data := page
		eg.Go(func() error {
			if err := gcp.SaveToGCSAtomically(gctx, bucket, objectName, pdfContentType, data); err != nil {
				return fmt.Errorf("page %s: %w", objectName, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logCtx.Info("All pages archived.")
	return nil
}

// triggerDistribution hands the processed artifact off to the distribution
// workflow, when one is configured.
func (p *DocumentProcessor) triggerDistribution(ctx context.Context, logCtx *slog.Logger, docID, processedKey string, agg models.AggregatedDocument) error {
	if p.executionsClient == nil {
		return nil
	}
	logCtx.Info("Triggering distribution workflow.")
	payload := map[string]interface{}{
		"documentId":     docID,
		"processedKey":   processedKey,
		"pagesSucceeded": agg.PagesSucceeded,
		"pagesFailed":    agg.PagesFailed,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s",
			p.config.ProjectID, p.config.WorkflowLocation, p.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := p.executionsClient.CreateExecution(ctx, req); err != nil {
		logCtx.Error("Failed to trigger distribution workflow", "error", err)
		return fmt.Errorf("failed to trigger distribution workflow: %w", err)
	}
	return nil
}

func (p *DocumentProcessor) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := p.firestoreClient.Collection(p.config.CollectionName).
		Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (p *DocumentProcessor) createInitialDocument(ctx context.Context, fileHash, filename, uploadedBy, templateID string) (*firestore.DocumentRef, error) {
	newDoc := models.Document{
		FileHash:         fileHash,
		OriginalFilename: filename,
		UploadedBy:       uploadedBy,
		TemplateID:       templateID,
		Status:           models.StatusValidating,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := p.firestoreClient.Collection(p.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create master document: %w", err)
	}
	return docRef, nil
}

func (p *DocumentProcessor) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := p.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (p *DocumentProcessor) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (p *DocumentProcessor) readGCSObject(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := p.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func hashBytes(data []byte) string {
	hash := sha256.New()
	hash.Write(data)
	return hex.EncodeToString(hash.Sum(nil))
}
