// Command docflow runs one pipeline pass against a local PDF for
// development: split, extract, aggregate and print the aggregated result.
// It talks to the real Vertex AI service but touches no storage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/demo671/pdf-docflow/internal/gcp"
	"github.com/demo671/pdf-docflow/internal/models"
	"github.com/demo671/pdf-docflow/internal/services"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var (
		pdfPath = flag.String("pdf", "", "path to the PDF to process")
		timeout = flag.Duration("call-timeout", services.DefaultCallTimeout, "per-page call timeout")
	)
	flag.Parse()
	if *pdfPath == "" {
		slog.Error("Missing required -pdf flag")
		os.Exit(2)
	}

	projectID := gcp.GetEnv("PROJECT_ID", "")
	region := gcp.GetEnv("VERTEX_AI_REGION", "us-central1")
	modelName := gcp.GetEnv("EXTRACTOR_MODEL", gcp.DefaultExtractorModel)

	pdf, err := os.ReadFile(*pdfPath)
	if err != nil {
		slog.Error("Failed to read PDF", "path", *pdfPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	vertexClient, err := gcp.NewVertexClient(ctx, projectID, region, modelName)
	if err != nil {
		slog.Error("Failed to create vertex client", "error", err)
		os.Exit(1)
	}
	defer vertexClient.Close()

	split, err := services.NewPageSplitter().Split(pdf)
	if err != nil {
		slog.Error("Failed to split PDF", "error", err)
		os.Exit(1)
	}
	if split.Truncated() {
		slog.Warn("Source truncated to page cap.",
			"totalPages", split.TotalPages, "processing", len(split.Pages))
	}

	images := make([]models.PageImage, 0, len(split.Pages))
	for i, page := range split.Pages {
		img, perr := services.PreparePageImage(i, page, services.PageMIMEType)
		if perr != nil {
			slog.Warn("Skipping oversized page.", "pageIndex", i, "error", perr)
			continue
		}
		images = append(images, img)
	}

	extractor := services.NewVertexExtractor(vertexClient, *timeout, slog.Default())
	aggregator := services.NewResultAggregator(extractor, slog.Default())

	start := time.Now()
	doc := aggregator.Aggregate(ctx, images)
	slog.Info("Run finished.",
		"elapsed", time.Since(start).String(),
		"attempted", doc.PagesAttempted,
		"succeeded", doc.PagesSucceeded,
		"failed", doc.PagesFailed,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(doc)
}
