package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/demo671/pdf-docflow/internal/models"
	"github.com/demo671/pdf-docflow/internal/services"
)

var (
	distributorInstance *services.DistributorFunction
	once                sync.Once
	initErr             error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function; invoked by the distribution workflow.
	functions.HTTP("HandleDistribute", handleDistribute)
}

// main is required by the Go Functions Framework.
func main() {}

func handleDistribute(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		distributorInstance, initErr = services.NewDistributor(context.Background())
	})
	if initErr != nil {
		slog.Error("Distributor initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := distributorInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside Process.
		http.Error(w, "Internal Server Error: distribution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
