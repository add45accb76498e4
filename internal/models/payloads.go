package models

// These structs define the JSON payloads for HTTP requests and responses
// between the distribution Cloud Workflow and the distributor function.

// DistributeRequest asks the distributor to mirror a processed artifact into
// one of the downstream locations, or to serve it back.
type DistributeRequest struct {
	DocumentID   string `json:"documentId"`
	ProcessedKey string `json:"processedKey"`
	// Action is one of "copy_sent", "copy_company", "read_sent",
	// "read_company", "delete".
	Action      string `json:"action"`
	CompanyName string `json:"companyName,omitempty"`
	ExecutionID string `json:"executionId,omitempty"`
}

// DistributeResponse reports the outcome of a distribution action.
type DistributeResponse struct {
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
	// ContentBase64 carries the artifact bytes for read actions.
	ContentBase64 string `json:"contentBase64,omitempty"`
}
