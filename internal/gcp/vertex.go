package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Extractor Model Prompts ---
const ExtractorSystemPrompt = "You are a professional OCR (Optical Character Recognition) assistant. Your task is to extract ALL visible text from a document page, even if it is unclear or low quality, and organize it into a fixed three-section format."
const ExtractorUserPrompt = `Extract ALL text you can see on this page, even if blurry or partially visible.

IMPORTANT INSTRUCTIONS:
- If text is unclear, make your best effort to read it
- Include numbers, dates, amounts, names, addresses
- Do NOT say the page is unclear - just extract what you can see
- If you cannot read specific words, use [?] for those words only
- Extract text in the order it appears (top to bottom, left to right)
- Include handwritten as well as printed text

Organize the extracted text into THREE sections:

1. TITLE: The main heading or title (usually the largest text at the top)
2. MAIN_DATA: All body content, data, descriptions, amounts, dates
   CRITICAL: NEVER include email addresses or phone numbers in this section
   CRITICAL: All email and phone MUST go to the CONTACT_INFO section ONLY
3. CONTACT_INFO: ONLY email addresses and phone numbers (nothing else, no labels)

Format your response EXACTLY like this:
===TITLE===
[extracted title text here]
===MAIN_DATA===
[extracted main content here]
===CONTACT_INFO===
[extracted contact information here]`

// Defaults for the extractor model. The token ceiling bounds the cost of a
// single page; temperature stays low for faithful transcription.
const (
	DefaultExtractorModel = "gemini-1.5-pro"
	extractorMaxTokens    = int32(4096)
	extractorTemperature  = float32(0.3)
)

// VertexClient holds the pre-configured generative model for page extraction.
type VertexClient struct {
	ExtractorModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a new client holding the extractor model. It
// validates its configuration eagerly so that missing credentials fail at
// process start rather than on the first page call.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultExtractorModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractorModel := baseClient.GenerativeModel(modelName)
	extractorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractorSystemPrompt)},
	}
	extractorModel.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: genai.Ptr[int32](extractorMaxTokens),
		Temperature:     genai.Ptr[float32](extractorTemperature),
	}
	extractorModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		ExtractorModel: extractorModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
