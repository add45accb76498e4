package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/demo671/pdf-docflow/internal/models"
)

// maxFooterContactChars bounds the contact fragment stamped into the footer.
const maxFooterContactChars = 30

// templateRuleSchema accepts a rule set carrying at least one of
// metadataRules, pageRules or the deprecated coverPage block. The coverPage
// block passes validation but is ignored everywhere else; cover-page
// insertion is intentionally gone and must not come back.
const templateRuleSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"metadataRules": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"pageRules": {
			"type": "object",
			"properties": {"footerText": {"type": "string"}}
		},
		"coverPage": {"type": "object"}
	},
	"anyOf": [
		{"required": ["metadataRules"]},
		{"required": ["pageRules"]},
		{"required": ["coverPage"]}
	]
}`

var (
	ruleSchemaOnce sync.Once
	ruleSchema     *jsonschema.Schema
	ruleSchemaErr  error
)

func compiledRuleSchema() (*jsonschema.Schema, error) {
	ruleSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("template-rules.json", strings.NewReader(templateRuleSchema)); err != nil {
			ruleSchemaErr = fmt.Errorf("add rule schema: %w", err)
			return
		}
		ruleSchema, ruleSchemaErr = compiler.Compile("template-rules.json")
	})
	return ruleSchema, ruleSchemaErr
}

// ParseTemplateRules validates a rule set JSON document and decodes it. A
// document carrying none of the recognized blocks fails with
// ErrInvalidTemplate before it can be stored or used.
func ParseTemplateRules(data []byte) (models.TemplateRuleSet, error) {
	schema, err := compiledRuleSchema()
	if err != nil {
		return models.TemplateRuleSet{}, err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return models.TemplateRuleSet{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := schema.Validate(generic); err != nil {
		return models.TemplateRuleSet{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	var rules models.TemplateRuleSet
	if err := json.Unmarshal(data, &rules); err != nil {
		return models.TemplateRuleSet{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return rules, nil
}

// ExtractFields applies each metadata rule against the flat extracted text.
// Patterns compile case-insensitively and capture group 1. An invalid
// pattern or a miss yields nil for that field and never aborts the rest of
// the set.
func ExtractFields(text string, metadataRules map[string]string) models.ExtractedFieldSet {
	fields := make(models.ExtractedFieldSet, len(metadataRules))
	for name, pattern := range metadataRules {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			slog.Warn("Skipping invalid metadata rule.", "field", name, "error", err)
			fields[name] = nil
			continue
		}
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			fields[name] = nil
			continue
		}
		value := m[1]
		fields[name] = &value
	}
	return fields
}

// FooterContext carries the dynamic values stamped into every page footer.
type FooterContext struct {
	ProcessedAt time.Time
	UserID      string
	ContactInfo string
}

// BuildFooterText renders the one-line footer: processing timestamp,
// uploader identifier and, when present, the aggregated contact info capped
// at exactly maxFooterContactChars characters with no ellipsis.
func BuildFooterText(fc FooterContext) string {
	user := fc.UserID
	if user == "" {
		user = "unknown"
	}
	text := fmt.Sprintf("Processed %s by %s", fc.ProcessedAt.UTC().Format(time.RFC3339), user)
	if fc.ContactInfo != "" {
		contact := fc.ContactInfo
		// Character count, not bytes: cutting mid-rune would stamp invalid
		// UTF-8 into the page.
		if runes := []rune(contact); len(runes) > maxFooterContactChars {
			contact = string(runes[:maxFooterContactChars])
		}
		text += " " + contact
	}
	return text
}

// StampFooter writes one small right-anchored gray line onto every page of
// the document and returns the new buffer. Page count is preserved; the
// watermark mutates existing pages only.
func StampFooter(pdf []byte, footerText string) ([]byte, error) {
	desc := "fontname:Helvetica, points:8, scalefactor:1 abs, rotation:0, position:br, offset:-50 30, fillcolor:#808080"
	wm, err := api.TextWatermark(footerText, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build footer watermark: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(pdf), &out, nil, wm, conf); err != nil {
		return nil, fmt.Errorf("failed to stamp footer: %w", err)
	}
	return out.Bytes(), nil
}

// ApplyTemplate runs both template operations: metadata field extraction
// over the flat text and, when configured, the per-page footer stamp. The
// returned buffer is the input unchanged when the rule set has no page
// rules.
func ApplyTemplate(pdf []byte, rules models.TemplateRuleSet, flatText string, fc FooterContext) ([]byte, models.ExtractedFieldSet, error) {
	fields := ExtractFields(flatText, rules.MetadataRules)

	if rules.PageRules == nil || rules.PageRules.FooterText == "" {
		return pdf, fields, nil
	}

	stamped, err := StampFooter(pdf, BuildFooterText(fc))
	if err != nil {
		return nil, fields, err
	}
	return stamped, fields, nil
}
