package models

import "strings"

// PageImage is one page's payload ready to be sent to the recognition
// service. It lives only for the duration of a pipeline run.
type PageImage struct {
	PageIndex int
	Payload   []byte
	MIMEType  string
	SizeBytes int
}

// PageExtraction is the structured result of one page attempt. Immutable
// after creation.
type PageExtraction struct {
	PageIndex   int
	Title       string
	MainData    string
	ContactInfo string
	Succeeded   bool
}

// TotalChars reports the combined length of the parsed sections. A page with
// zero total characters counts as a non-success even when the call itself
// returned cleanly.
func (p PageExtraction) TotalChars() int {
	return len(p.Title) + len(p.MainData) + len(p.ContactInfo)
}

// AggregatedDocument is the document-level fold of all per-page extractions.
// Title comes from the first succeeded page; MainData fragments are joined
// with a blank line; ContactInfo fragments with " | ". If no page succeeded
// all three fields are empty.
type AggregatedDocument struct {
	Title          string `json:"title" firestore:"title"`
	MainData       string `json:"mainData" firestore:"mainData"`
	ContactInfo    string `json:"contactInfo" firestore:"contactInfo"`
	PagesAttempted int    `json:"pagesAttempted" firestore:"pagesAttempted"`
	PagesSucceeded int    `json:"pagesSucceeded" firestore:"pagesSucceeded"`
	PagesFailed    int    `json:"pagesFailed" firestore:"pagesFailed"`
}

// FlatText returns the aggregated sections as one flat string, the input for
// template metadata rules.
func (d AggregatedDocument) FlatText() string {
	var parts []string
	for _, s := range []string{d.Title, d.MainData, d.ContactInfo} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// PageRules holds per-page mutation rules of a template.
type PageRules struct {
	FooterText string `json:"footerText,omitempty" firestore:"footerText,omitempty"`
}

// TemplateRuleSet is an administrator-authored template, read-only during a
// run. MetadataRules maps field names to regex patterns whose first capture
// group is the field value. The cover-page block is accepted on input for
// backward compatibility and ignored.
type TemplateRuleSet struct {
	Name          string            `json:"name,omitempty" firestore:"name,omitempty"`
	MetadataRules map[string]string `json:"metadataRules,omitempty" firestore:"metadataRules,omitempty"`
	PageRules     *PageRules        `json:"pageRules,omitempty" firestore:"pageRules,omitempty"`
}

// ExtractedFieldSet maps template field names to their extracted values.
// A nil value means the pattern was invalid or did not match.
type ExtractedFieldSet map[string]*string
