package services

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestBuildFooterText(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("full footer", func(t *testing.T) {
		got := BuildFooterText(FooterContext{
			ProcessedAt: at,
			UserID:      "user@example.com",
			ContactInfo: "Tel: 555-0100",
		})
		want := "Processed 2025-03-14T09:26:53Z by user@example.com Tel: 555-0100"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("contact truncated to thirty characters", func(t *testing.T) {
		contact := strings.Repeat("x", 45)
		got := BuildFooterText(FooterContext{ProcessedAt: at, UserID: "u", ContactInfo: contact})
		want := "Processed 2025-03-14T09:26:53Z by u " + strings.Repeat("x", 30)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
		if strings.Contains(got, "...") {
			t.Errorf("truncation must not add an ellipsis: %q", got)
		}
	})

	t.Run("multi-byte contact truncated by rune count", func(t *testing.T) {
		contact := strings.Repeat("é", 40)
		got := BuildFooterText(FooterContext{ProcessedAt: at, UserID: "u", ContactInfo: contact})
		want := "Processed 2025-03-14T09:26:53Z by u " + strings.Repeat("é", 30)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("footer is not valid UTF-8: %q", got)
		}
	})

	t.Run("short contact kept verbatim", func(t *testing.T) {
		got := BuildFooterText(FooterContext{ProcessedAt: at, UserID: "u", ContactInfo: "a@b.c"})
		if !strings.HasSuffix(got, " a@b.c") {
			t.Errorf("got %q, want verbatim contact suffix", got)
		}
	})

	t.Run("missing user defaults to unknown", func(t *testing.T) {
		got := BuildFooterText(FooterContext{ProcessedAt: at})
		want := "Processed 2025-03-14T09:26:53Z by unknown"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestExtractFields(t *testing.T) {
	text := "Invoice No: INV-2042\nTotal Due: 1,280.00 EUR\nCustomer: Acme Corp"

	rules := map[string]string{
		"invoiceNumber": `invoice no:\s*(\S+)`,
		"total":         `total due:\s*([\d,.]+)`,
		"missing":       `purchase order:\s*(\S+)`,
		"broken":        `([unclosed`,
	}

	fields := ExtractFields(text, rules)

	if got := fields["invoiceNumber"]; got == nil || *got != "INV-2042" {
		t.Errorf("invoiceNumber = %v, want INV-2042", got)
	}
	if got := fields["total"]; got == nil || *got != "1,280.00" {
		t.Errorf("total = %v, want 1,280.00", got)
	}
	if got, ok := fields["missing"]; !ok || got != nil {
		t.Errorf("missing rule must be present with nil value, got %v (present %v)", got, ok)
	}
	if got, ok := fields["broken"]; !ok || got != nil {
		t.Errorf("invalid pattern must yield nil, not abort, got %v (present %v)", got, ok)
	}
}

func TestExtractFieldsCaseInsensitive(t *testing.T) {
	fields := ExtractFields("REFERENCE: ab-99", map[string]string{"ref": `reference:\s*(\S+)`})
	if got := fields["ref"]; got == nil || *got != "ab-99" {
		t.Errorf("ref = %v, want ab-99", got)
	}
}

func TestParseTemplateRules(t *testing.T) {
	t.Run("valid with both blocks", func(t *testing.T) {
		rules, err := ParseTemplateRules([]byte(`{
			"name": "invoices",
			"metadataRules": {"invoiceNumber": "invoice no:\\s*(\\S+)"},
			"pageRules": {"footerText": "stamp"}
		}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rules.Name != "invoices" {
			t.Errorf("Name = %q", rules.Name)
		}
		if rules.PageRules == nil || rules.PageRules.FooterText != "stamp" {
			t.Errorf("PageRules = %+v", rules.PageRules)
		}
		if rules.MetadataRules["invoiceNumber"] == "" {
			t.Errorf("metadata rule missing: %+v", rules.MetadataRules)
		}
	})

	t.Run("empty object rejected", func(t *testing.T) {
		_, err := ParseTemplateRules([]byte(`{"name": "bare"}`))
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("err = %v, want ErrInvalidTemplate", err)
		}
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		_, err := ParseTemplateRules([]byte(`{not json`))
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("err = %v, want ErrInvalidTemplate", err)
		}
	})

	t.Run("deprecated coverPage block still validates", func(t *testing.T) {
		rules, err := ParseTemplateRules([]byte(`{"coverPage": {"title": "legacy"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rules.PageRules != nil || len(rules.MetadataRules) != 0 {
			t.Errorf("coverPage-only set must decode empty, got %+v", rules)
		}
	})
}

func TestApplyTemplateWithoutPageRules(t *testing.T) {
	pdf := []byte("%PDF-1.7 untouched")
	rules, err := ParseTemplateRules([]byte(`{"metadataRules": {"ref": "ref:\\s*(\\S+)"}}`))
	if err != nil {
		t.Fatalf("ParseTemplateRules: %v", err)
	}

	out, fields, err := ApplyTemplate(pdf, rules, "ref: A1", FooterContext{ProcessedAt: time.Now()})
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}
	if &out[0] != &pdf[0] {
		t.Errorf("buffer must be returned unchanged when no page rules apply")
	}
	if got := fields["ref"]; got == nil || *got != "A1" {
		t.Errorf("ref = %v, want A1", got)
	}
}
