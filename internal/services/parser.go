package services

import (
	"sort"
	"strings"
)

// Sentinel markers of the extraction response protocol.
const (
	MarkerTitle       = "===TITLE==="
	MarkerMainData    = "===MAIN_DATA==="
	MarkerContactInfo = "===CONTACT_INFO==="
)

// StructuredText holds the three protocol sections of one response,
// validated for structure only, never for content.
type StructuredText struct {
	Title       string
	MainData    string
	ContactInfo string
}

type markerHit struct {
	name  string
	start int
	end   int
}

// asciiUpper folds a-z to A-Z byte-wise and leaves everything else alone.
// Unlike strings.ToUpper it never changes byte lengths, so offsets found in
// the folded copy stay valid in the original text even when that text
// carries multi-byte runes.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// ParseStructuredResponse splits free text along the three sentinel markers.
// Each section is everything between its marker and the next marker (or end
// of text), trimmed. Markers are ASCII and matched case-insensitively. If no
// marker is present at all, the whole text lands in MainData untouched -
// upstream output is inherently free-form and an unstructured reply is lossy
// fallback, not an error. Pure and deterministic.
func ParseStructuredResponse(text string) StructuredText {
	upper := asciiUpper(text)

	var hits []markerHit
	for _, m := range []string{MarkerTitle, MarkerMainData, MarkerContactInfo} {
		if i := strings.Index(upper, m); i >= 0 {
			hits = append(hits, markerHit{name: m, start: i, end: i + len(m)})
		}
	}

	if len(hits) == 0 {
		return StructuredText{MainData: text}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var out StructuredText
	for i, h := range hits {
		sectionEnd := len(text)
		if i+1 < len(hits) {
			sectionEnd = hits[i+1].start
		}
		content := strings.TrimSpace(text[h.end:sectionEnd])
		switch h.name {
		case MarkerTitle:
			out.Title = content
		case MarkerMainData:
			out.MainData = content
		case MarkerContactInfo:
			out.ContactInfo = content
		}
	}
	return out
}
