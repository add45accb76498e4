package services

import "testing"

func TestParseStructuredResponse(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		title       string
		mainData    string
		contactInfo string
	}{
		{
			name: "all three sections",
			text: "===TITLE===\nInvoice 42\n===MAIN_DATA===\nAmount due: 100 EUR\nDue date: 2026-01-01\n===CONTACT_INFO===\nbilling@example.com +34 600 000 000",
			title:       "Invoice 42",
			mainData:    "Amount due: 100 EUR\nDue date: 2026-01-01",
			contactInfo: "billing@example.com +34 600 000 000",
		},
		{
			name:     "no markers falls back to main data verbatim",
			text:     "  just some raw text\nwith lines  ",
			mainData: "  just some raw text\nwith lines  ",
		},
		{
			name:     "markers matched case-insensitively",
			text:     "===title===\nHeading\n===main_data===\nBody",
			title:    "Heading",
			mainData: "Body",
		},
		{
			name:        "missing middle section",
			text:        "===TITLE===\nHeading\n===CONTACT_INFO===\na@b.c",
			title:       "Heading",
			contactInfo: "a@b.c",
		},
		{
			name:     "only main data marker",
			text:     "preamble ===MAIN_DATA=== body text",
			mainData: "body text",
		},
		{
			name: "empty input",
			text: "",
		},
		{
			name:  "trailing section runs to end of text",
			text:  "===TITLE===Heading only",
			title: "Heading only",
		},
		{
			name:        "multi-byte runes inside sections",
			text:        "===TITLE===\nFaktúra č. 42\n===MAIN_DATA===\nSplatné: 100 €\n===CONTACT_INFO===\nučtáreň@example.sk",
			title:       "Faktúra č. 42",
			mainData:    "Splatné: 100 €",
			contactInfo: "učtáreň@example.sk",
		},
		{
			// ȿ uppercases to a longer byte sequence; marker offsets must
			// still land on the original text.
			name:  "length-changing runes before a marker",
			text:  "ȿȿȿȿȿȿȿȿȿȿ===TITLE===Heading",
			title: "Heading",
		},
		{
			// ı uppercases to a shorter byte sequence.
			name:  "length-shrinking runes before a marker",
			text:  "ıııııııııı===TITLE===Heading",
			title: "Heading",
		},
		{
			name:     "non-ascii text without markers falls back verbatim",
			text:     "žiadne značky – iba voľný text",
			mainData: "žiadne značky – iba voľný text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseStructuredResponse(tt.text)
			if got.Title != tt.title {
				t.Errorf("Title = %q, want %q", got.Title, tt.title)
			}
			if got.MainData != tt.mainData {
				t.Errorf("MainData = %q, want %q", got.MainData, tt.mainData)
			}
			if got.ContactInfo != tt.contactInfo {
				t.Errorf("ContactInfo = %q, want %q", got.ContactInfo, tt.contactInfo)
			}
		})
	}
}

func TestParseStructuredResponseDeterministic(t *testing.T) {
	texts := []string{
		"===TITLE===\nA\n===MAIN_DATA===\nB\n===CONTACT_INFO===\nC",
		"free text without any structure",
		"",
		"===CONTACT_INFO=== out of order ===TITLE=== later",
		"ȿıČž===TITLE===ünïcödé héading===MAIN_DATA===tëxt",
	}
	for _, text := range texts {
		first := ParseStructuredResponse(text)
		second := ParseStructuredResponse(text)
		if first != second {
			t.Errorf("parser not deterministic for %q: %+v vs %+v", text, first, second)
		}
	}
}
