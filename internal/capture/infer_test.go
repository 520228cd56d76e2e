package capture

import (
	"strings"
	"testing"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name    string
		payload IngestPayload
		want    ContentType
	}{
		{"url only", IngestPayload{URL: "https://example.com"}, TypeURL},
		{"text only", IngestPayload{Text: "a thought"}, TypeText},
		{"image only", IngestPayload{ImageBase64: "aGk="}, TypeImage},
		{"url and text", IngestPayload{URL: "https://example.com", Text: "notes"}, TypeMixed},
		{"image and text", IngestPayload{ImageBase64: "aGk=", Text: "caption"}, TypeMixed},
		{"image and url", IngestPayload{ImageBase64: "aGk=", URL: "https://example.com"}, TypeMixed},
		{"empty payload", IngestPayload{}, TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectContentType(tt.payload); got != tt.want {
				t.Errorf("DetectContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInferCollection(t *testing.T) {
	tests := []struct {
		name    string
		payload IngestPayload
		want    Collection
	}{
		{"project set", IngestPayload{Project: "garden", Text: "short"}, CollectionProjectUpdate},
		{"short text no url", IngestPayload{Text: "learned a thing today"}, CollectionTIL},
		{"short comment no url", IngestPayload{Comment: "quick insight"}, CollectionTIL},
		{"short text with url", IngestPayload{URL: "https://example.com", Text: "short"}, CollectionNotes},
		{"long text", IngestPayload{Text: strings.Repeat("a", 500)}, CollectionNotes},
		{"text at boundary 499", IngestPayload{Text: strings.Repeat("a", 499)}, CollectionTIL},
		{"no text", IngestPayload{URL: "https://example.com"}, CollectionNotes},
		{"empty", IngestPayload{}, CollectionNotes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferCollection(tt.payload); got != tt.want {
				t.Errorf("InferCollection() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInferNoteType(t *testing.T) {
	tests := []struct {
		name    string
		payload IngestPayload
		want    NoteType
	}{
		{"url wins", IngestPayload{URL: "https://example.com", Text: strings.Repeat("a", 400)}, NoteLink},
		{"short text", IngestPayload{Text: "hm"}, NoteThought},
		{"long text with code fence", IngestPayload{Text: strings.Repeat("a", 300) + "```go\n```"}, NoteSnippet},
		{"long text without code", IngestPayload{Text: strings.Repeat("a", 400)}, NoteThought},
		{"short text with code fence stays thought", IngestPayload{Text: "```\nx\n```"}, NoteThought},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferNoteType(tt.payload); got != tt.want {
				t.Errorf("InferNoteType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	if !ValidSource(SourceRaycast) || ValidSource("email") {
		t.Error("ValidSource misclassified")
	}
	if !ValidStatus(StatusPending) || ValidStatus("archived") {
		t.Error("ValidStatus misclassified")
	}
	if !ValidCollection(CollectionProjectUpdate) || ValidCollection("essays") {
		t.Error("ValidCollection misclassified")
	}
	if !ValidNoteType(NoteEssay) || ValidNoteType("poem") {
		t.Error("ValidNoteType misclassified")
	}
}
