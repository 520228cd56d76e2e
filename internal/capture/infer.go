package capture

import "strings"

// DetectContentType classifies the shape of an ingest payload.
func DetectContentType(p IngestPayload) ContentType {
	hasURL := p.URL != ""
	hasText := p.Text != ""
	hasImage := p.ImageBase64 != ""

	switch {
	case hasImage && (hasURL || hasText):
		return TypeMixed
	case hasImage:
		return TypeImage
	case hasURL && hasText:
		return TypeMixed
	case hasURL:
		return TypeURL
	default:
		return TypeText
	}
}

// InferCollection guesses the target collection from the payload.
// A project slug always wins; short text without a URL reads as a TIL.
func InferCollection(p IngestPayload) Collection {
	if p.Project != "" {
		return CollectionProjectUpdate
	}

	textLength := len(p.Text) + len(p.Comment)
	if textLength > 0 && textLength < 500 && p.URL == "" {
		return CollectionTIL
	}
	return CollectionNotes
}

// InferNoteType guesses the note type for notes-collection captures.
func InferNoteType(p IngestPayload) NoteType {
	if p.URL != "" {
		return NoteLink
	}

	textLength := len(p.Text) + len(p.Comment)
	if textLength < 300 {
		return NoteThought
	}
	if strings.Contains(p.Text, "```") {
		return NoteSnippet
	}
	return NoteThought
}
