// Package capture defines the domain types for the content capture system:
// raw captures from clients, refined AI output, and project activity entries.
package capture

// Source identifies which client produced a capture.
type Source string

const (
	SourceRaycast  Source = "raycast"
	SourceShortcut Source = "shortcut"
	SourceSlack    Source = "slack"
	SourceAPI      Source = "api"
)

// ContentType classifies the shape of a capture's content.
type ContentType string

const (
	TypeURL   ContentType = "url"
	TypeText  ContentType = "text"
	TypeImage ContentType = "image"
	TypeMixed ContentType = "mixed"
)

// Status is a capture's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// Collection identifies the target content collection.
type Collection string

const (
	CollectionTIL           Collection = "til"
	CollectionNotes         Collection = "notes"
	CollectionProjectUpdate Collection = "project-update"
)

// NoteType classifies entries in the notes collection.
type NoteType string

const (
	NoteLink    NoteType = "link"
	NoteThought NoteType = "thought"
	NoteEssay   NoteType = "essay"
	NoteSnippet NoteType = "snippet"
)

// ActivityType classifies project activity entries.
type ActivityType string

const (
	ActivityUpdate     ActivityType = "update"
	ActivityLearning   ActivityType = "learning"
	ActivityDiscovery  ActivityType = "discovery"
	ActivityMilestone  ActivityType = "milestone"
	ActivityExperiment ActivityType = "experiment"
	ActivityFix        ActivityType = "fix"
)

// Image is an attachment on a capture. Data carries base64 content on
// initial upload; URL is filled once the image is committed.
type Image struct {
	URL  string `json:"url"`
	Data string `json:"data,omitempty"`
}

// Refined is the AI-refined version of a capture.
type Refined struct {
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	Takeaway          string     `json:"takeaway,omitempty"`
	Description       string     `json:"description,omitempty"`
	SuggestedTags     []string   `json:"suggestedTags"`
	SuggestedType     Collection `json:"suggestedType"`
	SuggestedNoteType NoteType   `json:"suggestedNoteType,omitempty"`
	RefinedAt         string     `json:"refinedAt"`
}

// Capture is a raw capture as received from capture clients,
// carried through its whole lifecycle.
type Capture struct {
	ID        string      `json:"id"`
	CreatedAt string      `json:"createdAt"`
	Source    Source      `json:"source"`
	Type      ContentType `json:"type"`

	URL     string   `json:"url,omitempty"`
	Text    string   `json:"text,omitempty"`
	Comment string   `json:"comment,omitempty"`
	Images  []Image  `json:"images,omitempty"`
	Tags    []string `json:"tags,omitempty"`

	// Project slug, set for project updates.
	Project string `json:"project,omitempty"`

	Status Status `json:"status"`

	InferredCollection Collection `json:"inferredCollection"`
	InferredNoteType   NoteType   `json:"inferredNoteType,omitempty"`

	Refined *Refined `json:"refined,omitempty"`

	// Publishing preference, set when approved. Nil means use refined
	// content when available.
	PublishUseRefined *bool `json:"publishUseRefined,omitempty"`

	PublishedSlug       string     `json:"publishedSlug,omitempty"`
	PublishedCollection Collection `json:"publishedCollection,omitempty"`
}

// ActivityLink is a labeled link on a project activity entry.
type ActivityLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ActivityEntry is one entry in a project document's activity log.
type ActivityEntry struct {
	Date         string         `json:"date"`
	Title        string         `json:"title"`
	Summary      string         `json:"summary"`
	Tags         []string       `json:"tags"`
	Type         ActivityType   `json:"type"`
	Highlights   []string       `json:"highlights,omitempty"`
	Image        string         `json:"image,omitempty"`
	ImageAlt     string         `json:"imageAlt,omitempty"`
	ImageCaption string         `json:"imageCaption,omitempty"`
	ActionLabel  string         `json:"actionLabel,omitempty"`
	ActionURL    string         `json:"actionUrl,omitempty"`
	Code         string         `json:"code,omitempty"`
	CodeLanguage string         `json:"codeLanguage,omitempty"`
	Links        []ActivityLink `json:"links,omitempty"`
}

// IngestPayload is the input from capture clients.
type IngestPayload struct {
	URL         string   `json:"url,omitempty"`
	Text        string   `json:"text,omitempty"`
	Comment     string   `json:"comment,omitempty"`
	ImageBase64 string   `json:"imageBase64,omitempty"`
	Source      Source   `json:"source"`
	Tags        []string `json:"tags,omitempty"`
	Project     string   `json:"project,omitempty"`
}

// UpdatePayload carries the editable fields of a capture.
// Nil pointers mean "leave unchanged".
type UpdatePayload struct {
	Text               *string    `json:"text,omitempty"`
	Comment            *string    `json:"comment,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	InferredCollection Collection `json:"inferredCollection,omitempty"`
	InferredNoteType   NoteType   `json:"inferredNoteType,omitempty"`
	PublishUseRefined  *bool      `json:"publishUseRefined,omitempty"`
}

// ValidSource reports whether s is a known capture source.
func ValidSource(s Source) bool {
	switch s {
	case SourceRaycast, SourceShortcut, SourceSlack, SourceAPI:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// ValidCollection reports whether c is a known collection.
func ValidCollection(c Collection) bool {
	switch c {
	case CollectionTIL, CollectionNotes, CollectionProjectUpdate:
		return true
	}
	return false
}

// ValidNoteType reports whether n is a known note type.
func ValidNoteType(n NoteType) bool {
	switch n {
	case NoteLink, NoteThought, NoteEssay, NoteSnippet:
		return true
	}
	return false
}
