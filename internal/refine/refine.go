// Package refine turns raw captures into publication-ready suggestions via
// an OpenAI-compatible chat-completions endpoint with structured output.
// Refinement is always best-effort: callers treat any failure as "no
// refinement" and fall back to the raw capture.
package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/config"
)

// Gateway sends refinement requests to the configured AI provider.
type Gateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New builds a Gateway from config. Returns nil when no provider is
// configured; a nil Gateway is safe to call and always declines.
func New(cfg *config.Config) *Gateway {
	if !cfg.AIConfigured() {
		return nil
	}
	return &Gateway{
		baseURL: strings.TrimRight(cfg.AIBaseURL, "/"),
		apiKey:  cfg.AIAPIKey,
		model:   cfg.AIModel,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Configured reports whether the gateway can make requests.
func (g *Gateway) Configured() bool {
	return g != nil
}

const refinementPrompt = `You are a minimal content editor. Your job is to PRESERVE the user's original message while only fixing grammar and spelling.

CRITICAL RULES:
- DO NOT add information the user didn't provide
- DO NOT remove information the user provided
- DO NOT change the meaning or tone
- DO NOT over-format with headers/lists unless the original clearly needs it
- DO NOT editorialize or add your own commentary
- ONLY fix grammar, spelling, and basic punctuation
- Keep the body SHORT - match the length of the original content

Content classification (pick the MOST appropriate):
- TIL: Short learnings or tips the user discovered (< 200 words, no URL focus)
- Notes (link): URL + substantial user commentary/analysis about it
- Notes (thought): Personal reflections, opinions (no URL)
- Notes (essay): Longer structured pieces (> 300 words)
- Notes (snippet): Code-focused content
- Project Update: ONLY if a project is explicitly specified

For Notes/TIL:
- title: Capture the essence in < 60 chars
- body: User's content with grammar fixes only
- takeaway: One sentence key insight

Raw capture:
{capture}

URL (if provided): {url}
User's comment (if provided): {comment}
Project (if specified): {project}`

func buildPrompt(c *capture.Capture) string {
	orNone := func(s string) string {
		if s == "" {
			return "None"
		}
		return s
	}
	p := strings.Replace(refinementPrompt, "{capture}", c.Text, 1)
	p = strings.Replace(p, "{url}", orNone(c.URL), 1)
	p = strings.Replace(p, "{comment}", orNone(c.Comment), 1)
	p = strings.Replace(p, "{project}", orNone(c.Project), 1)
	return p
}

// refinementSchema constrains the model's structured output.
func refinementSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "description": "Concise title under 60 characters"},
			"body":        map[string]any{"type": "string", "description": "Clean markdown body - preserve original meaning, only fix grammar"},
			"takeaway":    map[string]any{"type": "string", "description": "One-sentence summary of the key insight"},
			"description": map[string]any{"type": "string", "description": "1-2 sentence description, for shared resources"},
			"suggestedTags": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"minItems":    2,
				"maxItems":    4,
				"description": "2-4 relevant topic tags",
			},
			"suggestedType": map[string]any{
				"type":        "string",
				"enum":        []string{"til", "notes", "project-update"},
				"description": "Which collection this belongs to",
			},
			"suggestedNoteType": map[string]any{
				"type":        "string",
				"enum":        []string{"link", "thought", "essay", "snippet"},
				"description": "For notes collection, the type of note",
			},
		},
		"required": []string{"title", "body", "suggestedTags", "suggestedType"},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type refinementOutput struct {
	Title             string   `json:"title"`
	Body              string   `json:"body"`
	Takeaway          string   `json:"takeaway"`
	Description       string   `json:"description"`
	SuggestedTags     []string `json:"suggestedTags"`
	SuggestedType     string   `json:"suggestedType"`
	SuggestedNoteType string   `json:"suggestedNoteType"`
}

// Refine asks the provider for a structured refinement of the capture.
// RefinedAt is left for the store to stamp on persist.
func (g *Gateway) Refine(ctx context.Context, c *capture.Capture) (*capture.Refined, error) {
	if g == nil {
		return nil, errors.New("refinement not configured")
	}

	payload := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(c)},
		},
		Temperature: 0.2,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "refinement",
				Strict: true,
				Schema: refinementSchema(),
			},
		},
	}
	blob, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := g.baseURL + "/v1/chat/completions"
	if strings.Contains(g.baseURL, "/v1") {
		endpoint = g.baseURL + "/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("refinement http error: %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("empty refinement response")
	}

	var out refinementOutput
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("malformed structured response: %w", err)
	}
	if out.Title == "" {
		return nil, errors.New("structured response missing title")
	}
	if !capture.ValidCollection(capture.Collection(out.SuggestedType)) {
		return nil, fmt.Errorf("structured response has invalid collection %q", out.SuggestedType)
	}
	if out.SuggestedNoteType != "" && !capture.ValidNoteType(capture.NoteType(out.SuggestedNoteType)) {
		return nil, fmt.Errorf("structured response has invalid note type %q", out.SuggestedNoteType)
	}

	return &capture.Refined{
		Title:             out.Title,
		Body:              out.Body,
		Takeaway:          out.Takeaway,
		Description:       out.Description,
		SuggestedTags:     out.SuggestedTags,
		SuggestedType:     capture.Collection(out.SuggestedType),
		SuggestedNoteType: capture.NoteType(out.SuggestedNoteType),
	}, nil
}

// FallbackTitle derives a deterministic title from a capture's raw
// content, used whenever refinement is unavailable or not requested.
func FallbackTitle(c *capture.Capture) string {
	if c.Comment != "" {
		return truncate(firstSentence(c.Comment), 60)
	}
	if c.Text != "" {
		return truncate(firstSentence(c.Text), 60)
	}
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Hostname() == "" {
			return "Captured link"
		}
		return "Link: " + u.Hostname()
	}
	return "Untitled capture"
}

// firstSentence returns text up to and including the first sentence
// terminator, or the whole text when none exists.
func firstSentence(text string) string {
	for i, r := range text {
		switch r {
		case '.', '!', '?':
			return text[:i+1]
		}
	}
	return text
}

func truncate(text string, maxLength int) string {
	if len(text) <= maxLength {
		return strings.TrimSpace(text)
	}
	cut := text[:maxLength-1]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut) + "..."
}
