package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/config"
	"github.com/tendfield/garden/internal/errors"
	"github.com/tendfield/garden/internal/publish"
	"github.com/tendfield/garden/internal/store"
)

// Publisher is the slice of the batch publisher the tools need.
type Publisher interface {
	BatchPublish(ctx context.Context, captures []*capture.Capture) (*publish.Result, error)
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store     *store.Store
	publisher Publisher
	cfg       *config.Config
}

// NewHandlers creates a new Handlers instance. publisher may be nil
// when git hosting is unconfigured; publish_all reports a config error.
func NewHandlers(st *store.Store, pub Publisher, cfg *config.Config) *Handlers {
	return &Handlers{store: st, publisher: pub, cfg: cfg}
}

// Request types for each tool

// IngestRequest represents the arguments for capture_ingest.
type IngestRequest struct {
	Source      string   `json:"source"`
	URL         string   `json:"url,omitempty"`
	Text        string   `json:"text,omitempty"`
	Comment     string   `json:"comment,omitempty"`
	ImageBase64 string   `json:"image_base64,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Project     string   `json:"project,omitempty"`
}

// ListRequest represents the arguments for capture_list.
type ListRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ApproveRequest represents the arguments for capture_approve.
type ApproveRequest struct {
	ID         string `json:"id"`
	UseRefined *bool  `json:"use_refined,omitempty"`
}

// RejectRequest represents the arguments for capture_reject.
type RejectRequest struct {
	ID string `json:"id"`
}

// Handler implementations

// HandleIngest handles the capture_ingest tool call.
func (h *Handlers) HandleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IngestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	payload := capture.IngestPayload{
		Source:      capture.Source(input.Source),
		URL:         input.URL,
		Text:        input.Text,
		Comment:     input.Comment,
		ImageBase64: input.ImageBase64,
		Tags:        input.Tags,
		Project:     input.Project,
	}

	if payload.Source == "" || !capture.ValidSource(payload.Source) {
		return errorResult(errors.NewInvalidRequest("invalid or missing source")), nil
	}
	if payload.URL == "" && payload.Text == "" && payload.ImageBase64 == "" {
		return errorResult(errors.NewInvalidRequest("must provide url, text, or image")), nil
	}
	if payload.URL != "" {
		if u, err := url.Parse(payload.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return errorResult(errors.NewInvalidRequest("invalid URL format")), nil
		}
	}

	collection := capture.InferCollection(payload)
	noteType := capture.NoteType("")
	if collection == capture.CollectionNotes {
		noteType = capture.InferNoteType(payload)
	}

	var images []capture.Image
	if payload.ImageBase64 != "" {
		images = []capture.Image{{Data: payload.ImageBase64}}
	}

	c, err := h.store.Create(ctx, store.CreateInput{
		Source:             payload.Source,
		Type:               capture.DetectContentType(payload),
		URL:                payload.URL,
		Text:               payload.Text,
		Comment:            payload.Comment,
		Images:             images,
		Tags:               payload.Tags,
		Project:            payload.Project,
		InferredCollection: collection,
		InferredNoteType:   noteType,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"id":         c.ID,
		"status":     c.Status,
		"collection": c.InferredCollection,
	})
}

// HandleList handles the capture_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	status := capture.Status(input.Status)
	if status == "" {
		status = capture.StatusPending
	}
	if !capture.ValidStatus(status) {
		return errorResult(errors.NewInvalidRequest(fmt.Sprintf("invalid status: %s", status))), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	captures, err := h.store.List(ctx, status, limit, offset)
	if err != nil {
		return errorResult(err), nil
	}
	total, err := h.store.Count(ctx, status)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"captures": captures,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"hasMore":  offset+len(captures) < total,
	})
}

// HandleApprove handles the capture_approve tool call.
func (h *Handlers) HandleApprove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ApproveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	useRefined := input.UseRefined == nil || *input.UseRefined
	c, err := h.store.Approve(ctx, input.ID, &useRefined)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"success": true,
		"status":  c.Status,
		"message": "queued for publishing",
	})
}

// HandleReject handles the capture_reject tool call.
func (h *Handlers) HandleReject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RejectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	c, err := h.store.Reject(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"success": true,
		"status":  c.Status,
	})
}

// HandlePublishAll handles the capture_publish_all tool call.
func (h *Handlers) HandlePublishAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.cfg.RequireGitHosting(); err != nil {
		return errorResult(err), nil
	}

	approved, err := h.store.Approved(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if len(approved) == 0 {
		return successResult(map[string]any{
			"success":   true,
			"message":   "no items to publish",
			"published": 0,
		})
	}

	result, err := h.publisher.BatchPublish(ctx, approved)
	if err != nil {
		return errorResult(err), nil
	}

	infos := make([]store.PublishedInfo, len(result.Items))
	for i, item := range result.Items {
		infos[i] = store.PublishedInfo{
			ID:         item.ID,
			Slug:       item.Slug,
			Collection: item.Collection,
		}
	}
	if err := h.store.MarkPublished(ctx, infos); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("published %d items in one commit", len(result.Items)),
		"published":    len(result.Items),
		"filesChanged": result.FilesChanged,
		"commit":       result.CommitSHA,
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if gErr, ok := err.(*errors.GardenError); ok {
		errorObj := map[string]any{
			"code":    gErr.Code,
			"message": gErr.Message,
			"status":  gErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or upstream responses
		if gErr.Code != errors.ErrInternal && gErr.Details != nil {
			errorObj["details"] = gErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
