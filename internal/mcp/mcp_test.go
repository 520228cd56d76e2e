package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/config"
	"github.com/tendfield/garden/internal/kv"
	"github.com/tendfield/garden/internal/publish"
	"github.com/tendfield/garden/internal/store"
)

// fakePublisher records the captures it is asked to publish and
// reports one item per capture.
type fakePublisher struct {
	published []*capture.Capture
	err       error
}

func (f *fakePublisher) BatchPublish(ctx context.Context, captures []*capture.Capture) (*publish.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.published = captures
	result := &publish.Result{
		CommitSHA:    "commit-sha",
		FilesChanged: len(captures),
	}
	for _, c := range captures {
		result.Items = append(result.Items, publish.ItemInfo{
			ID:         c.ID,
			Slug:       "slug-" + c.ID,
			Collection: c.InferredCollection,
		})
	}
	return result, nil
}

// testSetup creates a temporary store and config for testing.
func testSetup(t *testing.T) (*Handlers, *fakePublisher) {
	t.Helper()

	backend, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open kv store: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	cfg := &config.Config{
		GitToken:  "git-token",
		GitRepo:   "owner/content",
		GitBranch: "main",
	}

	pub := &fakePublisher{}
	return NewHandlers(store.New(backend), pub, cfg), pub
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultPayload decodes the JSON text content of a success result.
func resultPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()

	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("content is not TextContent")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal result payload: %v", err)
	}
	return payload
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	payload := resultPayload(t, result)
	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	if code, _ := errorObj["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", errorObj["code"], expectedCode)
	}
}

func ingestCapture(t *testing.T, h *Handlers, args map[string]any) string {
	t.Helper()

	result, err := h.HandleIngest(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("ingest failed: %v", resultPayload(t, result))
	}
	id, _ := resultPayload(t, result)["id"].(string)
	if id == "" {
		t.Fatal("ingest returned no id")
	}
	return id
}

func TestHandleIngest(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "ingest text note",
			args: map[string]any{
				"source": "api",
				"text":   "a quick thought",
			},
		},
		{
			name: "ingest url with tags",
			args: map[string]any{
				"source": "api",
				"url":    "https://example.com/article",
				"tags":   []string{"reading"},
			},
		},
		{
			name:      "missing source",
			args:      map[string]any{"text": "orphan"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "unknown source",
			args: map[string]any{
				"source": "carrier-pigeon",
				"text":   "hello",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "empty content",
			args:      map[string]any{"source": "api"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "malformed url",
			args: map[string]any{
				"source": "api",
				"url":    "not-a-url",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleIngest(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Error("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
				return
			}

			if result.IsError {
				t.Fatalf("expected success, got error: %v", resultPayload(t, result))
			}
			payload := resultPayload(t, result)
			if payload["status"] != "pending" {
				t.Errorf("status = %v, want pending", payload["status"])
			}
		})
	}
}

func TestHandleIngestInference(t *testing.T) {
	h, _ := testSetup(t)

	id := ingestCapture(t, h, map[string]any{
		"source":  "slack",
		"text":    "shipped the importer",
		"project": "garden",
	})

	c, err := h.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if c.InferredCollection != capture.CollectionProjectUpdate {
		t.Errorf("collection = %q, want project-update", c.InferredCollection)
	}
}

func TestHandleList(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ingestCapture(t, h, map[string]any{"source": "api", "text": "note"})
	}

	result, err := h.HandleList(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	payload := resultPayload(t, result)
	if payload["total"] != float64(3) {
		t.Errorf("total = %v, want 3", payload["total"])
	}
	if payload["hasMore"] != false {
		t.Errorf("hasMore = %v, want false", payload["hasMore"])
	}

	// Limit is clamped and pagination reports the remainder.
	result, err = h.HandleList(ctx, makeRequest(map[string]any{"limit": 500}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if got := resultPayload(t, result)["limit"]; got != float64(100) {
		t.Errorf("limit = %v, want 100", got)
	}

	result, err = h.HandleList(ctx, makeRequest(map[string]any{"status": "archived"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleApprove(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	id := ingestCapture(t, h, map[string]any{"source": "api", "text": "approve me"})

	result, err := h.HandleApprove(ctx, makeRequest(map[string]any{
		"id":          id,
		"use_refined": false,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	payload := resultPayload(t, result)
	if payload["status"] != "approved" {
		t.Errorf("status = %v, want approved", payload["status"])
	}

	c, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if c.PublishUseRefined == nil || *c.PublishUseRefined {
		t.Error("use_refined preference not recorded")
	}

	// Approving twice conflicts.
	result, _ = h.HandleApprove(ctx, makeRequest(map[string]any{"id": id}))
	assertErrorCode(t, result, "CONFLICT")

	result, _ = h.HandleApprove(ctx, makeRequest(map[string]any{"id": "missing"}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleApprove(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleReject(t *testing.T) {
	h, _ := testSetup(t)
	ctx := context.Background()

	id := ingestCapture(t, h, map[string]any{"source": "api", "text": "reject me"})

	result, err := h.HandleReject(ctx, makeRequest(map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if payload := resultPayload(t, result); payload["status"] != "rejected" {
		t.Errorf("status = %v, want rejected", payload["status"])
	}

	result, _ = h.HandleReject(ctx, makeRequest(map[string]any{"id": id}))
	assertErrorCode(t, result, "CONFLICT")
}

func TestHandlePublishAll(t *testing.T) {
	h, pub := testSetup(t)
	ctx := context.Background()

	// Empty queue publishes nothing.
	result, err := h.HandlePublishAll(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if payload := resultPayload(t, result); payload["published"] != float64(0) {
		t.Errorf("published = %v, want 0", payload["published"])
	}

	id := ingestCapture(t, h, map[string]any{"source": "api", "text": "publish me"})
	if _, err := h.store.Approve(ctx, id, nil); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}

	result, err = h.HandlePublishAll(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	payload := resultPayload(t, result)
	if payload["published"] != float64(1) {
		t.Errorf("published = %v, want 1", payload["published"])
	}
	if payload["commit"] != "commit-sha" {
		t.Errorf("commit = %v", payload["commit"])
	}
	if len(pub.published) != 1 {
		t.Fatalf("publisher saw %d captures, want 1", len(pub.published))
	}

	c, err := h.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if c.Status != capture.StatusPublished {
		t.Errorf("status = %q, want published", c.Status)
	}
}

func TestHandlePublishAllUnconfigured(t *testing.T) {
	h, _ := testSetup(t)
	h.cfg = &config.Config{}

	result, err := h.HandlePublishAll(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "CONFIG")
}

func TestServerRegistration(t *testing.T) {
	backend, err := kv.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open kv store: %v", err)
	}
	defer backend.Close()

	s := NewServer(store.New(backend), &fakePublisher{}, &config.Config{}, "test")
	if s == nil {
		t.Fatal("NewServer returned nil")
	}

	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	for _, want := range []string{"capture_ingest", "capture_list", "capture_approve", "capture_reject", "capture_publish_all"} {
		if _, ok := toolRegistry[want]; !ok {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestErrorResultInternalHidesDetails(t *testing.T) {
	result := errorResult(context.DeadlineExceeded)

	payload := map[string]any{}
	text := result.Content[0].(mcp.TextContent)
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	errorObj := payload["error"].(map[string]any)
	if errorObj["code"] != "INTERNAL" {
		t.Errorf("code = %v, want INTERNAL", errorObj["code"])
	}
	if _, ok := errorObj["details"]; ok {
		t.Error("internal error leaked details")
	}
}
