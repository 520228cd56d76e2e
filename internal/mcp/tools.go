package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var ingestToolDef = mcp.NewTool("capture_ingest",
	mcp.WithDescription("Capture a link, note, or image into the pending review queue. The collection (notes, til, projects) is inferred from the payload."),
	mcp.WithString("source",
		mcp.Required(),
		mcp.Description("Where the capture came from: raycast, shortcut, slack, or api"),
	),
	mcp.WithString("url",
		mcp.Description("URL being captured, if any"),
	),
	mcp.WithString("text",
		mcp.Description("Free-form text content"),
	),
	mcp.WithString("comment",
		mcp.Description("Commentary to attach alongside the main content"),
	),
	mcp.WithString("image_base64",
		mcp.Description("Base64-encoded image data"),
	),
	mcp.WithArray("tags",
		mcp.Description("Tags to attach to the capture"),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithString("project",
		mcp.Description("Project slug; forces the capture into the projects collection"),
	),
)

var listToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List captures by lifecycle status, newest first."),
	mcp.WithString("status",
		mcp.Description("Lifecycle status to list: pending (default), approved, published, or rejected"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum captures to return (default 50, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Pagination offset"),
	),
)

var approveToolDef = mcp.NewTool("capture_approve",
	mcp.WithDescription("Approve a pending capture, queuing it for the next publish run."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Capture ID"),
	),
	mcp.WithBoolean("use_refined",
		mcp.Description("Publish the AI-refined content when available (default true)"),
	),
)

var rejectToolDef = mcp.NewTool("capture_reject",
	mcp.WithDescription("Reject a pending capture. Rejected captures can later be restored."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Capture ID"),
	),
)

var publishAllToolDef = mcp.NewTool("capture_publish_all",
	mcp.WithDescription("Publish every approved capture to the content repository in a single commit."),
)
