// Package githost is a minimal client for the git hosting API used to
// commit content: refs, commits, blobs, trees, and the single-file
// contents endpoint. The multi-file commit protocol lives in the batch
// publisher; this package only speaks HTTP.
package githost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tendfield/garden/internal/config"
)

// Client talks to a GitHub-shaped hosting API for one repository/branch.
type Client struct {
	apiURL     string
	token      string
	repo       string // "owner/name"
	branch     string
	httpClient *http.Client
}

// New creates a hosting client from config.
func New(cfg *config.Config) *Client {
	return &Client{
		apiURL: cfg.GitAPIURL,
		token:  cfg.GitToken,
		repo:   cfg.GitRepo,
		branch: cfg.GitBranch,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Branch returns the branch this client commits to.
func (c *Client) Branch() string {
	return c.branch
}

// TreeEntry is one file reference in a tree creation request.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// FileContent is the decoded result of the contents endpoint.
type FileContent struct {
	Path    string
	SHA     string
	Content string
}

// Ref returns the SHA of the branch's head commit.
func (c *Client) Ref(ctx context.Context) (string, error) {
	var resp struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/git/ref/heads/%s", c.repo, c.branch)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("get ref: %w", err)
	}
	return resp.Object.SHA, nil
}

// CommitTree returns the tree SHA of the given commit.
func (c *Client) CommitTree(ctx context.Context, commitSHA string) (string, error) {
	var resp struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}
	path := fmt.Sprintf("/repos/%s/git/commits/%s", c.repo, commitSHA)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("get commit: %w", err)
	}
	return resp.Tree.SHA, nil
}

// CreateBlob stores file content and returns the blob SHA. Encoding is
// "utf-8" for text or "base64" for binary payloads.
func (c *Client) CreateBlob(ctx context.Context, content, encoding string) (string, error) {
	body := map[string]string{
		"content":  content,
		"encoding": encoding,
	}
	var resp struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/git/blobs", c.repo)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	return resp.SHA, nil
}

// CreateTree creates a tree on top of baseTree with the given entries.
func (c *Client) CreateTree(ctx context.Context, baseTree string, entries []TreeEntry) (string, error) {
	body := map[string]any{
		"base_tree": baseTree,
		"tree":      entries,
	}
	var resp struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/git/trees", c.repo)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("create tree: %w", err)
	}
	return resp.SHA, nil
}

// CreateCommit creates a commit object and returns its SHA.
func (c *Client) CreateCommit(ctx context.Context, message, treeSHA string, parents []string) (string, error) {
	body := map[string]any{
		"message": message,
		"tree":    treeSHA,
		"parents": parents,
	}
	var resp struct {
		SHA string `json:"sha"`
	}
	path := fmt.Sprintf("/repos/%s/git/commits", c.repo)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}
	return resp.SHA, nil
}

// UpdateRef advances the branch head to the given commit SHA. This is
// the sole commit point of a batch publish.
func (c *Client) UpdateRef(ctx context.Context, commitSHA string) error {
	body := map[string]string{"sha": commitSHA}
	path := fmt.Sprintf("/repos/%s/git/refs/heads/%s", c.repo, c.branch)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("update ref: %w", err)
	}
	return nil
}

// NotFoundError is returned by GetContents when the file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// GetContents fetches a single file's decoded content and its sha
// concurrency token via the contents endpoint.
func (c *Client) GetContents(ctx context.Context, filePath string) (*FileContent, error) {
	var resp struct {
		Path    string `json:"path"`
		SHA     string `json:"sha"`
		Content string `json:"content"`
	}
	path := fmt.Sprintf("/repos/%s/contents/%s?ref=%s", c.repo, filePath, c.branch)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, &NotFoundError{Path: filePath}
		}
		return nil, fmt.Errorf("get contents: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(despace(resp.Content))
	if err != nil {
		return nil, fmt.Errorf("decode contents of %s: %w", filePath, err)
	}
	return &FileContent{
		Path:    resp.Path,
		SHA:     resp.SHA,
		Content: string(decoded),
	}, nil
}

// PutContents creates or updates a single file. Pass the current sha for
// updates; an empty sha creates the file.
func (c *Client) PutContents(ctx context.Context, filePath, content, message, sha string) (string, error) {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  c.branch,
	}
	if sha != "" {
		body["sha"] = sha
	}

	var resp struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	path := fmt.Sprintf("/repos/%s/contents/%s", c.repo, filePath)
	if err := c.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return "", fmt.Errorf("put contents: %w", err)
	}
	return resp.Commit.SHA, nil
}

// statusError carries the HTTP status of a failed API call.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.status, e.body)
}

func isStatus(err error, code int) bool {
	var sErr *statusError
	if stderrors.As(err, &sErr) {
		return sErr.status == code
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{status: resp.StatusCode, body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// despace strips the newlines the contents API inserts into base64
// payloads.
func despace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' || s[i] == ' ' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
