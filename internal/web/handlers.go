// Package web is the HTTP surface: capture ingestion for external
// clients, the admin review/publish API, and the newsletter subscribe
// endpoint. All responses are JSON; errors use the structured
// {error:{code,message,status}} shape.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tendfield/garden/internal/capture"
	"github.com/tendfield/garden/internal/config"
	"github.com/tendfield/garden/internal/errors"
	"github.com/tendfield/garden/internal/mail"
	"github.com/tendfield/garden/internal/publish"
	"github.com/tendfield/garden/internal/refine"
	"github.com/tendfield/garden/internal/store"
	"github.com/tendfield/garden/internal/transform"
)

// Publisher is the slice of the batch publisher the handlers need.
type Publisher interface {
	BatchPublish(ctx context.Context, captures []*capture.Capture) (*publish.Result, error)
}

// Mailer is the slice of the mail client the subscribe endpoint needs.
type Mailer interface {
	CreateContact(ctx context.Context, email string) error
	Send(ctx context.Context, to, subject, html, text string) error
}

// Handlers holds the dependencies of the HTTP endpoints.
type Handlers struct {
	store     *store.Store
	publisher Publisher
	refiner   *refine.Gateway
	mailer    Mailer
	cfg       *config.Config
}

// NewHandlers wires the HTTP endpoints to their dependencies. refiner
// may be nil (AI unconfigured); mailer may be nil (mail unconfigured).
func NewHandlers(st *store.Store, pub Publisher, refiner *refine.Gateway, mailer Mailer, cfg *config.Config) *Handlers {
	return &Handlers{
		store:     st,
		publisher: pub,
		refiner:   refiner,
		mailer:    mailer,
		cfg:       cfg,
	}
}

// bearerToken extracts the Authorization credential, accepting both
// "Bearer {token}" and a bare token.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return auth
}

func (h *Handlers) authIngest(r *http.Request) bool {
	return h.cfg.CaptureAPIKey != "" && bearerToken(r) == h.cfg.CaptureAPIKey
}

func (h *Handlers) authAdmin(r *http.Request) bool {
	return h.cfg.AdminToken != "" && bearerToken(r) == h.cfg.AdminToken
}

// authAdminOrPassword additionally accepts the admin token as a
// ?password= query parameter, for browser preview links.
func (h *Handlers) authAdminOrPassword(r *http.Request) bool {
	if h.authAdmin(r) {
		return true
	}
	return h.cfg.AdminToken != "" && r.URL.Query().Get("password") == h.cfg.AdminToken
}

// authPublish accepts the admin token, the cron secret header, or the
// cron secret as a bearer token (schedulers send either form).
func (h *Handlers) authPublish(r *http.Request) bool {
	if h.authAdmin(r) {
		return true
	}
	if h.cfg.CronSecret == "" {
		return false
	}
	if r.Header.Get("X-Cron-Secret") == h.cfg.CronSecret {
		return true
	}
	return bearerToken(r) == h.cfg.CronSecret
}

// HandleIngest accepts a new capture from an external client, infers
// its shape, and stores it as pending.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if !h.authIngest(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	var payload capture.IngestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	if payload.Source == "" || !capture.ValidSource(payload.Source) {
		renderError(w, errors.NewInvalidRequest("invalid or missing source"))
		return
	}
	if payload.URL == "" && payload.Text == "" && payload.ImageBase64 == "" {
		renderError(w, errors.NewInvalidRequest("must provide url, text, or image"))
		return
	}
	if payload.URL != "" {
		if u, err := url.Parse(payload.URL); err != nil || u.Scheme == "" || u.Host == "" {
			renderError(w, errors.NewInvalidRequest("invalid URL format"))
			return
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

	c, err := h.store.Create(r.Context(), store.CreateInput{
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
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusCreated, map[string]any{
		"id":     c.ID,
		"status": c.Status,
	})
}

// HandleList returns captures in a status, newest-first, with
// pagination.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	if !h.authAdmin(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	status := capture.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = capture.StatusPending
	}
	if !capture.ValidStatus(status) {
		renderError(w, errors.NewInvalidRequest(fmt.Sprintf("invalid status: %s", status)))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			renderError(w, errors.NewInvalidRequest("invalid limit"))
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			renderError(w, errors.NewInvalidRequest("invalid offset"))
			return
		}
		offset = n
	}

	captures, err := h.store.List(r.Context(), status, limit, offset)
	if err != nil {
		renderError(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), status)
	if err != nil {
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"captures": captures,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"hasMore":  offset+len(captures) < total,
	})
}

// HandleApprove queues a pending capture for publishing, recording its
// refined-vs-raw preference.
func (h *Handlers) HandleApprove(w http.ResponseWriter, r *http.Request) {
	if !h.authAdmin(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	// Optional body; absence means "use refined content".
	var body struct {
		UseRefined *bool `json:"useRefined"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	useRefined := body.UseRefined == nil || *body.UseRefined

	c, err := h.store.Approve(r.Context(), r.PathValue("id"), &useRefined)
	if err != nil {
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  c.Status,
		"message": "queued for publishing",
	})
}

func (h *Handlers) HandleReject(w http.ResponseWriter, r *http.Request) {
	if !h.authAdmin(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	c, err := h.store.Reject(r.Context(), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "status": c.Status})
}

func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if !h.authAdmin(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	c, err := h.store.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "status": c.Status})
}

// HandleUpdate edits a capture's content fields before approval.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.authAdmin(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	var payload capture.UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	c, err := h.store.Update(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "capture": c})
}

// HandlePreview shows what a capture would publish as, without
// committing. ?raw=true bypasses refined content.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if !h.authAdminOrPassword(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}

	c, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}

	useRefined := r.URL.Query().Get("raw") != "true"
	out := transform.Transform(c, useRefined)

	var preview map[string]any
	if out.Project != nil {
		entry := transform.SerializeActivityEntry(out.Project.Activity)
		preview = map[string]any{
			"path":    transform.ProjectPath(h.cfg.ContentRoot, out.Project.ProjectSlug),
			"content": entry,
			"message": fmt.Sprintf("content: add project update %q", out.Project.Activity.Title),
			"html":    renderMarkdown(out.Project.Activity.Summary),
		}
	} else {
		kind := "note"
		if out.File.Collection == capture.CollectionTIL {
			kind = "TIL"
		}
		preview = map[string]any{
			"path":    transform.ContentPath(h.cfg.ContentRoot, out.File),
			"content": out.File.FullContent,
			"message": fmt.Sprintf("content: add %s %q", kind, out.File.Title),
			"html":    renderMarkdown(out.File.Body),
		}
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"capture": c,
		"preview": preview,
	})
}

// HandleRefine runs AI refinement on a capture and stores the result.
func (h *Handlers) HandleRefine(w http.ResponseWriter, r *http.Request) {
	if !h.authAdmin(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}
	if !h.refiner.Configured() {
		renderError(w, errors.NewConfig("AI refinement not configured"))
		return
	}

	c, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}

	refined, err := h.refiner.Refine(r.Context(), c)
	if err != nil {
		renderError(w, err)
		return
	}

	c, err = h.store.StoreRefinement(r.Context(), c.ID, *refined)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "capture": c})
}

// HandlePublishAll publishes every approved capture in one commit and
// marks them published.
func (h *Handlers) HandlePublishAll(w http.ResponseWriter, r *http.Request) {
	if !h.authPublish(r) {
		renderError(w, errors.NewUnauthorized())
		return
	}
	if err := h.cfg.RequireGitHosting(); err != nil {
		renderError(w, err)
		return
	}

	approved, err := h.store.Approved(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	if len(approved) == 0 {
		renderJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   "no items to publish",
			"published": 0,
		})
		return
	}

	result, err := h.publisher.BatchPublish(r.Context(), approved)
	if err != nil {
		renderError(w, err)
		return
	}

	infos := make([]store.PublishedInfo, len(result.Items))
	for i, item := range result.Items {
		infos[i] = store.PublishedInfo{
			ID:         item.ID,
			Slug:       item.Slug,
			Collection: item.Collection,
		}
	}
	if err := h.store.MarkPublished(r.Context(), infos); err != nil {
		renderError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("published %d items in one commit", len(result.Items)),
		"published":    len(result.Items),
		"filesChanged": result.FilesChanged,
		"commit":       result.CommitSHA,
	})
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// subscribeError writes the subscribe endpoint's flat error shape.
func subscribeError(w http.ResponseWriter, status int, code, message string) {
	renderJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}

// HandleSubscribe adds a newsletter subscriber and sends the welcome
// email.
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Frequency string `json:"frequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		subscribeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	if body.Email == "" || body.Frequency == "" {
		subscribeError(w, http.StatusBadRequest, "INVALID_REQUEST", "email and frequency are required")
		return
	}
	if !emailRe.MatchString(body.Email) {
		subscribeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid email format")
		return
	}
	if body.Frequency != "daily" && body.Frequency != "weekly" {
		subscribeError(w, http.StatusBadRequest, "INVALID_REQUEST", "frequency must be daily or weekly")
		return
	}
	if err := h.cfg.RequireMail(); err != nil || h.mailer == nil {
		subscribeError(w, http.StatusInternalServerError, "CONFIG", "newsletter not configured")
		return
	}

	if err := h.mailer.CreateContact(r.Context(), body.Email); err != nil {
		if mail.IsDuplicateContact(err) {
			subscribeError(w, http.StatusBadRequest, "INVALID_REQUEST", "this email is already subscribed")
			return
		}
		subscribeError(w, http.StatusBadGateway, "UPSTREAM", "failed to subscribe, please try again")
		return
	}

	html, text := mail.WelcomeEmail(body.Frequency)
	if err := h.mailer.Send(r.Context(), body.Email, mail.WelcomeSubject, html, text); err != nil {
		subscribeError(w, http.StatusBadGateway, "UPSTREAM", "subscribed, but the welcome email failed")
		return
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "You're in! Check your inbox for a welcome note.",
	})
}

// HandleHealthz is the liveness probe.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
