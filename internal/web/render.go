package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/tendfield/garden/internal/errors"
)

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError maps an error to the structured JSON error shape. Errors
// that aren't GardenErrors are wrapped as internal, keeping their
// message out of the response.
func renderError(w http.ResponseWriter, err error) {
	var gErr *errors.GardenError
	if !stderrors.As(err, &gErr) {
		gErr = errors.NewInternal(err)
	}

	renderJSON(w, gErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(gErr.Code),
			"message": gErr.Message,
			"status":  gErr.Status,
		},
	})
}

// renderMarkdown converts markdown to HTML for the preview endpoint.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}
