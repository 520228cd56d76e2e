// Package mail talks to a Resend-shaped REST API: audience contacts
// with per-contact preference properties, and transactional sends. The
// provider's internals are out of scope; this client only needs the
// contact list, contact properties, and the send endpoint.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendfield/garden/internal/config"
)

// Client is an audience + send client for one configured audience.
type Client struct {
	apiURL     string
	apiKey     string
	audienceID string
	from       string
	httpClient *http.Client
}

// New creates a mail client from config. Callers gate on
// cfg.RequireMail before sending.
func New(cfg *config.Config) *Client {
	return &Client{
		apiURL:     cfg.MailAPIURL,
		apiKey:     cfg.MailAPIKey,
		audienceID: cfg.MailAudienceID,
		from:       cfg.MailFrom,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Contact is one audience member as the list endpoint returns it.
type Contact struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Unsubscribed bool   `json:"unsubscribed"`
}

// Preferences is a contact's resolved digest settings.
type Preferences struct {
	Email        string
	Unsubscribed bool
	Frequency    string // daily or weekly
	Preference   string // all or projects
}

// NormalizeFrequency treats anything that isn't daily as weekly.
func NormalizeFrequency(v string) string {
	if v == "daily" {
		return "daily"
	}
	return "weekly"
}

// NormalizePreference treats anything that isn't projects as all.
func NormalizePreference(v string) string {
	if v == "projects" {
		return "projects"
	}
	return "all"
}

// apiError is a failed provider call.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mail API error (status %d): %s", e.Status, e.Message)
}

// IsDuplicateContact reports whether an error is the provider's
// already-subscribed rejection.
func IsDuplicateContact(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}

// ListContacts pages through the whole audience.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	contacts := []Contact{}
	after := ""

	for {
		path := fmt.Sprintf("/audiences/%s/contacts?limit=100", c.audienceID)
		if after != "" {
			path += "&after=" + url.QueryEscape(after)
		}

		var resp struct {
			Data    []Contact `json:"data"`
			HasMore bool      `json:"has_more"`
		}
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("list contacts: %w", err)
		}

		contacts = append(contacts, resp.Data...)
		if !resp.HasMore || len(resp.Data) == 0 {
			break
		}
		after = resp.Data[len(resp.Data)-1].ID
		if after == "" {
			break
		}
	}
	return contacts, nil
}

// ContactPreferences resolves a contact's frequency and variant
// preference from its properties. A failed lookup falls back to the
// defaults rather than dropping the contact.
func (c *Client) ContactPreferences(ctx context.Context, contact Contact) Preferences {
	prefs := Preferences{
		Email:        contact.Email,
		Unsubscribed: contact.Unsubscribed,
		Frequency:    "weekly",
		Preference:   "all",
	}

	var resp struct {
		Properties map[string]struct {
			Value string `json:"value"`
		} `json:"properties"`
	}
	path := fmt.Sprintf("/audiences/%s/contacts/%s", c.audienceID, contact.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return prefs
	}

	prefs.Frequency = NormalizeFrequency(resp.Properties["frequency"].Value)
	prefs.Preference = NormalizePreference(resp.Properties["preference"].Value)
	return prefs
}

// CreateContact adds a subscriber to the audience.
func (c *Client) CreateContact(ctx context.Context, email string) error {
	body := map[string]any{
		"email":        email,
		"first_name":   "",
		"last_name":    "",
		"unsubscribed": false,
	}
	path := fmt.Sprintf("/audiences/%s/contacts", c.audienceID)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// Send delivers one email.
func (c *Client) Send(ctx context.Context, to, subject, html, text string) error {
	body := map[string]string{
		"from":    c.from,
		"to":      to,
		"subject": subject,
		"html":    html,
		"text":    text,
	}
	if err := c.do(ctx, http.MethodPost, "/emails", body, nil); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Digest is the rendered newsletter content to distribute.
type Digest struct {
	Subject      string
	AllHTML      string
	AllText      string
	ProjectsHTML string
	ProjectsText string
}

// SendReport summarizes one digest distribution.
type SendReport struct {
	Scanned  int
	Eligible int
	Sent     int
	Failed   int
	Failures []string
}

// SendDigest fans a digest out to every subscribed contact whose
// frequency matches, honoring each contact's variant preference.
// Individual send failures are recorded, not fatal.
func (c *Client) SendDigest(ctx context.Context, frequency string, d Digest) (*SendReport, error) {
	contacts, err := c.ListContacts(ctx)
	if err != nil {
		return nil, err
	}

	report := &SendReport{Scanned: len(contacts)}
	for _, contact := range contacts {
		prefs := c.ContactPreferences(ctx, contact)
		if prefs.Unsubscribed || prefs.Frequency != frequency {
			continue
		}
		report.Eligible++

		html, text := d.AllHTML, d.AllText
		if prefs.Preference == "projects" {
			html, text = d.ProjectsHTML, d.ProjectsText
		}

		if err := c.Send(ctx, prefs.Email, d.Subject, html, text); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", prefs.Email, err))
			continue
		}
		report.Sent++
	}
	return report, nil
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
		var errResp struct {
			Message string `json:"message"`
		}
		message := string(respBody)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			message = errResp.Message
		}
		return &apiError{Status: resp.StatusCode, Message: message}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
