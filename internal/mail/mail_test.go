package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tendfield/garden/internal/config"
)

func newTestClient(url string) *Client {
	return New(&config.Config{
		MailAPIURL:     url,
		MailAPIKey:     "test-key",
		MailAudienceID: "aud-1",
		MailFrom:       "garden@example.com",
	})
}

func TestListContactsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if r.URL.Path != "/audiences/aud-1/contacts" {
			t.Errorf("path = %q", r.URL.Path)
		}

		switch r.URL.Query().Get("after") {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "c1", "email": "a@example.com"},
					{"id": "c2", "email": "b@example.com", "unsubscribed": true},
				},
				"has_more": true,
			})
		case "c2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data":     []map[string]any{{"id": "c3", "email": "c@example.com"}},
				"has_more": false,
			})
		default:
			t.Errorf("unexpected after = %q", r.URL.Query().Get("after"))
		}
	}))
	defer srv.Close()

	contacts, err := newTestClient(srv.URL).ListContacts(context.Background())
	if err != nil {
		t.Fatalf("ListContacts() error: %v", err)
	}
	if len(contacts) != 3 {
		t.Fatalf("len = %d, want 3", len(contacts))
	}
	if contacts[2].Email != "c@example.com" {
		t.Errorf("contacts[2] = %+v", contacts[2])
	}
	if !contacts[1].Unsubscribed {
		t.Error("unsubscribed flag lost")
	}
}

func TestContactPreferences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audiences/aud-1/contacts/c1":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"properties": map[string]any{
					"frequency":  map[string]string{"value": "daily"},
					"preference": map[string]string{"value": "projects"},
				},
			})
		default:
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	prefs := c.ContactPreferences(context.Background(), Contact{ID: "c1", Email: "a@example.com"})
	if prefs.Frequency != "daily" || prefs.Preference != "projects" {
		t.Errorf("prefs = %+v", prefs)
	}

	// Lookup failure falls back to defaults instead of dropping the contact.
	prefs = c.ContactPreferences(context.Background(), Contact{ID: "missing", Email: "b@example.com"})
	if prefs.Frequency != "weekly" || prefs.Preference != "all" {
		t.Errorf("fallback prefs = %+v", prefs)
	}
}

func TestCreateContactDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Contact already exists"}`, http.StatusConflict)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).CreateContact(context.Background(), "a@example.com")
	if !IsDuplicateContact(err) {
		t.Errorf("error = %v, want duplicate-contact", err)
	}
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["from"] != "garden@example.com" || body["to"] != "a@example.com" {
			t.Errorf("body = %v", body)
		}
		if body["subject"] == "" || body["html"] == "" || body["text"] == "" {
			t.Errorf("incomplete body = %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-1"})
	}))
	defer srv.Close()

	html, text := WelcomeEmail("daily")
	if !strings.Contains(html, "daily digest") || !strings.Contains(text, "daily digest") {
		t.Error("welcome email missing cadence")
	}

	err := newTestClient(srv.URL).Send(context.Background(), "a@example.com", WelcomeSubject, html, text)
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
}

func TestSendDigest(t *testing.T) {
	var sends []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/audiences/aud-1/contacts" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"id": "c1", "email": "daily-all@example.com"},
					{"id": "c2", "email": "daily-projects@example.com"},
					{"id": "c3", "email": "weekly@example.com"},
					{"id": "c4", "email": "gone@example.com", "unsubscribed": true},
					{"id": "c5", "email": "broken@example.com"},
				},
				"has_more": false,
			})
		case strings.HasPrefix(r.URL.Path, "/audiences/aud-1/contacts/"):
			id := strings.TrimPrefix(r.URL.Path, "/audiences/aud-1/contacts/")
			props := map[string]any{}
			switch id {
			case "c1", "c5":
				props["frequency"] = map[string]string{"value": "daily"}
			case "c2":
				props["frequency"] = map[string]string{"value": "daily"}
				props["preference"] = map[string]string{"value": "projects"}
			case "c4":
				props["frequency"] = map[string]string{"value": "daily"}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"properties": props})
		case r.URL.Path == "/emails":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["to"] == "broken@example.com" {
				http.Error(w, `{"message":"rejected"}`, http.StatusUnprocessableEntity)
				return
			}
			sends = append(sends, body)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("email-%d", len(sends))})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	digest := Digest{
		Subject:      "[Daily] Notes from the garden — Mar 9, 2024",
		AllHTML:      "<p>all</p>",
		AllText:      "all",
		ProjectsHTML: "<p>projects</p>",
		ProjectsText: "projects",
	}

	report, err := newTestClient(srv.URL).SendDigest(context.Background(), "daily", digest)
	if err != nil {
		t.Fatalf("SendDigest() error: %v", err)
	}

	// weekly contact and unsubscribed contact skipped; one send fails.
	if report.Scanned != 5 || report.Eligible != 3 || report.Sent != 2 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0], "broken@example.com") {
		t.Errorf("failures = %v", report.Failures)
	}

	variants := map[string]string{}
	for _, send := range sends {
		variants[send["to"]] = send["html"]
	}
	if variants["daily-all@example.com"] != "<p>all</p>" {
		t.Errorf("all variant = %q", variants["daily-all@example.com"])
	}
	if variants["daily-projects@example.com"] != "<p>projects</p>" {
		t.Errorf("projects variant = %q", variants["daily-projects@example.com"])
	}
}
