// Package config loads application configuration from environment variables.
// Core settings fail fast at startup; feature credentials (git hosting, AI
// refinement, mail) are checked by the component that needs them.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tendfield/garden/internal/errors"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DataDir is the directory holding the capture database.
	DataDir string

	// SiteURL is the public base URL of the published site. Optional;
	// used to absolutize links in newsletters.
	SiteURL string

	// CaptureAPIKey authenticates capture clients on the ingest endpoint.
	CaptureAPIKey string

	// AdminToken authenticates the review/publish admin endpoints.
	AdminToken string

	// CronSecret authenticates scheduled publish triggers.
	CronSecret string

	// Git hosting (content repository commits).
	GitToken  string
	GitRepo   string // "owner/name"
	GitBranch string
	GitAPIURL string

	// ContentRoot is the path prefix of content collections inside the
	// repository (e.g. "src/content").
	ContentRoot string

	// AI refinement provider (OpenAI-compatible). Optional.
	AIBaseURL string
	AIAPIKey  string
	AIModel   string

	// Mail provider (Resend-shaped API). Optional.
	MailAPIKey     string
	MailAudienceID string
	MailFrom       string
	MailAPIURL     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	dataDir := os.Getenv("GARDEN_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("GARDEN_DATA_DIR not set and home directory unavailable: %w", err)
		}
		dataDir = home + "/.garden"
	}

	contentRoot := os.Getenv("CONTENT_ROOT")
	if contentRoot == "" {
		contentRoot = "src/content"
	}

	branch := os.Getenv("GITHUB_BRANCH")
	if branch == "" {
		branch = "main"
	}

	apiURL := os.Getenv("GITHUB_API_URL")
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}

	mailAPIURL := os.Getenv("RESEND_API_URL")
	if mailAPIURL == "" {
		mailAPIURL = "https://api.resend.com"
	}

	return &Config{
		Port:           port,
		DataDir:        dataDir,
		SiteURL:        os.Getenv("SITE_URL"),
		CaptureAPIKey:  os.Getenv("CAPTURE_API_KEY"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		CronSecret:     os.Getenv("CRON_SECRET"),
		GitToken:       os.Getenv("GITHUB_TOKEN"),
		GitRepo:        os.Getenv("GITHUB_REPO"),
		GitBranch:      branch,
		GitAPIURL:      apiURL,
		ContentRoot:    contentRoot,
		AIBaseURL:      os.Getenv("AI_BASE_URL"),
		AIAPIKey:       os.Getenv("AI_API_KEY"),
		AIModel:        os.Getenv("AI_MODEL"),
		MailAPIKey:     os.Getenv("RESEND_API_KEY"),
		MailAudienceID: os.Getenv("RESEND_AUDIENCE_ID"),
		MailFrom:       os.Getenv("RESEND_FROM_EMAIL"),
		MailAPIURL:     mailAPIURL,
	}, nil
}

// RequireIngest checks that the ingest endpoint can authenticate clients.
func (c *Config) RequireIngest() error {
	if c.CaptureAPIKey == "" {
		return errors.NewConfig("CAPTURE_API_KEY is required")
	}
	return nil
}

// RequireAdmin checks that admin endpoints can authenticate.
func (c *Config) RequireAdmin() error {
	if c.AdminToken == "" {
		return errors.NewConfig("ADMIN_TOKEN is required")
	}
	return nil
}

// RequireGitHosting checks the credentials needed to commit content.
func (c *Config) RequireGitHosting() error {
	if c.GitToken == "" {
		return errors.NewConfig("GITHUB_TOKEN is required")
	}
	if c.GitRepo == "" {
		return errors.NewConfig("GITHUB_REPO is required")
	}
	return nil
}

// AIConfigured reports whether an AI refinement provider is configured.
func (c *Config) AIConfigured() bool {
	return c.AIBaseURL != "" && c.AIAPIKey != "" && c.AIModel != ""
}

// RequireMail checks the credentials needed to send newsletters.
func (c *Config) RequireMail() error {
	if c.MailAPIKey == "" {
		return errors.NewConfig("RESEND_API_KEY is required")
	}
	if c.MailAudienceID == "" {
		return errors.NewConfig("RESEND_AUDIENCE_ID is required")
	}
	if c.MailFrom == "" {
		return errors.NewConfig("RESEND_FROM_EMAIL is required")
	}
	return nil
}
