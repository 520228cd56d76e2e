package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tendfield/garden/internal/config"
	"github.com/tendfield/garden/internal/errors"
	"github.com/tendfield/garden/internal/githost"
	"github.com/tendfield/garden/internal/mail"
	"github.com/tendfield/garden/internal/mcp"
	"github.com/tendfield/garden/internal/newsletter"
	"github.com/tendfield/garden/internal/publish"
	"github.com/tendfield/garden/internal/refine"
	"github.com/tendfield/garden/internal/store"
	"github.com/tendfield/garden/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *store.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "garden",
		Usage:   "Capture, review, and publish pipeline for a personal site",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(st, cfg),
			mcpCmd(st, cfg),
			publishCmd(st, cfg),
			newsletterCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newPublisher builds the batch publisher when git hosting is
// configured, nil otherwise.
func newPublisher(cfg *config.Config) *publish.Publisher {
	if cfg.RequireGitHosting() != nil {
		return nil
	}
	return publish.New(githost.New(cfg), cfg.ContentRoot)
}

// serveCmd creates the serve command.
func serveCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (defaults to PORT)"},
		},
		Action: func(c *cli.Context) error {
			port := cfg.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			var pub web.Publisher
			if p := newPublisher(cfg); p != nil {
				pub = p
			}
			var mailer web.Mailer
			if cfg.RequireMail() == nil {
				mailer = mail.New(cfg)
			}

			h := web.NewHandlers(st, pub, refine.New(cfg), mailer, cfg)
			return web.Run(web.NewServer(h, port))
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio for agent clients",
		Action: func(c *cli.Context) error {
			var pub mcp.Publisher
			if p := newPublisher(cfg); p != nil {
				pub = p
			}
			return mcp.Run(st, pub, cfg, Version)
		},
	}
}

// publishCmd creates the publish command.
func publishCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Publish all approved captures in a single commit",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "confirm", Usage: "Actually publish; without it the queue is listed"},
		},
		Action: func(c *cli.Context) error {
			if err := cfg.RequireGitHosting(); err != nil {
				return outputError(err)
			}

			approved, err := st.Approved(c.Context)
			if err != nil {
				return outputError(err)
			}
			if len(approved) == 0 {
				return outputJSON(map[string]any{
					"published": 0,
					"message":   "no items to publish",
				})
			}

			if !c.Bool("confirm") {
				queue := make([]map[string]any, len(approved))
				for i, item := range approved {
					queue[i] = map[string]any{
						"id":         item.ID,
						"collection": item.InferredCollection,
						"title":      refine.FallbackTitle(item),
					}
				}
				return outputJSON(map[string]any{
					"published": 0,
					"queued":    len(approved),
					"items":     queue,
					"message":   "dry run; re-run with --confirm to publish",
				})
			}

			result, err := newPublisher(cfg).BatchPublish(c.Context, approved)
			if err != nil {
				return outputError(err)
			}

			infos := make([]store.PublishedInfo, len(result.Items))
			for i, item := range result.Items {
				infos[i] = store.PublishedInfo{
					ID:         item.ID,
					Slug:       item.Slug,
					Collection: item.Collection,
				}
			}
			if err := st.MarkPublished(c.Context, infos); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"published":    len(result.Items),
				"filesChanged": result.FilesChanged,
				"commit":       result.CommitSHA,
			})
		},
	}
}

// newsletterCmd creates the newsletter command group.
func newsletterCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "newsletter",
		Usage: "Generate and send content digests",
		Subcommands: []*cli.Command{
			newsletterPreviewCmd(cfg),
			newsletterSendCmd(cfg),
		},
	}
}

// newsletterFlags are shared by preview and send.
func newsletterFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "weekly", Usage: "Digest type: daily|weekly"},
		&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Anchor date (YYYY-MM-DD, defaults to today)"},
		&cli.StringFlag{Name: "content", Value: cfg.ContentRoot, Usage: "Local content directory"},
	}
}

// newsletterPreviewCmd creates the newsletter preview command.
func newsletterPreviewCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Render digest variants to files without sending",
		Flags: append(newsletterFlags(cfg),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "newsletter-preview", Usage: "Output directory"},
		),
		Action: func(c *cli.Context) error {
			bundle, err := newsletter.Generate(newsletter.Options{
				Type:       newsletter.Type(c.String("type")),
				DateInput:  c.String("date"),
				SiteURL:    cfg.SiteURL,
				ContentDir: c.String("content"),
			})
			if err != nil {
				return outputError(err)
			}

			paths, err := newsletter.WritePreview(bundle, c.String("out"))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"subject":  bundle.Subject,
				"window":   bundle.Window.DateLabel,
				"all":      bundle.Variants.All.Count,
				"projects": bundle.Variants.Projects.Count,
				"files":    paths,
			})
		},
	}
}

// newsletterSendCmd creates the newsletter send command.
func newsletterSendCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Generate a digest and send it to the audience",
		Flags: append(newsletterFlags(cfg),
			&cli.BoolFlag{Name: "confirm", Usage: "Actually send; without it the digest is only summarized"},
		),
		Action: func(c *cli.Context) error {
			if err := cfg.RequireMail(); err != nil {
				return outputError(err)
			}

			bundle, err := newsletter.Generate(newsletter.Options{
				Type:       newsletter.Type(c.String("type")),
				DateInput:  c.String("date"),
				SiteURL:    cfg.SiteURL,
				ContentDir: c.String("content"),
			})
			if err != nil {
				return outputError(err)
			}

			if !c.Bool("confirm") {
				return outputJSON(map[string]any{
					"subject":  bundle.Subject,
					"window":   bundle.Window.DateLabel,
					"all":      bundle.Variants.All.Count,
					"projects": bundle.Variants.Projects.Count,
					"message":  "dry run; re-run with --confirm to send",
				})
			}

			report, err := mail.New(cfg).SendDigest(c.Context, string(bundle.Type), mail.Digest{
				Subject:      bundle.Subject,
				AllHTML:      bundle.Variants.All.HTML,
				AllText:      bundle.Variants.All.Text,
				ProjectsHTML: bundle.Variants.Projects.HTML,
				ProjectsText: bundle.Variants.Projects.Text,
			})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d sends failed", report.Failed), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gErr, ok := err.(*errors.GardenError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
