package main

import (
	"fmt"
	"os"

	"github.com/tendfield/garden/internal/config"
	"github.com/tendfield/garden/internal/kv"
	"github.com/tendfield/garden/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	backend, err := kv.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open data store: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	app := newCLIApp(store.New(backend), cfg)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
