package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// NewServer configures the HTTP server for the capture and newsletter
// API.
func NewServer(h *Handlers, port int) *http.Server {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("POST /api/capture/ingest", h.HandleIngest)
	mux.HandleFunc("GET /api/capture/list", h.HandleList)
	mux.HandleFunc("POST /api/capture/{id}/approve", h.HandleApprove)
	mux.HandleFunc("POST /api/capture/{id}/reject", h.HandleReject)
	mux.HandleFunc("POST /api/capture/{id}/restore", h.HandleRestore)
	mux.HandleFunc("PATCH /api/capture/{id}/update", h.HandleUpdate)
	mux.HandleFunc("POST /api/capture/{id}/update", h.HandleUpdate)
	mux.HandleFunc("GET /api/capture/{id}/preview", h.HandlePreview)
	mux.HandleFunc("POST /api/capture/{id}/refine", h.HandleRefine)
	mux.HandleFunc("POST /api/capture/publish-all", h.HandlePublishAll)
	// Schedulers trigger publishing with GET by default.
	mux.HandleFunc("GET /api/capture/publish-all", h.HandlePublishAll)
	mux.HandleFunc("POST /api/subscribe", h.HandleSubscribe)
	mux.HandleFunc("GET /healthz", h.HandleHealthz)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: securityHeaders(mux),
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on
// SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("garden API listening on %s", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
