package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
	CORSOrigin     string
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers) *http.Server {
	mux := http.NewServeMux()

	// Concurrency limiter.
	sem := make(chan struct{}, cfg.MaxConcurrent)

	mux.HandleFunc("GET /api/v1/stats", withMiddleware(handlers.HandleStats, sem, cfg))
	mux.HandleFunc("GET /api/v1/bounds", withMiddleware(handlers.HandleBounds, sem, cfg))
	mux.HandleFunc("POST /api/v1/load", withMiddleware(handlers.HandleLoad, sem, cfg))
	mux.HandleFunc("POST /api/v1/viewport", withMiddleware(handlers.HandleViewport, sem, cfg))
	mux.HandleFunc("POST /api/v1/pick", withMiddleware(handlers.HandlePick, sem, cfg))
	mux.HandleFunc("GET /api/v1/nodes/{id}", withMiddleware(handlers.HandleGetNode, sem, cfg))
	mux.HandleFunc("GET /api/v1/ways/{id}", withMiddleware(handlers.HandleGetWay, sem, cfg))
	mux.HandleFunc("PATCH /api/v1/ways/{id}/tags", withMiddleware(handlers.HandleUpdateWayTags, sem, cfg))
	mux.HandleFunc("PATCH /api/v1/nodes/{id}/tags", withMiddleware(handlers.HandleUpdateNodeTags, sem, cfg))
	mux.HandleFunc("POST /api/v1/nodes/{id}/move", withMiddleware(handlers.HandleMoveNode, sem, cfg))
	mux.HandleFunc("POST /api/v1/nodes", withMiddleware(handlers.HandleAddNode, sem, cfg))
	mux.HandleFunc("DELETE /api/v1/ways/{id}", withMiddleware(handlers.HandleDeleteWay, sem, cfg))
	mux.HandleFunc("DELETE /api/v1/nodes/{id}", withMiddleware(handlers.HandleDeleteNode, sem, cfg))
	mux.HandleFunc("POST /api/v1/undo", withMiddleware(handlers.HandleUndo, sem, cfg))
	mux.HandleFunc("POST /api/v1/redo", withMiddleware(handlers.HandleRedo, sem, cfg))
	mux.HandleFunc("GET /api/v1/history", withMiddleware(handlers.HandleHistoryState, sem, cfg))
	mux.HandleFunc("GET /api/v1/health", withMiddleware(handlers.HandleHealth, sem, cfg))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until shutdown signal.
func ListenAndServe(srv *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// withMiddleware wraps a handler with security headers, CORS, a
// concurrency limiter, panic recovery, a per-request timeout, and
// access logging — in that order, matching the teacher's own
// middleware chain.
func withMiddleware(handler http.HandlerFunc, sem chan struct{}, cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")

		if cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"service_unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
			}
		}()

		ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
		defer cancel()

		start := time.Now()
		handler(w, r.WithContext(ctx))
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	}
}
