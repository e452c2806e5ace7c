package web

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/camoptics/internal/debug"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, broadcaster *StatusBroadcaster, presets PresetSource, formDefaults FormConfig) *Server {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("web: failed to sub static fs: %v", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, presets, formDefaults, subFS),
	}
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	h := s.handlers

	mux.HandleFunc("POST /api/fov", h.HandleFOV)
	mux.HandleFunc("POST /api/compare", h.HandleCompare)
	mux.HandleFunc("POST /api/hyperfocal", h.HandleHyperfocal)
	mux.HandleFunc("POST /api/dof", h.HandleDOF)
	mux.HandleFunc("POST /api/focal-length", h.HandleFocalLength)
	mux.HandleFunc("POST /api/dori", h.HandleDori)
	mux.HandleFunc("POST /api/dori/single", h.HandleDoriSingle)
	mux.HandleFunc("POST /api/dori/ranges", h.HandleRanges)
	mux.HandleFunc("POST /api/validate", h.HandleValidate)
	mux.HandleFunc("POST /api/coverage", h.HandleCoverage)
	mux.HandleFunc("GET /api/presets", h.HandlePresets)

	mux.HandleFunc("GET /config", h.HandleConfig)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /status/stream", h.HandleStatusStream)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	mux.HandleFunc("GET /{$}", h.ServeIndex) // exact match for root only

	return withRequestID(mux)
}

// withRequestID tags every request with an X-Request-ID (kept from the
// client when it is a valid UUID) and logs it.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		debug.Request(id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
