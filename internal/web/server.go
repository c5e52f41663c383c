// Package web serves the photo page, its JSON API and the progress stream.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/config"
	"github.com/brandon/onthisday/internal/progress"
	"github.com/brandon/onthisday/pkg/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const serviceName = "onthisday"

// MemoryFinder returns the photos of a date's month and day grouped by year
type MemoryFinder interface {
	ForDate(ctx context.Context, date time.Time) ([]types.PhotoGroup, error)
	Location() *time.Location
}

// DigestSender starts a background digest job
type DigestSender interface {
	SendWithRetry(ctx context.Context, date time.Time)
}

// Server is the HTTP server
type Server struct {
	config    *config.Config
	memories  MemoryFinder
	digest    DigestSender
	hub       *progress.Hub
	logger    *logrus.Logger
	router    chi.Router
	templates *template.Template
	now       func() time.Time

	// background outlives requests; digest jobs started over HTTP use it
	background context.Context
}

// New creates a new server
func New(cfg *config.Config, memories MemoryFinder, hub *progress.Hub, logger *logrus.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		config:     cfg,
		memories:   memories,
		hub:        hub,
		logger:     logger,
		templates:  tmpl,
		now:        time.Now,
		background: context.Background(),
	}
	s.setupRoutes()
	return s, nil
}

// SetDigest enables the test-email endpoint
func (s *Server) SetDigest(d DigestSender) {
	s.digest = d
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)

	// An empty origin list means wildcard to rs/cors, so cross-origin
	// access stays off unless origins are configured.
	if len(s.config.CORSOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		})
		r.Use(c.Handler)
	}

	r.Get("/api/progress", s.handleProgress)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		staticSub, _ := fs.Sub(staticFS, "static")
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

		r.Get("/", s.handleHome)

		r.Get("/api/photos", s.handlePhotos)
		r.Get("/api/test-email", s.handleTestEmail)
		r.Get("/api/health", s.handleHealth)
	})

	s.router = r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured port until ctx is cancelled, then shuts down
// gracefully. Digest jobs started over HTTP run with ctx.
func (s *Server) Run(ctx context.Context) error {
	s.background = ctx

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A full library listing can take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("HTTP server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs every request through logrus once it has been served
func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"remote":     r.RemoteAddr,
					"duration":   time.Since(start).String(),
				}).Info("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
