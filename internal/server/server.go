// Package server exposes the planner over an HTTP JSON API with a websocket
// stream of image and audio events.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ai-fitness-planner/internal/actions"
	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/content"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/render"
	"ai-fitness-planner/internal/segment"
	"ai-fitness-planner/internal/streak"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// ExportFilename is the name of every downloaded plan document.
const ExportFilename = "trainify-ai-plan.pdf"

// Service is the application surface the API serves.
type Service interface {
	GeneratePlan(ctx context.Context, d planner.UserDetails) (*planner.Bundle, error)
	LatestPlan(ctx context.Context) (*planner.Bundle, error)
	Plan(ctx context.Context, id string) (*planner.Bundle, error)
	RegeneratePlan(ctx context.Context, id string, category segment.Category) (*planner.Bundle, error)
	Blocks(ctx context.Context, id string, category segment.Category) ([]render.Block, error)
	State() render.State
	Subscribe() (<-chan actions.Update, func())

	GenerateImage(ctx context.Context, id string, key render.Key) (render.ImageState, error)
	Listen(ctx context.Context, id string, key render.Key) (actions.Session, error)
	Stop(id string, key render.Key) error
	AudioFinished(id string, key render.Key, failure string) error
	Clip(id string) ([]byte, string, error)

	ExportPDF(ctx context.Context, id string, w io.Writer) error
	Streak(ctx context.Context) (streak.Summary, error)
	CheckIn(ctx context.Context) (streak.Summary, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Health(ctx context.Context) metrics.SysHealth
	Catalog() *content.Catalog
	Reads(ctx context.Context) []content.Read
}

var _ Service = (*app.App)(nil)

// Options configure a Server.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	ExportLinkTTL  time.Duration
	AllowedOrigins []string
}

// Server is the HTTP front-end.
type Server struct {
	svc     Service
	signer  *ExportSigner
	hub     *Hub
	logger  *slog.Logger
	opts    Options
	started time.Time
}

// New creates a Server. Zero options fall back to defaults.
func New(svc Service, signer *ExportSigner, logger *slog.Logger, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.ExportLinkTTL <= 0 {
		opts.ExportLinkTTL = 15 * time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		svc:     svc,
		signer:  signer,
		hub:     NewHub(logger),
		logger:  logger,
		opts:    opts,
		started: time.Now(),
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	r.Use(corsMiddleware.Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/plans", s.createPlan)
		r.Get("/plans/latest", s.latestPlan)
		r.Route("/plans/{planID}", func(r chi.Router) {
			r.Get("/", s.getPlan)
			r.Get("/blocks", s.planBlocks)
			r.Post("/regenerate", s.regeneratePlan)
			r.Get("/export", s.exportPlan)
			r.Post("/export-link", s.exportLink)

			r.Post("/actions/{key}/image", s.generateImage)
			r.Post("/actions/{key}/listen", s.listen)
			r.Post("/actions/{key}/stop", s.stop)
			r.Post("/actions/{key}/ended", s.ended)
		})
		r.Get("/exports/{token}", s.signedExport)
		r.Get("/state", s.state)
		r.Get("/audio/{clipID}", s.audio)

		r.Get("/streak", s.streak)
		r.Post("/streak/checkin", s.checkIn)

		r.Get("/quotes", s.quotes)
		r.Get("/reads", s.reads)
		r.Get("/metrics", s.metrics)

		r.Get("/ws", s.handleWebSocket)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	updates, unsubscribe := s.svc.Subscribe()
	defer unsubscribe()

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx, updates)

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
