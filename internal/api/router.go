package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"peiyin/internal/config"
	"peiyin/internal/deps"
	"peiyin/internal/logging"
	"peiyin/internal/workflow"
)

// maxUploadBytes bounds one dubbing submission.
const maxUploadBytes = 512 << 20

// StatusProvider reports workflow state.
type StatusProvider interface {
	Status(ctx context.Context) workflow.StatusSummary
}

// Handler serves the HTTP API.
type Handler struct {
	cfg     *config.Config
	service *Service
	status  StatusProvider
	logger  *slog.Logger
}

// NewHandler constructs a Handler. status may be nil outside the daemon.
func NewHandler(cfg *config.Config, service *Service, status StatusProvider, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		status:  status,
		logger:  logging.NewComponentLogger(logger, "api-server"),
	}
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/vocal-removal", h.enqueueVocalRemoval)
		r.Get("/vocal-removal", h.getVocalRemoval)
		r.Post("/dubbing", h.submitDubbing)
		r.Get("/dubbing", h.listPublicDubbings)
		r.Get("/dubbing/{id}", h.getDubbing)
		r.Get("/recommendations", h.listRecommendations)
		r.Post("/recommendations/refresh", h.refreshRecommendations)
		r.Get("/status", h.daemonStatus)
	})
	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(h.cfg.Paths.PublicDir))))
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("elapsed", time.Since(start)),
			logging.String(logging.FieldCorrelationID, middleware.GetReqID(r.Context())),
		)
	})
}

func (h *Handler) dependencies() []DependencyStatus {
	return FromDependencies(deps.Check(h.cfg))
}
