package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-learning-backend/internal/usecase"
)

// Server is the HTTP surface of the generation pipeline.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(
	port int,
	auth *AuthManager,
	generation *usecase.GenerationUseCase,
	usage *usecase.UsageUseCase,
	logger *zerolog.Logger,
) *Server {
	h := &handlers{generation: generation, usage: usage, log: logger}

	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(auth))
		r.Post("/generate/quiz", h.generateQuiz)
		r.Post("/generate/flashcards", h.generateFlashcards)
		r.Post("/tutor/message", h.tutorMessage)
		r.Get("/usage", h.usageSummary)
		r.Get("/metrics", h.requestMetrics)
		r.Get("/rate-limit", h.rateLimitStatus)
	})

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
