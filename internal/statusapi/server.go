// Package statusapi exposes a plain HTTP mirror of the gRPC StreamService's
// Status RPC and a liveness probe, for operators and load balancers that
// would rather not speak gRPC just to check a chain's ingestion watermark.
package statusapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/dna-engine/dna/internal/logger"
	"github.com/dna-engine/dna/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// Server is the status/health HTTP server.
type Server struct {
	cfg     *config.StatusAPIConfig
	handler *Handler
	server  *http.Server
	log     *logger.Logger
}

// NewServer constructs a Server. Start must be called to begin serving.
func NewServer(cfg *config.StatusAPIConfig, chainName string, startingBlock uint64, view ChainView, log *logger.Logger) *Server {
	handler := NewHandler(chainName, startingBlock, view, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /status", handler.Status)
	mux.HandleFunc("GET /swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAPIDoc))
	})
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s/swagger/doc.json", cfg.ListenAddress)),
		httpSwagger.DeepLinking(true),
	))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no such route: %s", r.URL.Path))
	})

	var h http.Handler = mux
	h = recoveryMiddleware(log)(h)
	h = loggingMiddleware(log)(h)
	if cfg.CORS.Enabled {
		h = corsMiddleware(cfg.CORS.AllowedOrigins)(h)
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      h,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutMs) * time.Millisecond,
	}

	return &Server{
		cfg:     cfg,
		handler: handler,
		server:  httpServer,
		log:     log.WithComponent("statusapi"),
	}
}

// Start serves until ctx is cancelled, then gracefully shuts down. It
// returns nil immediately if the status API is disabled.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("status API disabled")
		return nil
	}

	s.log.Infow("status API listening", "address", s.cfg.ListenAddress)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorw("status API stopped serving", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("shutting down status API")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("statusapi: shutdown: %w", err)
	}
	return nil
}
