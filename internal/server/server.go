package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fever-diagnosis/internal/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server hosts the web handler
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewRouter builds the gin engine with middlewares, templates and routes.
func NewRouter(h *handler.Handler, logger *zap.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(RequestLogger(logger), Recovery(logger), CORS())

	tmpl, err := handler.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	h.RegisterRoutes(router)
	return router, nil
}

// NewServer creates a server listening on port
func NewServer(port string, h *handler.Handler, logger *zap.Logger) (*Server, error) {
	router, err := NewRouter(h, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully within timeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")
	return nil
}
