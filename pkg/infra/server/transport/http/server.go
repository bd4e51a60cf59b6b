// Package http provides the gin based HTTP transport.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/tutor-x/pkg/infra/middleware"
	options "github.com/kart-io/tutor-x/pkg/options/http"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// Options is re-exported from pkg/options/http for convenience.
type Options = options.Options

// Server is the HTTP server implementation.
type Server struct {
	opts     *options.Options
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
	errCh    chan error
	mu       sync.Mutex
}

// NewServer creates a gin engine with the recovery, request ID, tracing,
// logger and body limit middleware applied in that order. Routes registered on Engine()
// afterwards inherit the chain.
func NewServer(opts *options.Options) *Server {
	if opts == nil {
		opts = options.NewOptions()
	}

	gin.SetMode(opts.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger("/health", "/metrics"),
		middleware.BodyLimit(opts.MaxBodyBytes),
	)
	engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})

	return &Server{
		opts:   opts,
		engine: engine,
		errCh:  make(chan error, 1),
	}
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound listen address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Errors reports serve failures after a successful Start.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Start binds the listener synchronously and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "error", err)
			s.errCh <- err
		}
	}(s.server)

	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
