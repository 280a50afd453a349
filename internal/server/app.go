package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/desertthunder/mindx/internal/shared"
	"github.com/desertthunder/mindx/internal/tasks"
)

const shutdownTimeout = 10 * time.Second

// Options contains everything [New] needs to assemble the HTTP service.
type Options struct {
	Config   *shared.Config
	Backend  *services.Backend
	Compiler services.DescriptorCompiler
	Logger   *log.Logger

	// HTTPClient fetches images for JSON ingestion requests (default: http.DefaultClient).
	HTTPClient *http.Client
}

// Server is the HTTP service exposing ingestion and admin deletion.
type Server struct {
	router *BasicRouter
	srv    *http.Server
	logger *log.Logger
}

// New wires the orchestrators and handlers over opts.Backend.
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Backend == nil || opts.Compiler == nil {
		return nil, fmt.Errorf("%w: server needs config, backend and compiler", shared.ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	cfg := opts.Config

	ingestor := tasks.NewTargetIngestor(tasks.IngestorOpts{
		Store:             opts.Backend.Artifacts,
		Compiler:          opts.Compiler,
		Catalog:           opts.Backend.Catalog,
		Storage:           cfg.Storage,
		HTTPClient:        opts.HTTPClient,
		MaxImageBytes:     cfg.Server.MaxUploadBytes,
		AllowPrivateHosts: cfg.Server.AllowPrivateFetch,
		Logger:            shared.WithLogger(logger, "component", "ingest"),
	})
	deleter := tasks.NewCascadingDeleter(
		opts.Backend.Identity,
		opts.Backend.Admins,
		opts.Backend.Catalog,
		shared.WithLogger(logger, "component", "delete"),
	)

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger), CORS(cfg.Server))

	limiter := NewIngestLimiter(cfg.Server.IngestRateLimit, cfg.Server.IngestBurst)
	ingest := NewIngestHandler(opts.Backend.Identity, ingestor, cfg.Server.MaxUploadBytes, logger)

	router.Handler(HealthHandler{})
	router.Handle(http.MethodPost, "/generate-mind", RateLimit(limiter)(ingest))
	router.Handle(http.MethodPost, "/admin-delete-user", NewDeleteUserHandler(opts.Backend.Identity, deleter, logger))

	if files, ok := opts.Backend.Artifacts.(*services.FileArtifacts); ok {
		router.Handler(NewArtifactHandler(files.Dir()))
	}

	return &Server{
		router: router,
		logger: logger,
		srv: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe serves until ctx is done, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
