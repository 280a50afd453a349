package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/mindx/internal/server"
	"github.com/desertthunder/mindx/internal/services"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	backend, closeFn, err := r.openBackend()
	if err != nil {
		return err
	}
	defer closeFn()

	compiler, err := services.NewDescriptorCompiler(r.config.Compiler, r.httpClient)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:     r.config,
		Backend:    backend,
		Compiler:   compiler,
		Logger:     r.logger,
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("serving", "backend", r.config.Backend, "compiler", r.config.Compiler.Backend, "addr", srv.Addr())
	return srv.ListenAndServe(ctx)
}
