// Package app provides the tutor RAG server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/tutor-x/cmd/tutor-rag/app/options"
	"github.com/kart-io/tutor-x/internal/tutor"
	"github.com/kart-io/tutor-x/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Tutor RAG Service

The retrieval-augmented context builder behind the course AI tutor.

This server provides:
  - Step, lesson, section and course scoped question answering
  - Streaming answers from the chat model
  - Step content chunking and embedding into pgvector
  - Reranking of retrieved evidence`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(tutor.Name),
		app.WithShortDescription("AI tutor RAG service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithConfigWatch(),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
