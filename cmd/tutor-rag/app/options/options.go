// Package options contains flags and options for initializing the tutor RAG server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/tutor-x/internal/tutor"
	"github.com/kart-io/tutor-x/pkg/infra/app/cliflag"
	genericoptions "github.com/kart-io/tutor-x/pkg/options"
	cacheopts "github.com/kart-io/tutor-x/pkg/options/cache"
	databaseopts "github.com/kart-io/tutor-x/pkg/options/database"
	httpopts "github.com/kart-io/tutor-x/pkg/options/http"
	llmopts "github.com/kart-io/tutor-x/pkg/options/llm"
	logopts "github.com/kart-io/tutor-x/pkg/options/logger"
	ragopts "github.com/kart-io/tutor-x/pkg/options/rag"
	tracingopts "github.com/kart-io/tutor-x/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// DatabaseOptions selects postgres (pgvector) or sqlite.
	DatabaseOptions *databaseopts.Options `json:"database" mapstructure:"database"`

	// CacheOptions contains the query embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RerankOptions contains rerank provider configuration.
	RerankOptions *llmopts.ProviderOptions `json:"rerank" mapstructure:"rerank"`

	// RAGOptions contains retrieval and prompt configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		DatabaseOptions:  databaseopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		RerankOptions:    llmopts.NewRerankOptions(),
		RAGOptions:       ragopts.NewOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat")
	o.RerankOptions.AddFlags(fss.FlagSet("rerank"), "rerank")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))

	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	groups := []struct {
		name string
		opts genericoptions.Completer
	}{
		{"database", o.DatabaseOptions},
		{"cache", o.CacheOptions},
		{"embedding", o.EmbeddingOptions},
		{"chat", o.ChatOptions},
		{"rerank", o.RerankOptions},
	}
	for _, g := range groups {
		if err := g.opts.Complete(); err != nil {
			return fmt.Errorf("%s: %w", g.name, err)
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.DatabaseOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, prefixed("embedding", o.EmbeddingOptions.Validate())...)
	errs = append(errs, prefixed("chat", o.ChatOptions.Validate())...)
	errs = append(errs, prefixed("rerank", o.RerankOptions.Validate())...)
	errs = append(errs, o.RAGOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

func prefixed(section string, errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		out = append(out, fmt.Errorf("%s.%w", section, err))
	}
	return out
}

// Config builds a tutor.Config based on ServerOptions.
func (o *ServerOptions) Config() (*tutor.Config, error) {
	return &tutor.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		DatabaseOptions:  o.DatabaseOptions,
		CacheOptions:     o.CacheOptions,
		TracingOptions:   o.TracingOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		RerankOptions:    o.RerankOptions,
		RAGOptions:       o.RAGOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
