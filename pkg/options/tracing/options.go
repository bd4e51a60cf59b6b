// Package tracing provides OpenTelemetry tracing configuration.
package tracing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/tutor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// ExporterType defines the type of exporter to use.
type ExporterType string

const (
	// ExporterOTLPGRPC exports spans via OTLP over gRPC.
	ExporterOTLPGRPC ExporterType = "otlp_grpc"
	// ExporterOTLPHTTP exports spans via OTLP over HTTP.
	ExporterOTLPHTTP ExporterType = "otlp_http"
	// ExporterStdout exports spans to stdout (for development).
	ExporterStdout ExporterType = "stdout"
	// ExporterNoop does not export spans.
	ExporterNoop ExporterType = "noop"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	// Enabled enables or disables tracing. When disabled only the W3C
	// propagator is installed so incoming trace headers still flow to providers.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ServiceName is the name of the service.
	ServiceName string `json:"service-name" mapstructure:"service-name"`

	// Environment is the deployment environment (e.g., production, staging, development).
	Environment string `json:"environment" mapstructure:"environment"`

	// ExporterType specifies which exporter to use.
	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`

	// Endpoint is the OTLP exporter endpoint, host:port.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// SamplerRatio is the parent-based root sampling ratio (0.0 to 1.0).
	SamplerRatio float64 `json:"sampler-ratio" mapstructure:"sampler-ratio"`

	// BatchTimeout is the maximum time to wait before exporting a batch.
	BatchTimeout time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`
}

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		Enabled:      false,
		ServiceName:  "tutor-rag",
		Environment:  "development",
		ExporterType: ExporterOTLPGRPC,
		Endpoint:     "localhost:4317",
		Insecure:     true,
		SamplerRatio: 1.0,
		BatchTimeout: 5 * time.Second,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "tracing")...)
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable OpenTelemetry tracing.")
	fs.StringVar(&o.ServiceName, p+"service-name", o.ServiceName, "Service name for tracing.")
	fs.StringVar(&o.Environment, p+"environment", o.Environment, "Deployment environment.")
	fs.StringVar((*string)(&o.ExporterType), p+"exporter-type", string(o.ExporterType), "Exporter type (otlp_grpc, otlp_http, stdout, noop).")
	fs.StringVar(&o.Endpoint, p+"endpoint", o.Endpoint, "OTLP exporter endpoint.")
	fs.BoolVar(&o.Insecure, p+"insecure", o.Insecure, "Disable TLS for OTLP connection.")
	fs.Float64Var(&o.SamplerRatio, p+"sampler-ratio", o.SamplerRatio, "Sampling ratio for root spans (0.0 to 1.0).")
	fs.DurationVar(&o.BatchTimeout, p+"batch-timeout", o.BatchTimeout, "Maximum time to wait before exporting a batch.")
}

// Validate validates the tracing options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.ServiceName == "" {
		errs = append(errs, fmt.Errorf("tracing.service-name is required when tracing is enabled"))
	}
	switch o.ExporterType {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required for exporter %s", o.ExporterType))
		}
	case ExporterStdout, ExporterNoop:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter-type %q is invalid", o.ExporterType))
	}
	if o.SamplerRatio < 0 || o.SamplerRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampler-ratio must be between 0 and 1"))
	}
	if o.BatchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracing.batch-timeout must be positive"))
	}
	return errs
}
