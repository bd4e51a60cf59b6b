package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	options "github.com/kart-io/tutor-x/pkg/options/tracing"
)

func TestNewProvider_DisabledInstallsPropagator(t *testing.T) {
	p, err := NewProvider(context.Background(), options.NewOptions(), "test")
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
	assert.NotNil(t, p.Tracer("test"))
}

func TestNewProvider_Noop(t *testing.T) {
	opts := options.NewOptions()
	opts.Enabled = true
	opts.ExporterType = options.ExporterNoop

	p, err := NewProvider(context.Background(), opts, "test")
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	opts := options.NewOptions()
	opts.Enabled = true
	opts.ExporterType = "zipkin"

	_, err := NewProvider(context.Background(), opts, "test")
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	opts := options.NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Enabled = true
	opts.SamplerRatio = 2
	opts.ExporterType = "bogus"
	assert.Len(t, opts.Validate(), 2)
}
