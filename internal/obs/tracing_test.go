package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestSamplerFor(t *testing.T) {
	require.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
	require.Contains(t, samplerFor(0).Description(), "AlwaysOnSampler")
	require.Contains(t, samplerFor(1.5).Description(), "AlwaysOnSampler")
	require.Contains(t, samplerFor(0.25).Description(), "ParentBased")
}

func TestServiceAttributes(t *testing.T) {
	attrs := serviceAttributes(TracingConfig{ServiceName: "showroom-api", Environment: "staging"})
	set := attribute.NewSet(attrs...)

	name, ok := set.Value("service.name")
	require.True(t, ok)
	require.Equal(t, "showroom-api", name.AsString())
	ns, ok := set.Value("service.namespace")
	require.True(t, ok)
	require.Equal(t, "showroom", ns.AsString())
	_, ok = set.Value("service.version")
	require.False(t, ok)
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "zipkin")

	shutdown, err := InitTracer(context.Background(), TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
