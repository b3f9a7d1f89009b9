package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "shipping-test",
	}

	p, err := Setup(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.False(t, p.Enabled())
	assert.False(t, p.LogsEnabled())
	assert.Equal(t, "shipping-test", p.Config().ServiceName)
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestProvider_NilSafe(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.False(t, p.LogsEnabled())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProvider_EnableSpanProfiles(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	recorder := tracetest.NewSpanRecorder()
	sdk := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = sdk.Shutdown(context.Background()) })
	p := &Provider{config: Config{Enabled: true, ServiceName: "shipping-test"}, logger: zap.NewNop(), tracer: sdk}

	p.EnableSpanProfiles()
	assert.True(t, p.SpanProfilesEnabled())
	_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.False(t, isSDK, "global provider is wrapped")

	wrapped := otel.GetTracerProvider()
	p.EnableSpanProfiles()
	assert.Equal(t, wrapped, otel.GetTracerProvider(), "second call is a no-op")

	_, span := StartServiceSpan(context.Background(), "shipment", "Create")
	span.End()
	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "shipment.Create", recorder.Ended()[0].Name())
}

func TestProvider_EnableSpanProfilesWithoutTracing(t *testing.T) {
	previous := otel.GetTracerProvider()

	p, err := Setup(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	p.EnableSpanProfiles()

	assert.False(t, p.SpanProfilesEnabled())
	assert.Equal(t, previous, otel.GetTracerProvider())

	var nilProvider *Provider
	nilProvider.EnableSpanProfiles()
	assert.False(t, nilProvider.SpanProfilesEnabled())
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := samplerFor(tt.ratio).Description()
		assert.Contains(t, desc, tt.want, "ratio %v", tt.ratio)
	}
	assert.Contains(t, samplerFor(1).Description(), "ParentBased")
}

func TestBridgeLogger_Disabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	bridged := BridgeLogger(base, &Provider{}, zap.InfoLevel)
	assert.Same(t, base, bridged)

	bridged.Info("shipment created")
	assert.Equal(t, 1, logs.Len())

	assert.NotNil(t, BridgeLogger(nil, nil, zap.InfoLevel))
}

func TestLevelFilterCore(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	filtered := &levelFilterCore{Core: core, minLevel: zap.WarnLevel}
	logger := zap.New(filtered).With(zap.String("component", "relay"))

	logger.Info("dropped")
	logger.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "relay", entry.ContextMap()["component"])
	assert.False(t, filtered.Enabled(zap.InfoLevel))
	assert.True(t, filtered.Enabled(zap.ErrorLevel))
}
