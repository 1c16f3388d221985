package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/maildigest/internal/logger"
)

func TestInitGlobalTracer_RegistersJaegerTracer(t *testing.T) {
	tracer, closer, err := InitGlobalTracer(&JaegerConfig{
		ServiceName:  "maildigest-test",
		AgentHost:    "127.0.0.1",
		AgentPort:    "6831",
		Enabled:      true,
		SamplerType:  "const",
		SamplerParam: 1,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	defer closer.Close()

	assert.True(t, opentracing.IsGlobalTracerRegistered())
	assert.Same(t, tracer, opentracing.GlobalTracer())

	span, _ := StartTracerSpan(context.Background(), "Poller.run")
	defer span.Finish()
	assert.NotEmpty(t, GetTraceId(span))
}

func TestInitGlobalTracer_DisabledStillRegisters(t *testing.T) {
	tracer, closer, err := InitGlobalTracer(&JaegerConfig{
		ServiceName:  "maildigest-test",
		AgentHost:    "127.0.0.1",
		AgentPort:    "6831",
		SamplerType:  "const",
		SamplerParam: 1,
	}, logger.NewNopLogger())
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, tracer, opentracing.GlobalTracer())
}
