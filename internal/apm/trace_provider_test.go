package apm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders("x-honeycomb-team=abc, api-key=k=v ,broken,=empty")

	assert.Equal(t, "abc", h["x-honeycomb-team"])
	assert.Equal(t, "k=v", h["api-key"])
	assert.NotContains(t, h, "broken")
	assert.Len(t, h, 2)
}

func TestNewTraceProvider_EmptyProvider(t *testing.T) {
	log := logger.NewNop()

	for _, p := range []Provider{EmptyProvider, "", "unknown"} {
		tp := NewTraceProvider(log, "svc", WithProvider(Settings{Provider: p}, log))
		require.NoError(t, tp.Stop())
	}
}

func TestTracer_SpanLifecycle(t *testing.T) {
	tr := NewTracer("test")

	ctx, span := tr.Start(context.Background(), "op")
	require.NotNil(t, ctx)

	span.AddEvent("step")
	span.Fail(nil)
	span.Fail(errors.New("boom"))
	span.End()
}
