package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledYieldsNoopTracer(t *testing.T) {
	tr, err := New("tac-test", false, "", "")
	require.NoError(t, err)
	assert.Nil(t, tr.tp)

	ctx, span := tr.StartSpan(context.Background(), "tac.attempt")
	assert.NotNil(t, ctx)
	span.End()
}

func TestNew_NoopProtocolYieldsNoopTracer(t *testing.T) {
	tr, err := New("tac-test", true, "", "noop")
	require.NoError(t, err)
	assert.Nil(t, tr.tp)
}

func TestStartSpan_NilTracerIsSafe(t *testing.T) {
	var tr *Tracer
	ctx := context.Background()
	gotCtx, span := tr.StartSpan(ctx, "tac.attempt")
	assert.Equal(t, ctx, gotCtx)
	span.End()
}

func TestShutdown_NilTracerIsSafe(t *testing.T) {
	var tr *Tracer
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestShutdown_NoopTracerIsSafe(t *testing.T) {
	tr, err := New("tac-test", false, "", "")
	require.NoError(t, err)
	assert.NoError(t, tr.Shutdown(context.Background()))
}
