package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("production", &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithTraceID(ctx, "trace-1")
	logger.With("component", "test").InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "test", entry["component"])
}

func TestNewLogger_TextOutsideProduction(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("development", &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestExtractors(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ExtractRequestID(context.Background()))
	assert.Empty(t, ExtractSessionID(context.Background()))

	ctx := WithSessionID(WithRequestID(context.Background(), "r"), "s")
	assert.Equal(t, "r", ExtractRequestID(ctx))
	assert.Equal(t, "s", ExtractSessionID(ctx))
}
