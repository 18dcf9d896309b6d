package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_IsUUID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestNewID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		ids[NewID()] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestWithID_and_ID_Roundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "req-1")
	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestID_MissingOrEmpty(t *testing.T) {
	id, ok := ID(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)

	id, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewHandler(inner))

	ctx := WithID(context.Background(), "test1234")
	logger.InfoContext(ctx, "encrypted vector", "length", 3)

	output := buf.String()
	assert.Contains(t, output, "correlation_id=test1234")
	assert.Contains(t, output, "length=3")
}

func TestHandler_NoCorrelationID_WhenMissing(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewHandler(inner))

	logger.InfoContext(context.Background(), "no correlation")

	assert.NotContains(t, buf.String(), "correlation_id")
}

func TestHandler_WithAttrsAndGroup_PreserveCorrelation(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewHandler(inner)).With("component", "keyring").WithGroup("ckks")

	ctx := WithID(context.Background(), "attr1234")
	logger.InfoContext(ctx, "context loaded", "log_n", 13)

	output := buf.String()
	assert.Contains(t, output, "component=keyring")
	assert.Contains(t, output, "ckks.log_n=13")
	assert.Contains(t, output, "attr1234")
}
