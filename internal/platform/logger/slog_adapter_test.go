package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAdapter_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapterTo(&buf, "production", "info")

	l.Info(context.Background(), "fan-out delivered", "event_type", "ping", "recipients", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "fan-out delivered", record["msg"])
	assert.Equal(t, "ping", record["event_type"])
	assert.Equal(t, float64(2), record["recipients"])
}

func TestSlogAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapterTo(&buf, "production", "warn")

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden too")
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSlogAdapter_WithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapterTo(&buf, "development", "debug").With("component", "satellite:window1")

	l.Debug(context.Background(), "listener added")

	assert.Contains(t, buf.String(), "component=satellite:window1")
	assert.Contains(t, buf.String(), "listener added")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"warn":    "WARN",
		"error":   "ERROR",
		"info":    "INFO",
		"verbose": "INFO",
		"":        "INFO",
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in).String(), "level %q", in)
	}
}
