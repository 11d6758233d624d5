package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterProdEmitsJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := NewWithWriter(&buf, "production", "info")
	l.Debug("hidden")
	l.Info("request handled", "status", 200)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request handled", line["msg"])
	assert.Equal(t, "reppyroute", line["app"])
	assert.EqualValues(t, 200, line["status"])
}

func TestNewWithWriterDevIsText(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	NewWithWriter(&buf, "dev", "debug").Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
