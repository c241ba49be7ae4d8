package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "json", "info")
	log.Info("server started", slog.String("addr", ":3000"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "server started", line["msg"])
	assert.Equal(t, ":3000", line["addr"])
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "text", "warn")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
}
