package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "", "info")
	log.Info("score saved", "id", "u1_Level 1_general")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "score saved", line["msg"])
	require.Equal(t, "u1_Level 1_general", line["id"])
}

func TestTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "text", "warn")
	log.Info("hidden")
	log.Warn("flush failed", "failed", 2)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.True(t, strings.Contains(out, "msg=\"flush failed\""), out)
	require.Contains(t, out, "failed=2")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
