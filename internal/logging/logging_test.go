package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", false)

	logger.Info("hidden")
	logger.Warn("shown", "backend", "ipfs")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "backend=ipfs")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "loud", false)
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	require.Contains(t, out, "unknown log level")
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", true).Info("pinned", "hash", "bafy1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	require.Equal(t, "pinned", entry["msg"])
	require.Equal(t, "bafy1", entry["hash"])
	require.Equal(t, "info", entry["level"])
}
