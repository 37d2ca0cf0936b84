package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterTagsSession(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel, "abc")
	log.Debug().Msg("hidden")
	log.Info().Str("component", "test").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "abc", entry["session_id"])
	require.Equal(t, "shown", entry["message"])
	require.Equal(t, "test", entry["component"])
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "querychat.log")
	log, closer, err := New(Options{Path: path, Level: "info", SessionID: "s1"})
	require.NoError(t, err)
	log.Info().Msg("hello")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"message":"hello"`)
}

func TestNewWithoutPathIsNop(t *testing.T) {
	_, closer, err := New(Options{})
	require.NoError(t, err)
	require.NoError(t, closer.Close())
}
