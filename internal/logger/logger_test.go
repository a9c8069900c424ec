package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, charmlog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, charmlog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, charmlog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, charmlog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, charmlog.InfoLevel, ParseLevel("chatty"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", JSON: true, Output: &buf})

	logger.Info("Indexed document", "document_id", "doc-1", "chunks", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Indexed document", entry["msg"])
	assert.Equal(t, "doc-1", entry["document_id"])
	assert.EqualValues(t, 3, entry["chunks"])
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Output: &buf})

	logger.Info("hidden")
	logger.Debug("hidden too")
	assert.Empty(t, buf.String())

	logger.Warn("Search returned no matches", "document_id", "doc-1")
	assert.Contains(t, buf.String(), "Search returned no matches")
	assert.Contains(t, buf.String(), "doc-1")
}
