package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{input: "debug", expected: zerolog.DebugLevel},
		{input: "INFO", expected: zerolog.InfoLevel},
		{input: "", expected: zerolog.InfoLevel},
		{input: "warning", expected: zerolog.WarnLevel},
		{input: "error", expected: zerolog.ErrorLevel},
		{input: "verbose", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "queuebox.log")

	logger, err := New(Config{Output: "file", Level: "info", File: path})
	require.NoError(t, err)

	logger.Info().Str("song_id", "A").Msg("started")
	logger.Debug().Msg("hidden")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"started"`)
	assert.Contains(t, string(data), `"song_id":"A"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_FileOutputRequiresPath(t *testing.T) {
	_, err := New(Config{Output: "file"})
	assert.Error(t, err)
}

func TestShortCaller(t *testing.T) {
	file := filepath.Join("root", "module", "internal", "app", "coordinator.go")
	assert.Equal(t, filepath.Join("app", "coordinator.go")+":12", shortCaller(0, file, 12))
	assert.Equal(t, "main.go:3", shortCaller(0, "main.go", 3))
}
