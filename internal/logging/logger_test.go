package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetup_JSON(t *testing.T) {
	t.Cleanup(func() { _ = Setup(os.Stderr, "info", FormatText) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn", FormatJSON))

	Info("hidden")
	With("path", "greet.prompt.md").Warn("bumped", "version", "1.0.1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "bumped", record["msg"])
	assert.Equal(t, "greet.prompt.md", record["path"])
	assert.Equal(t, "1.0.1", record["version"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetup_Text(t *testing.T) {
	t.Cleanup(func() { _ = Setup(os.Stderr, "info", FormatText) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "debug", FormatText))
	Debug("planned", "dirty", 2)
	assert.Contains(t, buf.String(), "msg=planned dirty=2")
}

func TestSetup_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Setup(&buf, "loud", FormatText))
	assert.Error(t, Setup(&buf, "info", "xml"))
}
