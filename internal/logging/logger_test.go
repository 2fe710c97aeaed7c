package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "debug", "json").WithSession("s1").WithJob("j1")

	l.Debug("hello", "k", 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "j1", entry["job_id"])
	assert.EqualValues(t, 1, entry["k"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "warn", "text")

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogRun(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "info", "json")

	l.LogRun(context.Background(), 3, 4, 5, 2, 0.25, nil)
	assert.Contains(t, buf.String(), `"matches":2`)

	buf.Reset()
	l.LogRun(context.Background(), 3, 4, 0, 0, 0, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "boom")
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
