package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesComponentField(t *testing.T) {
	t.Setenv("APP_ENV", "")
	SetLevel("debug")
	t.Cleanup(func() { SetLevel("info") })

	var buf bytes.Buffer
	l := NewWithWriter("lifecycle", &buf)
	l.Infof("route %d generated", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "lifecycle", line["component"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "route 7 generated", line["message"])
}

func TestLoggerDebugwFields(t *testing.T) {
	t.Setenv("APP_ENV", "")
	SetLevel("debug")
	t.Cleanup(func() { SetLevel("info") })

	var buf bytes.Buffer
	NewWithWriter("oracle", &buf).Debugw("trip", map[string]any{"points": 5})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 5, line["points"])
}

func TestSetLevelFiltersDebug(t *testing.T) {
	t.Setenv("APP_ENV", "")
	SetLevel("warn")
	t.Cleanup(func() { SetLevel("info") })

	var buf bytes.Buffer
	l := NewWithWriter("x", &buf)
	l.Debugf("hidden")
	l.Infof("hidden")
	assert.Empty(t, buf.String())

	l.Warnf("shown")
	assert.Contains(t, buf.String(), "shown")
}
