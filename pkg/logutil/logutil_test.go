package logutil

import (
	"log/slog"
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"trace": LevelTrace,
		"DEBUG": slog.LevelDebug,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for s, expected := range testCases {
		lvl, err := ParseLevel(s)
		assert.NilError(t, err)
		assert.Equal(t, expected, lvl)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestReplaceAttr(t *testing.T) {
	a := ReplaceAttr(nil, slog.Any(slog.LevelKey, LevelTrace))
	assert.Equal(t, "TRACE", a.Value.String())
	a = ReplaceAttr(nil, slog.Any(slog.LevelKey, slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, a.Value.Any())
}
