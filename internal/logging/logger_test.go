package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/sant0-9/surasura/internal/config"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "surasura.log")

	logger, err := New(config.LogConfig{File: path, Level: "info"}, false)
	require.NoError(t, err)

	logger.Sugar().Infow("stage completed", "stage", "target_audience")
	logger.Sugar().Debugw("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"stage completed"`)
	assert.Contains(t, string(data), `"stage":"target_audience"`)
	assert.NotContains(t, string(data), "hidden at info level")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surasura.log")

	logger, err := New(config.LogConfig{File: path, Level: "chatty"}, false)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
