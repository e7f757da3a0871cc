package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"production", "prod", "development", ""} {
		log, err := New(mode, "debug")
		require.NoError(t, err, mode)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel), mode)
	}
}

func TestNew_Level(t *testing.T) {
	log, err := New("production", "warn")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("production", "loud")
	assert.Error(t, err)
}
