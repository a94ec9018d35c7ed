package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("should honour the configured level", func(t *testing.T) {
		log, err := New("warn", "")
		require.NoError(t, err)

		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("should keep info for an unknown level", func(t *testing.T) {
		log, err := New("loud", "")
		require.NoError(t, err)

		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("should write to a log file in the given directory", func(t *testing.T) {
		// Arrange
		dir := filepath.Join(t.TempDir(), "logs")
		log, err := New("info", dir)
		require.NoError(t, err)

		// Act
		log.Info("hello")
		_ = log.Sync()

		// Assert
		bs, err := os.ReadFile(filepath.Join(dir, "passd.log"))
		require.NoError(t, err)
		assert.Contains(t, string(bs), `"msg":"hello"`)
	})
}
