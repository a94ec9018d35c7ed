// Package logging builds the service's zap logger.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger writing to stdout and, when dir is
// not empty, to dir/passd.log (errors also go to dir/passd_error.log).
// level is any zapcore level name; unknown names keep the default (info).
func New(level, dir string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			config.Level.SetLevel(lvl)
		}
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		config.OutputPaths = append(config.OutputPaths, filepath.Join(dir, "passd.log"))
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, filepath.Join(dir, "passd_error.log"))
	}

	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.StacktraceKey = "stacktrace"
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}
