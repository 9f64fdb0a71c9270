package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger writing JSON to stderr. Verbose enables debug level.
func New(verbose bool) (*zap.Logger, error) {
	return build(verbose, "stderr")
}

// NewFile builds the same logger writing to path. An empty path returns a no-op logger,
// used by the terminal UI which owns stdout and stderr.
func NewFile(path string, verbose bool) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	return build(verbose, path)
}

func build(verbose bool, output string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{output}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
