package utils

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRollingFileLogger builds a JSON zap logger that writes only to a lumberjack file.
// It backs the HTTP access log so request lines stay out of the application log.
func NewRollingFileLogger(path, level string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (*zap.Logger, error) {
	if path == "" {
		return nil, errors.New("empty log path")
	}
	ws, err := rollingWriter(path, maxSizeMB, maxBackups, maxAgeDays, compress)
	if err != nil {
		return nil, err
	}
	encCfg := encoderConfig()
	encCfg.CallerKey = zapcore.OmitKey

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, parseLevel(level))
	return zap.New(core), nil
}
