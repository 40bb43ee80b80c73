package log

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"triarb/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{
		Level:            "debug",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		t.Fatalf("创建日志失败: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("debug level must be enabled")
	}

	logger, err = NewLogger(config.LoggingConfig{Level: "warn", Encoding: "console", Development: true})
	if err != nil {
		t.Fatalf("默认输出路径应可用: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Errorf("info must be disabled at warn level")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(config.LoggingConfig{Level: "loud", Encoding: "json"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
