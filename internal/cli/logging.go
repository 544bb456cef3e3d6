package cli

import (
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"chatpdf/config"
)

func setupLogging(c config.LoggingConfig, w io.Writer) {
	slog.SetDefault(newLogger(c, w))
}

// newLogger returns a slog front end over a zap core writing to w.
func newLogger(c config.LoggingConfig, w io.Writer) *slog.Logger {
	var enc zapcore.Encoder
	if strings.ToLower(c.Format) == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapLevel(c.Level))
	return slog.New(zapslog.NewHandler(core))
}

func zapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
