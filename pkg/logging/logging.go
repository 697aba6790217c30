// Package logging builds the zap logger shared by the vgtool commands.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"gitlab.com/efronlicht/enve"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when VG_LOG_LEVEL is unset or unparseable.
const DefaultLevel = zapcore.InfoLevel

// Level reads the minimum log level from VG_LOG_LEVEL. verbose forces debug.
func Level(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	lvl, err := zapcore.ParseLevel(enve.StringOr("VG_LOG_LEVEL", DefaultLevel.String()))
	if err != nil {
		return DefaultLevel
	}
	return lvl
}

// New returns a console logger on stderr tagged with app and a fresh run id.
func New(app string, verbose bool) *zap.Logger {
	return NewWithWriter(app, os.Stderr, Level(verbose))
}

func NewWithWriter(app string, w io.Writer, lvl zapcore.LevelEnabler) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.NanosDurationEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), lvl)
	return zap.New(core).With(
		zap.String("app", app),
		zap.String("run_id", uuid.NewString()),
	)
}
