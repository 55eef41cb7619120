// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// z2p writes lifecycle, request, and error events to one JSON log per day
// under `<dir>/YYYY-MM-DD.log`.  When running in an interactive TTY we tee
// the same events, human-readable, to stdout.  Rotation, compression, and
// retention are handled by Lumberjack; no external log-rotate job is
// required.
//
// Usage
// -----
//
//	boot := logger.Bootstrap()                  // before config exists
//	cfg, err := config.Load(ctx, boot)
//	log, err := logger.Init(cfg.Log, isTTY())   // once per process
//	log.Infow("listening", "addr", addr)
//
// Notes
// -----
//   - Zap core uses ISO-8601 timestamps and lowercase levels.
//   - Errors are written to the same sink via `ErrorOutput`.
//   - The logger is passed explicitly.  Nothing here touches zap's globals.
//   - Oxford commas, two spaces after periods.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Tombleron/z2p/internal/config"
)

// DefaultDir is used when LogConfig.Dir is empty.
const DefaultDir = "logs"

var encCfg = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	MessageKey:     "msg",
	CallerKey:      "caller",
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeLevel:    zapcore.LowercaseLevelEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
}

// New returns a *zap.SugaredLogger that writes JSON to
// <cfg.Dir>/YYYY-MM-DD.log.  When tee == true, a console core is also
// attached.
func New(cfg config.LogConfig, tee bool) (*zap.SugaredLogger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logDir := cfg.Dir
	if logDir == "" {
		logDir = DefaultDir
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir %s: %w", logDir, err)
	}

	fileName := time.Now().Format("2006-01-02") + ".log"
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}
	if tee {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stdout),
			level,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
		zap.AddCaller(),
	).Sugar()

	z.Infow("logger online", "dir", logDir, "level", level.String(), "tee", tee)
	return z, nil
}

// Bootstrap returns a console logger on stderr for the short window
// before configuration is loaded.
func Bootstrap() *zap.SugaredLogger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.InfoLevel,
	)
	return zap.New(core).Sugar()
}

//
// Process-wide instance
//

var (
	once    sync.Once
	shared  *zap.SugaredLogger
	initErr error
)

// Init builds the process logger on first call and returns the same
// instance, or the same error, on every later call.  Arguments of later
// calls are ignored.
func Init(cfg config.LogConfig, tee bool) (*zap.SugaredLogger, error) {
	once.Do(func() {
		shared, initErr = New(cfg, tee)
	})
	return shared, initErr
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zap.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
