// internal/database/tracelog.go
//
// pgx statement logging onto zap.
//
// Context
// -------
// When `database.log_statements` is true, Open attaches a tracelog.TraceLog
// whose Logger is the adapter below.  pgx error, warn, and info keep their
// zap counterparts; every lower level logs at debug.
//
// Notes
// -----
//   - Statement arguments are logged as pgx hands them over.  Keep the
//     flag off where rows carry personal data.
//   - Oxford commas, two spaces after periods.
package database

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
)

// NewTraceLogger adapts log to pgx's tracelog.Logger.  Fields are emitted
// in key order so statement logs diff cleanly.
func NewTraceLogger(log *zap.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]zap.Field, 0, len(keys)+1)
		fields = append(fields, zap.String("pgx_level", level.String()))
		for _, k := range keys {
			fields = append(fields, zap.Any(k, data[k]))
		}

		switch level {
		case tracelog.LogLevelError:
			log.Error(msg, fields...)
		case tracelog.LogLevelWarn:
			log.Warn(msg, fields...)
		case tracelog.LogLevelInfo:
			log.Info(msg, fields...)
		default:
			log.Debug(msg, fields...)
		}
	})
}
