// Package logging builds the zerolog loggers used by the binuuid command and
// bridges gorm's logger onto them.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const permission = 0664

// New returns a timestamped JSON logger writing to w at level
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewFile appends to the file at path. The returned file must be closed by
// the caller.
func NewFile(path string, level zerolog.Level) (zerolog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	return New(zerolog.SyncWriter(f), level), f, nil
}

// GormLogger sends gorm's messages and SQL traces to a zerolog.Logger
type GormLogger struct {
	logger        zerolog.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// Gorm returns a gorm logger writing to l. Queries slower than 200ms are
// logged as warnings; every query is logged at debug level.
func Gorm(l zerolog.Logger) *GormLogger {
	return &GormLogger{logger: l, level: gormlogger.Warn, slowThreshold: 200 * time.Millisecond}
}

// LogMode implements gormlogger.Interface
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logger.Info().Msg(fmt.Sprintf(msg, args...))
	}
}

// Warn implements gormlogger.Interface
func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logger.Warn().Msg(fmt.Sprintf(msg, args...))
	}
}

// Error implements gormlogger.Interface
func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logger.Error().Msg(fmt.Sprintf(msg, args...))
	}
}

// Trace implements gormlogger.Interface
func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		ev = g.logger.Error().Err(err)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		ev = g.logger.Warn().Dur("threshold", g.slowThreshold)
	case g.level >= gormlogger.Info:
		ev = g.logger.Debug()
	default:
		return
	}

	sql, rows := fc()
	ev.Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
}

var _ gormlogger.Interface = (*GormLogger)(nil)
