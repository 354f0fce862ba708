// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

import (
	"context"
	"errors"
	"time"

	"github.com/decred/slog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// log is a logger that is initialized with no output filters. This
// means the package will not perform any logging by default until the caller
// requests it.
var log = slog.Disabled

// DisableLog disables all library log output. Logging output is disabled
// by default until either UseLogger or SetLogWriter are called.
func DisableLog() {
	log = slog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
// This should be used in preference to SetLogWriter if the caller is also
// using slog.
func UseLogger(logger slog.Logger) {
	log = logger
}

// gormLogger routes the gorm log output to the package logger so that the
// debuglevel setting of the GRMD subsystem applies to it.
//
// gormLogger implements the gorm logger.Interface.
type gormLogger struct {
	level logger.LogLevel
}

var (
	_ logger.Interface = (*gormLogger)(nil)
)

func newLogger() *gormLogger {
	return &gormLogger{
		level: logger.Info,
	}
}

// LogMode satisfies the gorm logger.Interface.
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{
		level: level,
	}
}

// Info satisfies the gorm logger.Interface.
func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		log.Infof(msg, args...)
	}
}

// Warn satisfies the gorm logger.Interface.
func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		log.Warnf(msg, args...)
	}
}

// Error satisfies the gorm logger.Interface.
func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		log.Errorf(msg, args...)
	}
}

// Trace satisfies the gorm logger.Interface. Queries are logged at the trace
// level. Failed queries are logged at the debug level since the errors are
// handled and logged by the callers.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		log.Debugf("%v [%v rows, %v]: %v", sql, rows,
			time.Since(begin), err)
	case log.Level() <= slog.LevelTrace:
		sql, rows := fc()
		log.Tracef("%v [%v rows, %v]", sql, rows, time.Since(begin))
	}
}
