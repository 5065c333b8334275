package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const moduleName = "GORM"

// Logger is the structured logger SQL tracing is routed through.
type Logger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type Options struct {
	// LogLevel is one of silent, error, warn, info. Unknown values mean warn.
	LogLevel      string
	SlowThreshold time.Duration
	Logger        Logger

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func (o Options) withDefaults() Options {
	if o.SlowThreshold <= 0 {
		o.SlowThreshold = time.Second
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 10
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 100
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = time.Hour
	}
	return o
}

// ParseLogLevel maps a config value to a gorm log level.
func ParseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// sqlLogger adapts Logger to gorm's logger interface. Statements are logged
// with parameters stripped; record-not-found is never an error.
type sqlLogger struct {
	log           Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewSQLLogger(log Logger, level gormlogger.LogLevel, slowThreshold time.Duration) gormlogger.Interface {
	return &sqlLogger{log: log, level: level, slowThreshold: slowThreshold}
}

func (l *sqlLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *sqlLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(moduleName, fmt.Sprintf(msg, args...), nil)
	}
}

func (l *sqlLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(moduleName, fmt.Sprintf(msg, args...), nil)
	}
}

func (l *sqlLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(moduleName, fmt.Sprintf(msg, args...), nil)
	}
}

func (l *sqlLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error(moduleName, "Query failed", map[string]interface{}{
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
			"error":      err.Error(),
		})
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn(moduleName, "Slow query", map[string]interface{}{
			"sql":          sql,
			"rows":         rows,
			"elapsed_ms":   elapsed.Milliseconds(),
			"threshold_ms": l.slowThreshold.Milliseconds(),
		})
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug(moduleName, "Query", map[string]interface{}{
			"sql":        sql,
			"rows":       rows,
			"elapsed_ms": elapsed.Milliseconds(),
		})
	}
}

// ParamsFilter keeps bind values out of logged statements.
func (l *sqlLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func configureConnectionPool(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	return nil
}

// Open connects to Postgres with the pool and SQL logging from opts.
func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	opts = opts.withDefaults()

	cfg := &gorm.Config{}
	if opts.Logger != nil {
		cfg.Logger = NewSQLLogger(opts.Logger, ParseLogLevel(opts.LogLevel), opts.SlowThreshold)
	} else {
		cfg.Logger = gormlogger.Discard
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}
	if err := configureConnectionPool(db, opts); err != nil {
		return nil, err
	}
	return db, nil
}

func NewGormDBFromDSN(dsn string, opts Options) (*gorm.DB, error) {
	return Open(postgres.Open(dsn), opts)
}
