// Package db provides GORM initialization with connection pooling, query
// timing and slow query logging.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	pkglogger "github.com/wyfcoding/marketdata/pkg/logger"
	"github.com/wyfcoding/marketdata/pkg/metrics"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config holds MySQL connection settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	LogEnabled      bool
	// Queries slower than this many milliseconds are logged as slow.
	SlowQueryThreshold int
}

// DB wraps the gorm handle.
type DB struct {
	*gorm.DB
}

// Init opens the MySQL connection, configures the pool and pings it. m may
// be nil; when set, every statement's latency feeds DBQueryDuration.
func Init(cfg Config, m *metrics.Metrics) (*DB, error) {
	gdb, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: newGormLogger(cfg, log.New(os.Stdout, "\r\n", log.LstdFlags)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if m != nil {
		if err := registerQueryTiming(gdb, m); err != nil {
			return nil, fmt.Errorf("failed to register query timing: %w", err)
		}
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pkglogger.Info(context.Background(), "Database connected")
	return &DB{DB: gdb}, nil
}

// newGormLogger builds the statement logger with the configured slow query
// threshold. Silent unless query logging is enabled.
func newGormLogger(cfg Config, w gormlogger.Writer) gormlogger.Interface {
	level := gormlogger.Silent
	if cfg.LogEnabled {
		level = gormlogger.Warn
	}
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             time.Duration(cfg.SlowQueryThreshold) * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

const timingStartKey = "metrics:query_start"

// queryTiming returns the before/after callbacks observing statement latency.
func queryTiming(m *metrics.Metrics) (before, after func(*gorm.DB)) {
	before = func(db *gorm.DB) {
		db.InstanceSet(timingStartKey, time.Now())
	}
	after = func(db *gorm.DB) {
		v, ok := db.InstanceGet(timingStartKey)
		if !ok {
			return
		}
		if start, ok := v.(time.Time); ok {
			m.DBQueryDuration.Observe(time.Since(start).Seconds())
		}
	}
	return before, after
}

// registerQueryTiming hooks the timing callbacks around every statement kind.
func registerQueryTiming(gdb *gorm.DB, m *metrics.Metrics) error {
	before, after := queryTiming(m)

	cb := gdb.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", after); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:after_delete", after); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("metrics:before_row", before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("metrics:after_row", after); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
