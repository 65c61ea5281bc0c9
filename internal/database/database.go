package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

var ErrEmptyURL = errors.New("database: empty connection string")

type Options struct {
	URL            string
	MaxConnections int
	Logger         *logrus.Logger
}

// Open returns a gorm handle over a bounded pool. At most MaxConnections are
// checked out at once; further callers wait for a release.
func Open(ctx context.Context, options Options) (*gorm.DB, error) {
	driver, dsn, err := ParseURL(options.URL)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector

	switch driver {
	case Postgres:
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("database: open postgres: %w", err)
		}

		dialector = postgres.New(postgres.Config{Conn: conn})
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newLogger(options.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	if options.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(options.MaxConnections)
		sqlDB.SetMaxIdleConns(options.MaxConnections)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// ParseURL picks the driver for raw and returns the DSN handed to it.
// postgres:// and postgresql:// select PostgreSQL; sqlite:, sqlite://,
// file: and bare paths select SQLite.
func ParseURL(raw string) (Driver, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrEmptyURL
	}

	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return Postgres, raw, nil
	}

	path := raw
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		path = strings.TrimPrefix(raw, "sqlite://")
	case strings.HasPrefix(raw, "sqlite:"):
		path = strings.TrimPrefix(raw, "sqlite:")
	}

	if path == "" || strings.HasPrefix(path, "?") {
		return "", "", fmt.Errorf("database: %q has no sqlite path", raw)
	}

	return SQLite, withSQLitePragmas(path), nil
}

// withSQLitePragmas makes concurrent writers wait on the database lock
// instead of failing with SQLITE_BUSY.
func withSQLitePragmas(dsn string) string {
	var pragmas []string

	if !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)")
	}

	if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "journal_mode") {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	if len(pragmas) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + strings.Join(pragmas, "&")
}

func newLogger(l *logrus.Logger) logger.Interface {
	if l == nil {
		return logger.Discard
	}

	level := logger.Warn
	if l.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}

	return logger.New(l, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// IsUniqueViolation reports whether err comes from a unique constraint,
// whichever driver produced it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
