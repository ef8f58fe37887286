package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"restaurant-automation/internal/common/config"
)

type Options struct {
	// NowFunc stamps created_at/updated_at; defaults to the wall clock.
	NowFunc func() time.Time
	Silent  bool
}

func gormConfig(opts Options) *gorm.Config {
	mode := gormlogger.Warn
	if opts.Silent {
		mode = gormlogger.Silent
	}
	c := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(mode),
	}
	if opts.NowFunc != nil {
		c.NowFunc = func() time.Time { return opts.NowFunc().UTC() }
	}
	return c
}

// Open picks the driver from config: postgres (default) or sqlite for local runs.
func Open(ctx context.Context, cfg config.DatabaseConfig, opts Options) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" {
		return OpenSQLite(cfg.Path, opts)
	}
	sqlDB, err := ConnectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(opts))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a sqlite database; ":memory:" gives a private in-memory one.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// у :memory: своя база на каждое соединение
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// ConnectDB opens a pgx-backed *sql.DB, retrying until the server answers.
func ConnectDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslmode)

	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
		pingTTL    = 5 * time.Second
	)

	var db *sql.DB
	var err error

	for i := 1; i <= maxRetries; i++ {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("db open canceled: %w", ctx.Err())
			}
		}

		pctx, cancel := context.WithTimeout(ctx, pingTTL)
		err = db.PingContext(pctx)
		cancel()
		if err == nil {
			db.SetMaxOpenConns(20)
			db.SetConnMaxIdleTime(5 * time.Minute)
			return db, nil
		}

		_ = db.Close()

		select {
		case <-time.After(retryDelay):
			continue
		case <-ctx.Done():
			return nil, fmt.Errorf("db ping canceled: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
