// Package postgres provides the PostgreSQL (pgvector) database client.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kart-io/tutor-x/pkg/component/dblog"
	options "github.com/kart-io/tutor-x/pkg/options/postgres"
)

// Options is re-exported from pkg/options/postgres for convenience.
type Options = options.Options

// NewOptions is re-exported from pkg/options/postgres for convenience.
var NewOptions = options.NewOptions

// Client wraps gorm.DB and provides a PostgreSQL database client.
type Client struct {
	db   *gorm.DB
	opts *Options
}

// New creates a new PostgreSQL client, configures the pool and verifies the connection.
func New(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("postgres options cannot be nil")
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid postgres options: %v", errs)
	}

	db, err := gorm.Open(postgresdriver.Open(BuildDSN(opts)), &gorm.Config{
		Logger: dblog.New(opts.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)

	client := &Client{db: db, opts: opts}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Name returns the name of the storage client.
func (c *Client) Name() string {
	return "postgres"
}

// EnsureVectorExtension installs the pgvector extension when missing.
func (c *Client) EnsureVectorExtension(ctx context.Context) error {
	if err := c.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	return nil
}

// Ping verifies the connection to the PostgreSQL database.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Stats returns database connection statistics.
func (c *Client) Stats() (sql.DBStats, error) {
	sqlDB, err := c.db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Stats(), nil
}

// Close closes the database connection and releases resources.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for closing: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	return nil
}
