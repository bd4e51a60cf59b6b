// Package sqlite provides an embedded SQLite database client for local
// development and tests. It is a pure-Go driver and needs no cgo.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/kart-io/tutor-x/pkg/component/dblog"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Client wraps a gorm.DB backed by SQLite.
type Client struct {
	db *gorm.DB
}

// New opens the database at path. logLevel follows the GORM level numbering
// used by the postgres options (1=silent .. 4=info).
func New(ctx context.Context, path string, logLevel int) (*Client, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: dblog.New(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows one writer; an in-memory database is private to its connection.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}

	return &Client{db: db}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Name returns the name of the storage client.
func (c *Client) Name() string {
	return "sqlite"
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
