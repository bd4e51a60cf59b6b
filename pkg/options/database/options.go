// Package database selects and configures the relational store backend.
package database

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/tutor-x/pkg/options"
	postgresopts "github.com/kart-io/tutor-x/pkg/options/postgres"
)

var _ options.IOptions = (*Options)(nil)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options 数据库配置。
type Options struct {
	// Driver 数据库驱动：postgres（pgvector）或 sqlite（本地开发）。
	Driver string `json:"driver" mapstructure:"driver"`

	// SQLitePath SQLite 数据文件路径，":memory:" 表示内存库。
	SQLitePath string `json:"sqlite-path" mapstructure:"sqlite-path"`

	// AutoMigrate 启动时自动迁移表结构。
	AutoMigrate bool `json:"auto-migrate" mapstructure:"auto-migrate"`

	// Postgres PostgreSQL 连接配置。
	Postgres *postgresopts.Options `json:"postgres" mapstructure:"postgres"`
}

// NewOptions 创建默认数据库配置。
func NewOptions() *Options {
	return &Options{
		Driver:      DriverPostgres,
		SQLitePath:  "tutor.db",
		AutoMigrate: true,
		Postgres:    postgresopts.NewOptions(),
	}
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "database")...)
	fs.StringVar(&o.Driver, p+"driver", o.Driver, "Database driver (postgres|sqlite).")
	fs.StringVar(&o.SQLitePath, p+"sqlite-path", o.SQLitePath, "SQLite database file when driver is sqlite.")
	fs.BoolVar(&o.AutoMigrate, p+"auto-migrate", o.AutoMigrate, "Migrate tables on startup.")

	if o.Postgres == nil {
		o.Postgres = postgresopts.NewOptions()
	}
	o.Postgres.AddFlags(fs, append(prefixes, "database")...)
}

// Complete completes the database options.
func (o *Options) Complete() error {
	if o.Postgres == nil {
		o.Postgres = postgresopts.NewOptions()
	}
	return o.Postgres.Complete()
}

// Validate validates the database options.
func (o *Options) Validate() []error {
	switch o.Driver {
	case DriverPostgres:
		return o.Postgres.Validate()
	case DriverSQLite:
		if o.SQLitePath == "" {
			return []error{fmt.Errorf("database.sqlite-path is required for sqlite driver")}
		}
		return nil
	default:
		return []error{fmt.Errorf("unsupported database driver %q", o.Driver)}
	}
}
