package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/model"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

// Dialect SQL 后端类型
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var _ Store = (*Datastore)(nil)

// Datastore 基于 gorm 的 Store 实现
type Datastore struct {
	db      *gorm.DB
	dialect Dialect
}

// New 创建 Datastore
func New(db *gorm.DB, dialect Dialect) (*Datastore, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported store dialect: %q", dialect)
	}
	return &Datastore{db: db, dialect: dialect}, nil
}

// DB 返回底层 gorm.DB
func (s *Datastore) DB() *gorm.DB {
	return s.db
}

// Dialect 返回 SQL 后端类型
func (s *Datastore) Dialect() Dialect {
	return s.dialect
}

// Transaction 在单个事务中执行 fn，事务内的 Store 共享同一连接
func (s *Datastore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Datastore{db: tx, dialect: s.dialect})
	})
}

// AutoMigrate 创建内容表与向量表。
// Postgres 上向量列类型为 vector(dim)，并建立 HNSW 索引。
func (s *Datastore) AutoMigrate(ctx context.Context, dim int) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&model.Course{}, &model.Section{}, &model.Lesson{}, &model.Step{}); err != nil {
		return fmt.Errorf("migrate content tables: %w", err)
	}

	if s.dialect == DialectSQLite {
		return db.AutoMigrate(&model.StepEmbedding{})
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS step_embeddings (
			id varchar(26) PRIMARY KEY,
			step_id varchar(64) NOT NULL,
			lesson_id varchar(64) NOT NULL,
			section_id varchar(64) NOT NULL,
			course_id varchar(64) NOT NULL,
			chunk_index integer NOT NULL,
			content text NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_step_embeddings_step_id ON step_embeddings (step_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_step_embeddings_step_chunk ON step_embeddings (step_id, chunk_index)`,
		`CREATE INDEX IF NOT EXISTS idx_step_embeddings_section_id ON step_embeddings (section_id)`,
		`CREATE INDEX IF NOT EXISTS idx_step_embeddings_course_id ON step_embeddings (course_id)`,
		`CREATE INDEX IF NOT EXISTS idx_step_embeddings_embedding_hnsw ON step_embeddings USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate step_embeddings: %w", err)
		}
	}

	logger.Infow("database schema migrated", "dialect", string(s.dialect), "embedding_dim", dim)
	return nil
}

// notFound 将 gorm.ErrRecordNotFound 转换为 ErrContentNotFound
func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.ErrContentNotFound.WithMessagef("%s %s not found", kind, id)
	}
	return err
}
