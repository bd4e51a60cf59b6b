package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/tutor-x/internal/model"
)

// newPostgresStore connects to TUTOR_TEST_POSTGRES_DSN; the database must allow CREATE EXTENSION vector.
func newPostgresStore(t *testing.T) *Datastore {
	t.Helper()

	dsn := os.Getenv("TUTOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TUTOR_TEST_POSTGRES_DSN not set")
	}

	db, err := gorm.Open(postgresdriver.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error)
	for _, table := range []string{"step_embeddings", "steps", "lessons", "sections", "courses"} {
		require.NoError(t, db.Exec("DROP TABLE IF EXISTS "+table).Error)
	}

	ds, err := New(db, DialectPostgres)
	require.NoError(t, err)
	require.NoError(t, ds.AutoMigrate(ctx, 3))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return ds
}

func TestPostgres_SearchMatchesScan(t *testing.T) {
	pg := newPostgresStore(t)
	lite := newTestStore(t)
	ctx := context.Background()

	records := func() []*model.StepEmbedding {
		return []*model.StepEmbedding{
			record("e1", "st1", "l1", "s1", "c1", 0, 1, 0, 0),
			record("e2", "st1", "l1", "s1", "c1", 1, 0.8, 0.6, 0),
			record("e3", "st3", "l2", "s2", "c1", 0, 1, 0, 0),
			record("e4", "st3", "l2", "s2", "c1", 1, 0, 1, 0),
		}
	}
	require.NoError(t, pg.CreateStepEmbeddings(ctx, records()))
	require.NoError(t, lite.CreateStepEmbeddings(ctx, records()))

	for _, filter := range []SearchFilter{{CourseID: "c1"}, {SectionID: "s1"}, {}} {
		want, err := lite.SearchEmbeddings(ctx, []float32{1, 0, 0}, filter, 20, 0.6)
		require.NoError(t, err)

		got, err := pg.SearchEmbeddings(ctx, []float32{1, 0, 0}, filter, 20, 0.6)
		require.NoError(t, err)

		require.Len(t, got, len(want))
		for i := range want {
			assert.Equal(t, want[i].StepID, got[i].StepID)
			assert.Equal(t, want[i].ChunkIndex, got[i].ChunkIndex)
			assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-5)
		}
	}
}

func TestPostgres_ConcurrentReplaceKeepsOneGeneration(t *testing.T) {
	pg := newPostgresStore(t)
	ctx := context.Background()

	db := pg.DB()
	require.NoError(t, db.Create(&model.Course{ID: "c1", Slug: "go-basics", Title: "Go Basics"}).Error)
	require.NoError(t, db.Create(&model.Section{ID: "s1", CourseID: "c1", Title: "Intro"}).Error)
	require.NoError(t, db.Create(&model.Lesson{ID: "l1", SectionID: "s1", Title: "Hello"}).Error)
	require.NoError(t, db.Create(&model.Step{ID: "st1", LessonID: "l1", Title: "First"}).Error)

	const generations, chunks = 4, 3
	var g errgroup.Group
	for gen := 0; gen < generations; gen++ {
		g.Go(func() error {
			return pg.Transaction(ctx, func(tx Store) error {
				if err := tx.LockStep(ctx, "st1"); err != nil {
					return err
				}
				if err := tx.DeleteStepEmbeddings(ctx, "st1"); err != nil {
					return err
				}
				records := make([]*model.StepEmbedding, chunks)
				for i := range records {
					records[i] = record(fmt.Sprintf("g%d-%d", gen, i), "st1", "l1", "s1", "c1", i, 1, 0, 0)
				}
				return tx.CreateStepEmbeddings(ctx, records)
			})
		})
	}
	require.NoError(t, g.Wait())

	n, err := pg.CountStepEmbeddings(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, int64(chunks), n)
}
