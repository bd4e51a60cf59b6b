package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/internal/model"
	"github.com/kart-io/tutor-x/pkg/component/sqlite"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

func newTestStore(t *testing.T) *Datastore {
	t.Helper()

	client, err := sqlite.New(context.Background(), sqlite.MemoryPath, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ds, err := New(client.DB(), DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, ds.AutoMigrate(context.Background(), 3))

	db := ds.DB()
	require.NoError(t, db.Create(&model.Course{ID: "c1", Slug: "go-basics", Title: "Go Basics"}).Error)
	require.NoError(t, db.Create(&model.Course{ID: "c2", Slug: "rust", Title: "Rust"}).Error)
	require.NoError(t, db.Create([]*model.Section{
		{ID: "s1", CourseID: "c1", Title: "Intro", Order: 1},
		{ID: "s2", CourseID: "c1", Title: "Concurrency", Order: 2},
		{ID: "s3", CourseID: "c2", Title: "Ownership", Order: 1},
	}).Error)
	require.NoError(t, db.Create([]*model.Lesson{
		{ID: "l1", SectionID: "s1", Title: "Hello", Order: 1},
		{ID: "l2", SectionID: "s2", Title: "Goroutines", Order: 1},
		{ID: "l3", SectionID: "s3", Title: "Borrowing", Order: 1},
	}).Error)
	require.NoError(t, db.Create([]*model.Step{
		{ID: "st2", LessonID: "l1", Title: "Second", Order: 2},
		{ID: "st1", LessonID: "l1", Title: "First", Order: 1},
		{ID: "st3", LessonID: "l2", Title: "Spawn", Order: 1},
		{ID: "st4", LessonID: "l3", Title: "Borrow", Order: 1},
	}).Error)

	return ds
}

func record(id, stepID, lessonID, sectionID, courseID string, idx int, vec ...float32) *model.StepEmbedding {
	return &model.StepEmbedding{
		ID:         id,
		StepID:     stepID,
		LessonID:   lessonID,
		SectionID:  sectionID,
		CourseID:   courseID,
		ChunkIndex: idx,
		Content:    fmt.Sprintf("%s#%d", stepID, idx),
		Embedding:  pgvector.NewVector(vec),
	}
}

func TestNew_UnsupportedDialect(t *testing.T) {
	_, err := New(nil, "mysql")
	assert.Error(t, err)
}

func TestContentReads(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	step, err := ds.GetStep(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, "First", step.Title)

	_, err = ds.GetStep(ctx, "missing")
	assert.ErrorIs(t, err, apierrors.ErrContentNotFound)

	_, err = ds.GetLesson(ctx, "missing")
	assert.ErrorIs(t, err, apierrors.ErrContentNotFound)

	course, err := ds.GetCourse(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "rust", course.Slug)

	_, err = ds.GetCourse(ctx, "missing")
	assert.ErrorIs(t, err, apierrors.ErrContentNotFound)

	steps, err := ds.ListLessonSteps(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "st1", steps[0].ID)
	assert.Equal(t, "st2", steps[1].ID)

	ids, err := ds.ListCourseStepIDs(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"st1", "st2", "st3"}, ids)
}

func TestGetStepDetail(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	d, err := ds.GetStepDetail(ctx, "st3")
	require.NoError(t, err)
	assert.Equal(t, Ownership{StepID: "st3", LessonID: "l2", SectionID: "s2", CourseID: "c1"}, d.Ownership)
	assert.Equal(t, "Spawn", d.Title)
	assert.Equal(t, "Goroutines", d.LessonTitle)
	assert.Equal(t, "Concurrency", d.SectionTitle)
	assert.Equal(t, "Go Basics", d.CourseTitle)
	assert.Equal(t, "go-basics", d.CourseSlug)

	_, err = ds.GetStepDetail(ctx, "missing")
	assert.ErrorIs(t, err, apierrors.ErrContentNotFound)

	rust, err := ds.GetStepDetail(ctx, "st4")
	require.NoError(t, err)
	assert.Equal(t, "rust", rust.CourseSlug)

	details, err := ds.GetStepDetails(ctx, []string{"st1", "st4", "missing"})
	require.NoError(t, err)
	assert.Len(t, details, 2)
	assert.Equal(t, "Borrowing", details["st4"].LessonTitle)

	empty, err := ds.GetStepDetails(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func seedEmbeddings(t *testing.T, ds *Datastore) {
	t.Helper()
	require.NoError(t, ds.CreateStepEmbeddings(context.Background(), []*model.StepEmbedding{
		record("e1", "st1", "l1", "s1", "c1", 0, 1, 0, 0),
		record("e2", "st1", "l1", "s1", "c1", 1, 0.8, 0.6, 0),
		record("e3", "st3", "l2", "s2", "c1", 0, 1, 0, 0),
		record("e4", "st3", "l2", "s2", "c1", 1, 0, 1, 0),
		record("e5", "st4", "l3", "s3", "c2", 0, 1, 0, 0),
	}))
}

func TestSearchEmbeddings(t *testing.T) {
	ds := newTestStore(t)
	seedEmbeddings(t, ds)
	ctx := context.Background()
	query := []float32{1, 0, 0}

	tests := []struct {
		name          string
		filter        SearchFilter
		k             int
		minSimilarity float64
		want          []string
	}{
		{
			name:          "course scope ordered by distance then step then chunk",
			filter:        SearchFilter{CourseID: "c1"},
			k:             20,
			minSimilarity: 0.6,
			want:          []string{"st1#0", "st3#0", "st1#1"},
		},
		{
			name:          "section scope",
			filter:        SearchFilter{SectionID: "s2"},
			k:             20,
			minSimilarity: 0.6,
			want:          []string{"st3#0"},
		},
		{
			name:          "limit",
			filter:        SearchFilter{CourseID: "c1"},
			k:             2,
			minSimilarity: 0.6,
			want:          []string{"st1#0", "st3#0"},
		},
		{
			name:          "no filter",
			k:             20,
			minSimilarity: 0.9,
			want:          []string{"st1#0", "st3#0", "st4#0"},
		},
		{
			name:          "threshold above every match",
			filter:        SearchFilter{CourseID: "c1"},
			k:             20,
			minSimilarity: 1.01,
			want:          []string{},
		},
		{
			name:          "zero k",
			filter:        SearchFilter{CourseID: "c1"},
			k:             0,
			minSimilarity: 0.6,
			want:          []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := ds.SearchEmbeddings(ctx, query, tt.filter, tt.k, tt.minSimilarity)
			require.NoError(t, err)
			require.NotNil(t, results)

			got := make([]string, len(results))
			for i, r := range results {
				got[i] = r.Content
				assert.LessOrEqual(t, r.Distance, 1-tt.minSimilarity+1e-9)
				if i > 0 {
					assert.LessOrEqual(t, results[i-1].Distance, r.Distance)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchEmbeddings_Distance(t *testing.T) {
	ds := newTestStore(t)
	seedEmbeddings(t, ds)

	results, err := ds.SearchEmbeddings(context.Background(), []float32{1, 0, 0}, SearchFilter{SectionID: "s1"}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.InDelta(t, 0.2, results[1].Distance, 1e-6)
	assert.Equal(t, "l1", results[1].LessonID)
	assert.Equal(t, 1, results[1].ChunkIndex)
}

func TestTransaction_ReplaceAndRollback(t *testing.T) {
	ds := newTestStore(t)
	seedEmbeddings(t, ds)
	ctx := context.Background()

	err := ds.Transaction(ctx, func(tx Store) error {
		if err := tx.DeleteStepEmbeddings(ctx, "st1"); err != nil {
			return err
		}
		return tx.CreateStepEmbeddings(ctx, []*model.StepEmbedding{
			record("n1", "st1", "l1", "s1", "c1", 0, 0, 0, 1),
		})
	})
	require.NoError(t, err)

	n, err := ds.CountStepEmbeddings(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	boom := errors.New("insert failed")
	err = ds.Transaction(ctx, func(tx Store) error {
		if err := tx.DeleteStepEmbeddings(ctx, "st1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err = ds.CountStepEmbeddings(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "删除应当被回滚")

	results, err := ds.SearchEmbeddings(ctx, []float32{0, 0, 1}, SearchFilter{CourseID: "c1"}, 5, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "st1", results[0].StepID)
}

func TestLockStep(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	err := ds.Transaction(ctx, func(tx Store) error {
		return tx.LockStep(ctx, "st1")
	})
	assert.NoError(t, err)

	err = ds.Transaction(ctx, func(tx Store) error {
		return tx.LockStep(ctx, "missing")
	})
	assert.ErrorIs(t, err, apierrors.ErrContentNotFound)
}

func TestCreateStepEmbeddings_DuplicateChunkRejected(t *testing.T) {
	ds := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, ds.CreateStepEmbeddings(ctx, []*model.StepEmbedding{
		record("a0", "st1", "l1", "s1", "c1", 0, 1, 0, 0),
	}))

	// 同一步骤同一分块序号只能有一条记录
	err := ds.CreateStepEmbeddings(ctx, []*model.StepEmbedding{
		record("b0", "st1", "l1", "s1", "c1", 0, 0, 1, 0),
	})
	assert.Error(t, err)

	require.NoError(t, ds.CreateStepEmbeddings(ctx, []*model.StepEmbedding{
		record("b1", "st2", "l1", "s1", "c1", 0, 0, 1, 0),
	}))

	n, err := ds.CountStepEmbeddings(ctx, "st1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestVectorQuery_Build(t *testing.T) {
	tests := []struct {
		name     string
		filter   SearchFilter
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "no filter",
			wantSQL:  "FROM step_embeddings WHERE embedding <=> CAST(? AS vector) <= ? ORDER BY distance ASC, step_id ASC, chunk_index ASC LIMIT ?",
			wantArgs: 4,
		},
		{
			name:     "course filter",
			filter:   SearchFilter{CourseID: "c1"},
			wantSQL:  "<= ? AND course_id = ? ORDER BY",
			wantArgs: 5,
		},
		{
			name:     "both filters",
			filter:   SearchFilter{CourseID: "c1", SectionID: "s1"},
			wantSQL:  "AND course_id = ? AND section_id = ? ORDER BY",
			wantArgs: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := newVectorQuery([]float32{1, 2}, tt.filter, 20, 0.6).build()
			assert.Contains(t, sql, tt.wantSQL)
			assert.Len(t, args, tt.wantArgs)
			assert.InDelta(t, 0.4, args[2].(float64), 1e-9)
			assert.Equal(t, 20, args[len(args)-1])
		})
	}
}
