package biz

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/internal/model"
	"github.com/kart-io/tutor-x/internal/tutor/metrics"
	"github.com/kart-io/tutor-x/internal/tutor/store"
	"github.com/kart-io/tutor-x/pkg/component/sqlite"
	"github.com/kart-io/tutor-x/pkg/infra/pool"
	"github.com/kart-io/tutor-x/pkg/llm"
)

const testDim = 3

// fakeEmbedding 按关键字返回固定方向的向量，长度故意不为 1。
type fakeEmbedding struct {
	mu       sync.Mutex
	calls    int
	tasks    []llm.TaskType
	err      error
	override [][]float32
}

func (f *fakeEmbedding) Embed(_ context.Context, texts []string, task llm.TaskType) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tasks = append(f.tasks, task)

	if f.err != nil {
		return nil, f.err
	}
	if f.override != nil {
		return f.override, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		switch {
		case strings.Contains(text, "xyz"):
			out[i] = []float32{0, 0, 5}
		case strings.Contains(text, "Goroutine"):
			out[i] = []float32{0, 3, 0}
		default:
			out[i] = []float32{2, 0, 0}
		}
	}
	return out, nil
}

func (f *fakeEmbedding) Name() string { return "fake-embedding" }

func (f *fakeEmbedding) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRerank 给下标越大的文档越高的分数。
type fakeRerank struct {
	mu      sync.Mutex
	calls   int
	query   string
	topN    int
	err     error
	results []llm.RerankResult
}

func (f *fakeRerank) Rerank(_ context.Context, query string, documents []string, topN int) ([]llm.RerankResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.query = query
	f.topN = topN

	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}

	out := make([]llm.RerankResult, len(documents))
	for i := range documents {
		out[i] = llm.RerankResult{Index: i, RelevanceScore: float64(i) / 10}
	}
	return out, nil
}

func (f *fakeRerank) Name() string { return "fake-rerank" }

type fakeChat struct {
	mu     sync.Mutex
	system string
	prompt string
	err    error
}

func (f *fakeChat) GenerateStream(_ context.Context, systemPrompt, prompt string) (llm.TextStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = systemPrompt
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewSliceStream(nil, "Xin ", "chào"), nil
}

func (f *fakeChat) Name() string { return "fake-chat" }

func paragraphs(texts ...string) string {
	var sb strings.Builder
	sb.WriteString(`{"type":"doc","content":[`)
	for i, t := range texts {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"type":"paragraph","content":[{"type":"text","text":"` + t + `"}]}`)
	}
	sb.WriteString(`]}`)
	return sb.String()
}

func newTestStore(t *testing.T) *store.Datastore {
	t.Helper()

	client, err := sqlite.New(context.Background(), sqlite.MemoryPath, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ds, err := store.New(client.DB(), store.DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, ds.AutoMigrate(context.Background(), testDim))

	db := ds.DB()
	require.NoError(t, db.Create(&model.Course{ID: "c1", Slug: "go-basics", Title: "Go Basics"}).Error)
	require.NoError(t, db.Create([]*model.Section{
		{ID: "s1", CourseID: "c1", Title: "Intro", Order: 1},
		{ID: "s2", CourseID: "c1", Title: "Concurrency", Order: 2},
	}).Error)
	require.NoError(t, db.Create([]*model.Lesson{
		{ID: "l1", SectionID: "s1", Title: "Hello", Description: "Your first program.", Order: 1},
		{ID: "l2", SectionID: "s2", Title: "Goroutines", Order: 1},
	}).Error)
	require.NoError(t, db.Create([]*model.Step{
		{ID: "st1", LessonID: "l1", Title: "First", Order: 1, Content: paragraphs("Go is a language.")},
		{ID: "st2", LessonID: "l1", Title: "Second", Order: 2, Content: paragraphs("A quick lesson.")},
		{ID: "st3", LessonID: "l2", Title: "Spawn", Order: 1, Content: paragraphs("Goroutines are cheap.")},
		{ID: "st4", LessonID: "l2", Title: "Broken", Order: 2, Content: `{"type":`},
	}).Error)

	return ds
}

type testEnv struct {
	store   *store.Datastore
	embed   *fakeEmbedding
	rerank  *fakeRerank
	chat    *fakeChat
	metrics *metrics.TutorMetrics
	workers *pool.Pool
	svc     *TutorService
}

func newTestEnv(t *testing.T, mutate ...func(*ServiceConfig)) *testEnv {
	t.Helper()

	workers, err := pool.NewPool("test-reembed", pool.DefaultConfig(2))
	require.NoError(t, err)
	t.Cleanup(workers.Release)

	cfg := DefaultServiceConfig()
	cfg.EmbeddingDim = testDim
	cfg.FrontendURL = "https://learn.example.com"
	cfg.Metrics = metrics.New()
	for _, m := range mutate {
		m(cfg)
	}

	env := &testEnv{
		store:   newTestStore(t),
		embed:   &fakeEmbedding{},
		rerank:  &fakeRerank{},
		chat:    &fakeChat{},
		metrics: cfg.Metrics,
		workers: workers,
	}
	env.svc, err = NewTutorService(env.store, env.embed, env.rerank, env.chat, workers, cfg)
	require.NoError(t, err)
	return env
}
