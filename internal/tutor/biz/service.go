package biz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/pkg/tutor/content"
	"github.com/kart-io/tutor-x/internal/pkg/tutor/splitter"
	"github.com/kart-io/tutor-x/internal/pkg/tutor/textutil"
	"github.com/kart-io/tutor-x/internal/tutor/metrics"
	"github.com/kart-io/tutor-x/internal/tutor/store"
	"github.com/kart-io/tutor-x/pkg/infra/pool"
	"github.com/kart-io/tutor-x/pkg/llm"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/validator"
)

// Service 定义 AI 助教服务接口。
type Service interface {
	// AskQuestion 拼装上下文并打开模型的流式回答。
	AskQuestion(ctx context.Context, userID string, req *AskRequest) (llm.TextStream, error)
	// ReembedContent 重新切分并向量化单个步骤。
	ReembedContent(ctx context.Context, stepID string) (*ReembedResult, error)
	// ReembedCourse 并发重建课程内全部步骤的向量。
	ReembedCourse(ctx context.Context, courseID string) (*CourseReembedResult, error)
	// DeleteStepEmbeddings 删除步骤的全部向量记录。
	DeleteStepEmbeddings(ctx context.Context, stepID string) error
	// EstimateDuration 估算步骤的阅读时长。
	EstimateDuration(ctx context.Context, stepID string) (*content.Duration, error)
}

// ServiceConfig 助教服务配置。
type ServiceConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	EmbeddingDim    int
	RerankTopN      int
	AnswerLanguage  string
	FrontendURL     string
	WordsPerMinute  int
	RetrieverConfig *RetrieverConfig
	// Metrics 为空时使用全局实例。
	Metrics *metrics.TutorMetrics
}

// DefaultServiceConfig 返回默认配置。
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		ChunkSize:      splitter.DefaultChunkSize,
		ChunkOverlap:   splitter.DefaultChunkOverlap,
		EmbeddingDim:   768,
		RerankTopN:     5,
		AnswerLanguage: "Vietnamese",
		WordsPerMinute: content.DefaultWordsPerMinute,
		RetrieverConfig: &RetrieverConfig{
			TopK:          20,
			MinSimilarity: 0.6,
		},
	}
}

// TutorService 组合检索、重排序、上下文拼装与向量写入。
// 不持有请求间共享的可变状态。
type TutorService struct {
	store     store.Store
	embedder  *Embedder
	retriever *Retriever
	reranker  *Reranker
	assembler *Assembler
	splitter  *splitter.Splitter
	chat      llm.ChatProvider
	workers   *pool.Pool
	metrics   *metrics.TutorMetrics
	config    *ServiceConfig
}

var _ Service = (*TutorService)(nil)

// NewTutorService 创建助教服务实例。
func NewTutorService(
	st store.Store,
	embedProvider llm.EmbeddingProvider,
	rerankProvider llm.RerankProvider,
	chatProvider llm.ChatProvider,
	workers *pool.Pool,
	config *ServiceConfig,
) (*TutorService, error) {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.RetrieverConfig == nil {
		config.RetrieverConfig = DefaultServiceConfig().RetrieverConfig
	}
	if config.Metrics == nil {
		config.Metrics = metrics.GetTutorMetrics()
	}
	if workers == nil {
		return nil, fmt.Errorf("worker pool is required")
	}

	sp, err := splitter.New(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	return &TutorService{
		store:     st,
		embedder:  NewEmbedder(embedProvider, st, config.EmbeddingDim),
		retriever: NewRetriever(st, config.RetrieverConfig),
		reranker:  NewReranker(rerankProvider),
		assembler: NewAssembler(config.FrontendURL, config.AnswerLanguage),
		splitter:  sp,
		chat:      chatProvider,
		workers:   workers,
		metrics:   config.Metrics,
		config:    config,
	}, nil
}

// AskQuestion 校验请求，按范围拼装上下文并打开流式回答。调用方负责关闭返回的流。
func (s *TutorService) AskQuestion(ctx context.Context, userID string, req *AskRequest) (_ llm.TextStream, err error) {
	var scope Scope
	defer func() { s.metrics.RecordAsk(string(scope), err) }()

	if req == nil {
		return nil, apierrors.ErrInvalidAskRequest
	}
	if err := validator.Struct(req); err != nil {
		return nil, apierrors.ErrInvalidAskRequest.WithMessage(err.Error())
	}
	scope, err = ParseScope(req.Scope)
	if err != nil {
		return nil, err
	}

	var (
		contextDoc string
		courseSlug string
	)
	if scope.Broad() {
		contextDoc, courseSlug, err = s.evidenceContext(ctx, scope, req)
	} else {
		contextDoc, courseSlug, err = s.lessonContext(ctx, scope, req.StepID)
	}
	if err != nil {
		return nil, err
	}

	userPrompt := s.assembler.UserPrompt(PromptInput{
		Context:     contextDoc,
		Question:    req.Question,
		Focus:       Focus(req.Question, req.SelectedText),
		Flexibility: req.Flexibility,
		CourseSlug:  courseSlug,
		Mode:        req.Mode,
	})

	logger.Infow("ask question", askLogFields(userID, scope, req, len(contextDoc))...)
	return s.chat.GenerateStream(ctx, s.assembler.SystemPrompt(), userPrompt)
}

// logPreviewRunes 日志中问题与选中文本的最大字符数
const logPreviewRunes = 80

func askLogFields(userID string, scope Scope, req *AskRequest, contextLength int) []any {
	fields := []any{
		"user_id", userID,
		"step_id", req.StepID,
		"scope", string(scope),
		"mode", string(req.Mode),
		"question", textutil.TruncateString(req.Question, logPreviewRunes),
		"context_length", contextLength,
	}
	if req.ConversationID != "" {
		fields = append(fields, "conversation_id", req.ConversationID)
	}
	if req.SelectedText != "" {
		fields = append(fields, "selected_text", textutil.TruncateString(req.SelectedText, logPreviewRunes))
	}
	return fields
}

// lessonContext 直接按结构读取 step 或 lesson 范围的内容，不做向量检索。
func (s *TutorService) lessonContext(ctx context.Context, scope Scope, stepID string) (string, string, error) {
	detail, err := s.store.GetStepDetail(ctx, stepID)
	if err != nil {
		return "", "", err
	}
	steps, err := s.store.ListLessonSteps(ctx, detail.LessonID)
	if err != nil {
		return "", "", err
	}

	if scope == ScopeStep {
		text, err := renderMarkdown(detail.Content)
		if err != nil {
			return "", "", err
		}
		position := 0
		for i, st := range steps {
			if st.ID == stepID {
				position = i + 1
				break
			}
		}
		return s.assembler.StepContext(StepContextInput{
			LessonTitle: detail.LessonTitle,
			Step:        StepBlock{ID: detail.StepID, Title: detail.Title, Text: text},
			Position:    position,
			Total:       len(steps),
		}), detail.CourseSlug, nil
	}

	lesson, err := s.store.GetLesson(ctx, detail.LessonID)
	if err != nil {
		return "", "", err
	}
	blocks := make([]StepBlock, len(steps))
	for i, st := range steps {
		text, err := renderMarkdown(st.Content)
		if err != nil {
			return "", "", err
		}
		blocks[i] = StepBlock{ID: st.ID, Title: st.Title, Text: text}
	}
	return s.assembler.LessonContext(LessonContextInput{
		LessonTitle:       lesson.Title,
		LessonDescription: lesson.Description,
		Steps:             blocks,
		CurrentStepID:     stepID,
	}), detail.CourseSlug, nil
}

// evidenceContext 检索并重排序 section 或 course 范围的分块。
// 检索或重排序失败时中止，不退化为空上下文。
func (s *TutorService) evidenceContext(ctx context.Context, scope Scope, req *AskRequest) (string, string, error) {
	query := RetrievalQuery(req.Question, req.SelectedText)

	var (
		detail *store.StepDetail
		vec    []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = s.store.GetStepDetail(gctx, req.StepID)
		return err
	})
	g.Go(func() error {
		var err error
		vec, err = s.embedder.EmbedQuery(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	filter := store.SearchFilter{SectionID: detail.SectionID}
	if scope == ScopeCourse {
		filter = store.SearchFilter{CourseID: detail.CourseID}
	}

	start := time.Now()
	results, err := s.retriever.Retrieve(ctx, vec, filter)
	s.metrics.RecordRetrieval(time.Since(start), len(results), err)
	if err != nil {
		return "", "", err
	}

	start = time.Now()
	reranked, err := s.reranker.Rerank(ctx, query, results, s.config.RerankTopN)
	if len(results) > 0 {
		s.metrics.RecordRerank(time.Since(start), err)
	}
	if err != nil {
		return "", "", err
	}

	evidence, err := s.attachTitles(ctx, reranked)
	if err != nil {
		return "", "", err
	}
	return s.assembler.EvidenceContext(scope, evidence, req.StepID), detail.CourseSlug, nil
}

// attachTitles 为重排序结果补充步骤及其祖先的标题。已被删除的步骤被跳过。
func (s *TutorService) attachTitles(ctx context.Context, chunks []RerankedChunk) ([]EvidenceChunk, error) {
	if len(chunks) == 0 {
		return []EvidenceChunk{}, nil
	}

	seen := make(map[string]struct{}, len(chunks))
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.StepID]; !ok {
			seen[c.StepID] = struct{}{}
			ids = append(ids, c.StepID)
		}
	}

	details, err := s.store.GetStepDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	evidence := make([]EvidenceChunk, 0, len(chunks))
	for _, c := range chunks {
		d, ok := details[c.StepID]
		if !ok {
			logger.Warnw("retrieved chunk references a missing step", "step_id", c.StepID)
			continue
		}
		evidence = append(evidence, EvidenceChunk{
			RerankedChunk: c,
			StepTitle:     d.Title,
			LessonTitle:   d.LessonTitle,
			SectionTitle:  d.SectionTitle,
			CourseTitle:   d.CourseTitle,
		})
	}
	return evidence, nil
}

// ReembedContent 读取步骤内容，渲染为 Markdown 后切分、向量化，并在事务中替换旧记录。
func (s *TutorService) ReembedContent(ctx context.Context, stepID string) (_ *ReembedResult, err error) {
	chunkCount := 0
	defer func() { s.metrics.RecordEmbedding(chunkCount, err) }()

	detail, err := s.store.GetStepDetail(ctx, stepID)
	if err != nil {
		return nil, err
	}

	markdown, err := renderMarkdown(detail.Content)
	if err != nil {
		return nil, err
	}
	texts := s.splitter.Split(markdown)

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{Content: text, ChunkIndex: i, Embedding: vectors[i]}
	}
	if err := s.embedder.Persist(ctx, detail.Ownership, chunks); err != nil {
		return nil, err
	}
	chunkCount = len(chunks)

	return &ReembedResult{StepID: stepID, Chunks: len(chunks)}, nil
}

// ReembedCourse 在工作池中并发重建课程内每个步骤的向量，每个步骤独立提交事务。
// 单个步骤失败不影响其他步骤，失败的步骤记录在结果中。
func (s *TutorService) ReembedCourse(ctx context.Context, courseID string) (*CourseReembedResult, error) {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	stepIDs, err := s.store.ListCourseStepIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		finished = make(map[string]bool, len(stepIDs))
		result   = &CourseReembedResult{CourseID: courseID}
	)
	batch := s.workers.NewBatch()
	for _, stepID := range stepIDs {
		batch.Go(ctx, func(ctx context.Context) error {
			r, err := s.ReembedContent(ctx, stepID)

			mu.Lock()
			defer mu.Unlock()
			finished[stepID] = true
			if err != nil {
				result.Failed = append(result.Failed, stepID)
				return fmt.Errorf("step %s: %w", stepID, err)
			}
			result.Steps++
			result.Chunks += r.Chunks
			return nil
		})
	}

	batchErr := batch.Wait()

	// 被工作池拒绝、取消或 panic 的任务不会走到记录逻辑，同样算作失败
	for _, stepID := range stepIDs {
		if !finished[stepID] {
			result.Failed = append(result.Failed, stepID)
		}
	}
	sort.Strings(result.Failed)

	if batchErr != nil {
		logger.Warnw("course re-embed finished with failures",
			"course_id", courseID,
			"failed", len(result.Failed),
			"error", batchErr.Error(),
		)
	}

	logger.Infow("course re-embedded",
		"course_id", courseID,
		"steps", result.Steps,
		"chunks", result.Chunks,
	)
	return result, nil
}

// DeleteStepEmbeddings 删除步骤的全部向量记录，用于步骤删除时的清理。
func (s *TutorService) DeleteStepEmbeddings(ctx context.Context, stepID string) error {
	if err := s.store.DeleteStepEmbeddings(ctx, stepID); err != nil {
		return apierrors.ErrEmbeddingPersist.WithCause(err)
	}
	return nil
}

// EstimateDuration 按配置的阅读速度估算步骤的阅读时长。
func (s *TutorService) EstimateDuration(ctx context.Context, stepID string) (*content.Duration, error) {
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	doc, err := content.Decode([]byte(step.Content))
	if err != nil {
		return nil, apierrors.ErrInvalidContent.WithCause(err)
	}
	d := content.EstimateDuration(doc, s.config.WordsPerMinute)
	return &d, nil
}

func renderMarkdown(raw string) (string, error) {
	doc, err := content.Decode([]byte(raw))
	if err != nil {
		return "", apierrors.ErrInvalidContent.WithCause(err)
	}
	return textutil.NormalizeNewlines(content.ToMarkdown(doc)), nil
}
