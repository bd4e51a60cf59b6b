package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/internal/pkg/tutor/content"
	"github.com/kart-io/tutor-x/internal/tutor/biz"
	"github.com/kart-io/tutor-x/internal/tutor/handler"
	"github.com/kart-io/tutor-x/internal/tutor/metrics"
	"github.com/kart-io/tutor-x/internal/tutor/router"
	"github.com/kart-io/tutor-x/pkg/llm"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/json"
)

type fakeService struct {
	userID   string
	req      *biz.AskRequest
	stream   llm.TextStream
	askErr   error
	err      error
	deleted  string
	reembeds []string
}

func (f *fakeService) AskQuestion(_ context.Context, userID string, req *biz.AskRequest) (llm.TextStream, error) {
	f.userID = userID
	f.req = req
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.stream, nil
}

func (f *fakeService) ReembedContent(_ context.Context, stepID string) (*biz.ReembedResult, error) {
	f.reembeds = append(f.reembeds, stepID)
	if f.err != nil {
		return nil, f.err
	}
	return &biz.ReembedResult{StepID: stepID, Chunks: 2}, nil
}

func (f *fakeService) ReembedCourse(_ context.Context, courseID string) (*biz.CourseReembedResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &biz.CourseReembedResult{CourseID: courseID, Steps: 3, Chunks: 4, Failed: []string{"st9"}}, nil
}

func (f *fakeService) DeleteStepEmbeddings(_ context.Context, stepID string) error {
	f.deleted = stepID
	return f.err
}

func (f *fakeService) EstimateDuration(_ context.Context, _ string) (*content.Duration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &content.Duration{WordCount: 400, Minutes: 2, Seconds: 120}, nil
}

type closeTracker struct {
	llm.TextStream
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return c.TextStream.Close()
}

func newEngine(svc biz.Service, checks map[string]router.HealthCheck) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	router.Register(engine, handler.NewTutorHandler(svc), handler.NewMetricsHandler(metrics.New()), checks)
	return engine
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handler.HeaderUserID, "u-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code     int             `json:"code"`
	HTTPCode int             `json:"http_code"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAsk_Streams(t *testing.T) {
	stream := &closeTracker{TextStream: llm.NewSliceStream(nil, "Go ", "là ", "ngôn ngữ.")}
	svc := &fakeService{stream: stream}
	engine := newEngine(svc, nil)

	w := do(engine, http.MethodPost, "/v1/tutor/ask",
		`{"step_id":"st1","scope":"section","question":"Go là gì?","selected_text":"Go","mode":"explain","flexibility":"OPEN"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Go là ngôn ngữ.", w.Body.String())
	assert.True(t, w.Flushed)
	assert.True(t, stream.closed)

	require.NotNil(t, svc.req)
	assert.Equal(t, "u-42", svc.userID)
	assert.Equal(t, &biz.AskRequest{
		StepID:       "st1",
		Scope:        "section",
		Question:     "Go là gì?",
		SelectedText: "Go",
		Mode:         biz.ModeExplain,
		Flexibility:  biz.FlexibilityOpen,
	}, svc.req)
}

func TestAsk_StreamErrorEndsResponse(t *testing.T) {
	stream := &closeTracker{TextStream: llm.NewSliceStream(errors.New("upstream reset"), "partial")}
	engine := newEngine(&fakeService{stream: stream}, nil)

	w := do(engine, http.MethodPost, "/v1/tutor/ask", `{"step_id":"st1","scope":"step","question":"q"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
	assert.True(t, stream.closed)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		askErr error
		status int
		code   int
	}{
		{"malformed json", `{"step_id":`, nil, http.StatusBadRequest, apierrors.ErrInvalidAskRequest.Code},
		{"invalid request", `{}`, apierrors.ErrInvalidAskRequest.WithMessage("question is required"), http.StatusBadRequest, apierrors.ErrInvalidAskRequest.Code},
		{"not found", `{"step_id":"x","scope":"step","question":"q"}`, apierrors.ErrContentNotFound, http.StatusNotFound, apierrors.ErrContentNotFound.Code},
		{"provider down", `{"step_id":"x","scope":"course","question":"q"}`, apierrors.ErrProviderUnavailable, http.StatusServiceUnavailable, apierrors.ErrProviderUnavailable.Code},
		{"unexpected", `{"step_id":"x","scope":"course","question":"q"}`, errors.New("boom"), http.StatusInternalServerError, apierrors.ErrInternal.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(&fakeService{askErr: tt.askErr}, nil)
			w := do(engine, http.MethodPost, "/v1/tutor/ask", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.Equal(t, tt.code, decode(t, w).Code)
		})
	}
}

func TestEmbeddingRoutes(t *testing.T) {
	svc := &fakeService{}
	engine := newEngine(svc, nil)

	w := do(engine, http.MethodPost, "/v1/tutor/steps/st1/embeddings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res biz.ReembedResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, biz.ReembedResult{StepID: "st1", Chunks: 2}, res)

	w = do(engine, http.MethodDelete, "/v1/tutor/steps/st1/embeddings", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "st1", svc.deleted)

	w = do(engine, http.MethodPost, "/v1/tutor/courses/c1/embeddings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var course biz.CourseReembedResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &course))
	assert.Equal(t, []string{"st9"}, course.Failed)

	w = do(engine, http.MethodGet, "/v1/tutor/steps/st1/duration", "")
	require.Equal(t, http.StatusOK, w.Code)
	var d content.Duration
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &d))
	assert.Equal(t, 2, d.Minutes)
}

func TestEmbeddingRoutes_Errors(t *testing.T) {
	engine := newEngine(&fakeService{err: apierrors.ErrContentNotFound}, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/tutor/steps/missing/embeddings"},
		{http.MethodPost, "/v1/tutor/courses/missing/embeddings"},
		{http.MethodGet, "/v1/tutor/steps/missing/duration"},
	} {
		w := do(engine, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}

	engine = newEngine(&fakeService{err: apierrors.ErrEmbeddingPersist}, nil)
	w := do(engine, http.MethodDelete, "/v1/tutor/steps/st1/embeddings", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	w := do(newEngine(&fakeService{}, map[string]router.HealthCheck{"database": ok}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	w = do(newEngine(&fakeService{}, map[string]router.HealthCheck{"database": ok, "redis": down}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsRoutes(t *testing.T) {
	m := metrics.New()
	m.RecordAsk("course", nil)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	router.Register(engine, handler.NewTutorHandler(&fakeService{}), handler.NewMetricsHandler(m), nil)

	w := do(engine, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), `tutor_rag_asks_by_scope_total{scope="course"} 1`)

	w = do(engine, http.MethodGet, "/v1/tutor/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"by_scope":{"course":1}`)
}

func TestMetricsRoutes_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	router.Register(engine, handler.NewTutorHandler(&fakeService{}), nil, nil)

	w := do(engine, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
