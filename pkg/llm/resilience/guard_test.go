package resilience

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/pkg/llm"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

type slowEmbedder struct {
	delay time.Duration
	err   error
}

func (s *slowEmbedder) Name() string { return "slow" }

func (s *slowEmbedder) Embed(ctx context.Context, texts []string, _ llm.TaskType) ([][]float32, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return make([][]float32, len(texts)), nil
}

type stubReranker struct{ err error }

func (s *stubReranker) Name() string { return "stub" }

func (s *stubReranker) Rerank(_ context.Context, _ string, _ []string, _ int) ([]llm.RerankResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []llm.RerankResult{{Index: 0, RelevanceScore: 1}}, nil
}

type stubChat struct {
	delay  time.Duration
	stream llm.TextStream
	err    error
}

func (s *stubChat) Name() string { return "chat" }

func (s *stubChat) GenerateStream(ctx context.Context, _, _ string) (llm.TextStream, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.stream, s.err
}

func TestGuardEmbedding(t *testing.T) {
	tests := []struct {
		name        string
		inner       *slowEmbedder
		timeout     time.Duration
		unavailable bool
	}{
		{name: "success", inner: &slowEmbedder{}, timeout: time.Second},
		{name: "timeout", inner: &slowEmbedder{delay: time.Second}, timeout: 20 * time.Millisecond, unavailable: true},
		{name: "upstream error", inner: &slowEmbedder{err: errors.New("502")}, timeout: time.Second, unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GuardEmbedding(tt.inner, tt.timeout)
			out, err := g.Embed(context.Background(), []string{"a", "b"}, llm.TaskRetrievalDocument)
			if tt.unavailable {
				assert.ErrorIs(t, err, apierrors.ErrProviderUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out, 2)
		})
	}
}

func TestGuardEmbedding_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GuardEmbedding(&slowEmbedder{delay: time.Second}, time.Second).
		Embed(ctx, []string{"a"}, llm.TaskRetrievalQuery)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apierrors.ErrProviderUnavailable)
}

func TestGuardRerank(t *testing.T) {
	out, err := GuardRerank(&stubReranker{}, time.Second).Rerank(context.Background(), "q", []string{"a"}, 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = GuardRerank(&stubReranker{err: errors.New("boom")}, time.Second).Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.ErrorIs(t, err, apierrors.ErrProviderUnavailable)
}

func TestGuardChat(t *testing.T) {
	t.Run("stream passes through", func(t *testing.T) {
		g := GuardChat(&stubChat{stream: llm.NewSliceStream(nil, "a", "b")}, time.Second)
		stream, err := g.GenerateStream(context.Background(), "", "q")
		require.NoError(t, err)

		text, err := llm.ReadAll(stream)
		require.NoError(t, err)
		assert.Equal(t, "ab", text)
	})

	t.Run("open timeout", func(t *testing.T) {
		g := GuardChat(&stubChat{delay: time.Second}, 20*time.Millisecond)
		_, err := g.GenerateStream(context.Background(), "", "q")
		assert.ErrorIs(t, err, apierrors.ErrProviderUnavailable)
	})

	t.Run("mid-stream error", func(t *testing.T) {
		g := GuardChat(&stubChat{stream: llm.NewSliceStream(errors.New("reset"), "a")}, time.Second)
		stream, err := g.GenerateStream(context.Background(), "", "q")
		require.NoError(t, err)
		defer stream.Close()

		part, err := stream.Recv()
		require.NoError(t, err)
		assert.Equal(t, "a", part)

		_, err = stream.Recv()
		assert.ErrorIs(t, err, apierrors.ErrProviderUnavailable)
		assert.NotErrorIs(t, err, io.EOF)
	})
}
