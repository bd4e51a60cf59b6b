// Package rag provides configuration for retrieval, chunking and prompt assembly.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/tutor-x/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains RAG pipeline configuration.
type Options struct {
	// ChunkSize 每个分块的最大字符数（按 rune 计）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap 相邻分块的重叠字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK 向量检索返回的最大条数。
	TopK int `json:"top-k" mapstructure:"top-k"`

	// MinSimilarity 最小余弦相似度，距离阈值为 1 - MinSimilarity。
	MinSimilarity float64 `json:"min-similarity" mapstructure:"min-similarity"`

	// RerankTopN 重排序后保留的条数。
	RerankTopN int `json:"rerank-top-n" mapstructure:"rerank-top-n"`

	// EmbeddingDim 向量维度。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// ProviderTimeout 每次外部模型调用的超时上限。
	ProviderTimeout time.Duration `json:"provider-timeout" mapstructure:"provider-timeout"`

	// ReembedWorkers 课程批量重建向量的并发数。
	ReembedWorkers int `json:"reembed-workers" mapstructure:"reembed-workers"`

	// AnswerLanguage 模型回答使用的语言。
	AnswerLanguage string `json:"answer-language" mapstructure:"answer-language"`

	// FrontendURL 引用链接的前端地址。
	FrontendURL string `json:"frontend-url" mapstructure:"frontend-url"`

	// WordsPerMinute 阅读时长估算的速度。
	WordsPerMinute int `json:"words-per-minute" mapstructure:"words-per-minute"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:       6500,
		ChunkOverlap:    900,
		TopK:            20,
		MinSimilarity:   0.6,
		RerankTopN:      5,
		EmbeddingDim:    768,
		ProviderTimeout: 60 * time.Second,
		ReembedWorkers:  4,
		AnswerLanguage:  "Vietnamese",
		FrontendURL:     "http://localhost:3000",
		WordsPerMinute:  200,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "rag")...)
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Maximum chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of candidates from similarity search.")
	fs.Float64Var(&o.MinSimilarity, p+"min-similarity", o.MinSimilarity, "Minimum cosine similarity of retrieved chunks.")
	fs.IntVar(&o.RerankTopN, p+"rerank-top-n", o.RerankTopN, "Number of chunks kept after reranking.")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.DurationVar(&o.ProviderTimeout, p+"provider-timeout", o.ProviderTimeout, "Upper bound for a single model provider call.")
	fs.IntVar(&o.ReembedWorkers, p+"reembed-workers", o.ReembedWorkers, "Concurrent steps during course re-embedding.")
	fs.StringVar(&o.AnswerLanguage, p+"answer-language", o.AnswerLanguage, "Language the tutor answers in.")
	fs.StringVar(&o.FrontendURL, p+"frontend-url", o.FrontendURL, "Frontend base URL used in citation links.")
	fs.IntVar(&o.WordsPerMinute, p+"words-per-minute", o.WordsPerMinute, "Reading speed for duration estimates.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	if o.MinSimilarity < -1 || o.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("rag.min-similarity must be in [-1, 1]"))
	}
	if o.RerankTopN <= 0 {
		errs = append(errs, fmt.Errorf("rag.rerank-top-n must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("rag.embedding-dim must be positive"))
	}
	if o.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("rag.provider-timeout must be positive"))
	}
	if o.ReembedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("rag.reembed-workers must be positive"))
	}
	if o.WordsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("rag.words-per-minute must be positive"))
	}
	return errs
}
