// Package cohere 提供 Cohere Rerank 供应商实现，基于官方 cohere-go SDK。
package cohere

import (
	"context"
	"fmt"
	"strings"
	"time"

	coheregov2 "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/kart-io/tutor-x/pkg/llm"
	"github.com/kart-io/tutor-x/pkg/utils/httpclient"
)

// ProviderName 是 Cohere 供应商的名称标识符
const ProviderName = "cohere"

func init() {
	llm.RegisterRerankProvider(ProviderName, func(c map[string]any) (llm.RerankProvider, error) {
		return NewProvider(c)
	})
}

// Config Cohere 供应商配置。
type Config struct {
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	APIKey      string        `json:"-" mapstructure:"api_key"`
	RerankModel string        `json:"rerank_model" mapstructure:"rerank_model"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.cohere.com",
		RerankModel: "rerank-v3.5",
		Timeout:     15 * time.Second,
	}
}

// Provider Cohere 供应商实现。
type Provider struct {
	config *Config
	client *cohereclient.Client
}

// NewProvider 从配置 map 创建 Cohere 供应商。
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = llm.ConfigString(configMap, llm.ConfigBaseURL, cfg.BaseURL)
	cfg.APIKey = llm.ConfigString(configMap, llm.ConfigAPIKey, cfg.APIKey)
	cfg.RerankModel = llm.ConfigString(configMap, llm.ConfigRerankModel, cfg.RerankModel)
	cfg.Timeout = llm.ConfigDuration(configMap, llm.ConfigTimeout, cfg.Timeout)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: api_key 是必需的")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := cohereclient.NewClient(
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithBaseURL(cfg.BaseURL),
		cohereclient.WithHTTPClient(httpclient.NewClient(cfg.Timeout).HTTPClient()),
	)
	return &Provider{config: cfg, client: client}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Rerank 调用 Cohere Rerank，返回按相关度排序的结果。
// 请求只发送一次，失败由调用方决定是否重试。
func (p *Provider) Rerank(ctx context.Context, query string, documents []string, topN int) ([]llm.RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	items := make([]*coheregov2.RerankRequestDocumentsItem, len(documents))
	for i, doc := range documents {
		items[i] = &coheregov2.RerankRequestDocumentsItem{String: doc}
	}

	model := p.config.RerankModel
	resp, err := p.client.Rerank(ctx, &coheregov2.RerankRequest{
		Query:     query,
		Documents: items,
		Model:     &model,
		TopN:      &topN,
	}, option.WithMaxAttempts(1))
	if err != nil {
		return nil, fmt.Errorf("cohere rerank: %w", err)
	}
	if resp == nil {
		return nil, nil
	}

	results := make([]llm.RerankResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r == nil {
			continue
		}
		results = append(results, llm.RerankResult{Index: r.Index, RelevanceScore: r.RelevanceScore})
	}
	return results, nil
}
