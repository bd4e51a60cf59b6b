// Package gemini 提供 Google Gemini 供应商实现，支持 Embedding 与流式生成。
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/tutor-x/pkg/llm"
	"github.com/kart-io/tutor-x/pkg/utils/httpclient"
	"github.com/kart-io/tutor-x/pkg/utils/json"
)

const ProviderName = "gemini"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(c map[string]any) (llm.EmbeddingProvider, error) {
		return NewProvider(c)
	})
	llm.RegisterChatProvider(ProviderName, func(c map[string]any) (llm.ChatProvider, error) {
		return NewProvider(c)
	})
}

// Config Gemini 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey Google AI API 密钥。
	APIKey string `json:"-" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于生成回答的模型。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Dimensions 输出向量维度，0 表示使用模型默认值。
	Dimensions int `json:"dimensions" mapstructure:"dimensions"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		EmbedModel: "gemini-embedding-001",
		ChatModel:  "gemini-2.5-flash-lite",
		Dimensions: 768,
		Timeout:    60 * time.Second,
	}
}

// Provider Gemini 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Gemini 供应商。
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = llm.ConfigString(configMap, llm.ConfigBaseURL, cfg.BaseURL)
	cfg.APIKey = llm.ConfigString(configMap, llm.ConfigAPIKey, cfg.APIKey)
	cfg.EmbedModel = llm.ConfigString(configMap, llm.ConfigEmbedModel, cfg.EmbedModel)
	cfg.ChatModel = llm.ConfigString(configMap, llm.ConfigChatModel, cfg.ChatModel)
	cfg.Dimensions = llm.ConfigInt(configMap, llm.ConfigDimensions, cfg.Dimensions)
	cfg.Timeout = llm.ConfigDuration(configMap, llm.ConfigTimeout, cfg.Timeout)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Gemini 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// embedRequest batchEmbedContents 请求体。
type embedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model                string  `json:"model"`
	Content              content `json:"content"`
	TaskType             string  `json:"taskType,omitempty"`
	OutputDimensionality int     `json:"outputDimensionality,omitempty"`
}

// embedResponse batchEmbedContents 响应体。
type embedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string, task llm.TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := "models/" + p.config.EmbedModel
	requests := make([]embedContentRequest, len(texts))
	for i, text := range texts {
		requests[i] = embedContentRequest{
			Model:                model,
			Content:              content{Parts: []part{{Text: text}}},
			TaskType:             string(task),
			OutputDimensionality: p.config.Dimensions,
		}
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", p.config.BaseURL, p.config.EmbedModel)
	req, err := p.newRequest(ctx, url, embedRequest{Requests: requests})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: 期望 %d 个向量，实际返回 %d 个", len(texts), len(resp.Embeddings))
	}

	embeddings := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

// generateRequest streamGenerateContent 请求体。
type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

// generateResponse 流中每个事件的数据。
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateStream 以 SSE 方式流式生成回答。
func (p *Provider) GenerateStream(ctx context.Context, systemPrompt, prompt string) (llm.TextStream, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if systemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.config.BaseURL, p.config.ChatModel)
	req, err := p.newRequest(ctx, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.DoStream(req)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return llm.NewSSETextStream(resp.Body, extractText), nil
}

func extractText(data string) (string, bool, error) {
	var chunk generateResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, fmt.Errorf("gemini generate: 解析流事件失败: %w", err)
	}

	var sb strings.Builder
	done := false
	for _, c := range chunk.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if c.FinishReason != "" {
			done = true
		}
	}
	return sb.String(), done, nil
}

func (p *Provider) newRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.config.APIKey)
	return req, nil
}
