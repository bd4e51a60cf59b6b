// Package openai 提供 OpenAI 供应商实现。
// 同时支持兼容 OpenAI API 的服务（如 Azure OpenAI、LocalAI 等）。
//
// 基本用法示例：
//
//	import _ "github.com/kart-io/tutor-x/pkg/llm/openai"
//
//	embedder, err := llm.NewEmbeddingProvider("openai", map[string]any{
//	    "api_key":    "your-api-key",
//	    "dimensions": 768,
//	})
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kart-io/tutor-x/pkg/llm"
	"github.com/kart-io/tutor-x/pkg/utils/httpclient"
)

// ProviderName 是 OpenAI 供应商的名称标识符
const ProviderName = "openai"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(c map[string]any) (llm.EmbeddingProvider, error) {
		return NewProvider(c)
	})
	llm.RegisterChatProvider(ProviderName, func(c map[string]any) (llm.ChatProvider, error) {
		return NewProvider(c)
	})
}

// Config OpenAI 供应商配置。
type Config struct {
	// BaseURL API 基础地址，默认为 OpenAI 官方地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于对话的模型。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Dimensions 输出向量维度，0 表示使用模型默认值。
	Dimensions int `json:"dimensions" mapstructure:"dimensions"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Organization 组织 ID（可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Dimensions: 768,
		Timeout:    60 * time.Second,
	}
}

// Provider OpenAI 供应商实现。
// 嵌入走带整体超时的客户端，流式对话只限制等待响应头的时间。
type Provider struct {
	config      *Config
	embedClient *goopenai.Client
	chatClient  *goopenai.Client
}

// NewProvider 从配置 map 创建 OpenAI 供应商。
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = llm.ConfigString(configMap, llm.ConfigBaseURL, cfg.BaseURL)
	cfg.APIKey = llm.ConfigString(configMap, llm.ConfigAPIKey, cfg.APIKey)
	cfg.EmbedModel = llm.ConfigString(configMap, llm.ConfigEmbedModel, cfg.EmbedModel)
	cfg.ChatModel = llm.ConfigString(configMap, llm.ConfigChatModel, cfg.ChatModel)
	cfg.Dimensions = llm.ConfigInt(configMap, llm.ConfigDimensions, cfg.Dimensions)
	cfg.Timeout = llm.ConfigDuration(configMap, llm.ConfigTimeout, cfg.Timeout)
	cfg.Organization = llm.ConfigString(configMap, llm.ConfigOrganization, cfg.Organization)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc := httpclient.NewClient(cfg.Timeout)

	newClient := func(withTimeout bool) *goopenai.Client {
		clientConfig := goopenai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = cfg.BaseURL
		clientConfig.OrgID = cfg.Organization
		clientConfig.HTTPClient = hc.StreamHTTPClient()
		if withTimeout {
			clientConfig.HTTPClient = hc.HTTPClient()
		}
		return goopenai.NewClientWithConfig(clientConfig)
	}

	return &Provider{
		config:      cfg,
		embedClient: newClient(true),
		chatClient:  newClient(false),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Embed 为多个文本生成向量嵌入。
// OpenAI 不区分 TaskType，文档与查询使用同一模型。
func (p *Provider) Embed(ctx context.Context, texts []string, _ llm.TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.embedClient.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      texts,
		Model:      goopenai.EmbeddingModel(p.config.EmbedModel),
		Dimensions: p.config.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	// 按 index 排序确保顺序正确
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("openai embed: 缺少第 %d 个向量", i)
		}
	}

	return embeddings, nil
}

// GenerateStream 流式生成回答。
func (p *Provider) GenerateStream(ctx context.Context, systemPrompt, prompt string) (llm.TextStream, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	stream, err := p.chatClient.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:    p.config.ChatModel,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	return &chatStream{stream: stream}, nil
}

// chatStream 将 SDK 的流适配为 TextStream，跳过不含文本的分片。
// [DONE] 之后 SDK 返回 io.EOF。
type chatStream struct {
	stream *goopenai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		for _, c := range resp.Choices {
			sb.WriteString(c.Delta.Content)
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}
