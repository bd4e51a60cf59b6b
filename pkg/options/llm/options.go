// Package llm provides model provider configuration options.
package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/tutor-x/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义模型供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（gemini, openai, cohere）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "gemini",
		BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
		Model:    "gemini-embedding-001",
		Timeout:  30 * time.Second,
	}
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "gemini",
		BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
		Model:    "gemini-2.5-flash-lite",
		Timeout:  60 * time.Second,
	}
}

// NewRerankOptions 创建默认 Rerank 供应商配置。
func NewRerankOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "cohere",
		BaseURL:  "https://api.cohere.com",
		Model:    "rerank-v3.5",
		Timeout:  15 * time.Second,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"rerank_model": o.Model,
		"timeout":      o.Timeout,
		"organization": o.Organization,
	}
}

// AddFlags adds flags for provider options; prefixes name the provider role (e.g. "embedding").
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Model provider (gemini, openai, cohere).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Per-request timeout.")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "Organization ID (openai, optional).")
}

// Complete 未配置 APIKey 时从 <PROVIDER>_API_KEY 环境变量读取，例如 GEMINI_API_KEY。
func (o *ProviderOptions) Complete() error {
	if o.APIKey == "" && o.Provider != "" {
		o.APIKey = os.Getenv(strings.ToUpper(o.Provider) + "_API_KEY")
	}
	return nil
}

// Validate validates the provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for %s provider", o.Provider))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}
