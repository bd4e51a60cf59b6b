package llm

import "time"

// 供应商工厂读取的配置键。
const (
	ConfigBaseURL      = "base_url"
	ConfigAPIKey       = "api_key"
	ConfigEmbedModel   = "embed_model"
	ConfigChatModel    = "chat_model"
	ConfigRerankModel  = "rerank_model"
	ConfigTimeout      = "timeout"
	ConfigOrganization = "organization"
	ConfigDimensions   = "dimensions"
)

// ConfigString 读取非空字符串配置，缺失时返回 def。
func ConfigString(config map[string]any, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return def
}

// ConfigDuration 读取正的时长配置，缺失时返回 def。
func ConfigDuration(config map[string]any, key string, def time.Duration) time.Duration {
	if v, ok := config[key].(time.Duration); ok && v > 0 {
		return v
	}
	return def
}

// ConfigInt 读取正整数配置，缺失时返回 def。
func ConfigInt(config map[string]any, key string, def int) int {
	if v, ok := config[key].(int); ok && v > 0 {
		return v
	}
	return def
}
