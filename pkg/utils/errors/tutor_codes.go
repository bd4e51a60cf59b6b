package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Tutor 服务错误码 (服务代码 20)。
var (
	// ErrInvalidAskRequest 提问请求参数无效。
	ErrInvalidAskRequest = NewRequestErr(ServiceTutor, 1, "Invalid ask request", "提问请求参数无效")

	// ErrInvalidScope 上下文范围无效。
	ErrInvalidScope = NewRequestErr(ServiceTutor, 2, "Invalid context scope", "上下文范围无效")

	// ErrContentNotFound 引用的步骤、课时、章节或课程不存在。
	ErrContentNotFound = NewNotFoundErr(ServiceTutor, 1, "Content not found", "内容不存在")

	// ErrInvalidEmbeddingDimension 供应商返回的向量维度不符合预期。
	ErrInvalidEmbeddingDimension = NewInternalErr(ServiceTutor, 1, "Invalid embedding dimension", "向量维度无效")

	// ErrEmptyRetrievalQuery 无法计算检索查询向量。
	ErrEmptyRetrievalQuery = NewInternalErr(ServiceTutor, 2, "Empty retrieval query vector", "检索查询向量为空")

	// ErrInvalidContent 步骤内容无法解析。
	ErrInvalidContent = NewInternalErr(ServiceTutor, 3, "Invalid step content", "步骤内容无法解析")

	// ErrEmbeddingPersist 向量记录持久化失败（事务已回滚）。
	ErrEmbeddingPersist = NewDatabaseErr(ServiceTutor, 1, "Failed to persist embeddings", "向量记录保存失败")

	// ErrProviderUnavailable 外部模型供应商调用失败或超时，客户端可重试。
	ErrProviderUnavailable = NewError(ServiceProvider, CategoryNetwork, 1,
		http.StatusServiceUnavailable, codes.Unavailable, "Model provider unavailable", "模型服务不可用")
)
