// Package handler 提供辅导服务的 HTTP 处理器。
package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/tutor/biz"
	"github.com/kart-io/tutor-x/pkg/infra/middleware"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// HeaderUserID 上游网关写入的调用方用户 ID
const HeaderUserID = "X-User-ID"

// TutorHandler 辅导服务 HTTP 处理器
type TutorHandler struct {
	service biz.Service
}

// NewTutorHandler 创建 TutorHandler
func NewTutorHandler(service biz.Service) *TutorHandler {
	return &TutorHandler{service: service}
}

// Ask 回答关于步骤的提问，以纯文本流式输出模型结果。
// 首个分片之前的错误以 JSON 信封返回，之后的错误直接结束流。
func (h *TutorHandler) Ask(c *gin.Context) {
	var req biz.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apierrors.ErrInvalidAskRequest.WithMessage(err.Error()))
		return
	}

	ctx := c.Request.Context()
	stream, err := h.service.AskQuestion(ctx, c.GetHeader(HeaderUserID), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	defer func() { _ = stream.Close() }()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	chunks := 0
	for ctx.Err() == nil {
		part, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				logger.Warnw("answer stream terminated",
					"request_id", middleware.GetRequestID(ctx),
					"step_id", req.StepID,
					"chunks", chunks,
					"error", err.Error(),
				)
			}
			return
		}
		if _, err := c.Writer.WriteString(part); err != nil {
			return
		}
		c.Writer.Flush()
		chunks++
	}
}

// ReembedStep 步骤内容变更后重建其向量
func (h *TutorHandler) ReembedStep(c *gin.Context) {
	stepID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.service.ReembedContent(c.Request.Context(), stepID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteStepEmbeddings 删除已删除步骤的向量
func (h *TutorHandler) DeleteStepEmbeddings(c *gin.Context) {
	stepID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteStepEmbeddings(c.Request.Context(), stepID); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"step_id": stepID})
}

// ReembedCourse 重建课程内全部步骤的向量
func (h *TutorHandler) ReembedCourse(c *gin.Context) {
	courseID, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.service.ReembedCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

// StepDuration 返回步骤的预计阅读时长
func (h *TutorHandler) StepDuration(c *gin.Context) {
	stepID, ok := pathID(c)
	if !ok {
		return
	}

	duration, err := h.service.EstimateDuration(c.Request.Context(), stepID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, duration)
}

func pathID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Fail(c, apierrors.ErrInvalidParam.WithMessage("id is required"))
		return "", false
	}
	return id, true
}
