package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/tutor-x/internal/tutor/metrics"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// MetricsHandler 暴露业务指标。
type MetricsHandler struct {
	metrics  *metrics.TutorMetrics
	exporter http.Handler
}

// NewMetricsHandler 创建 MetricsHandler，m 为 nil 时使用进程级指标实例。
func NewMetricsHandler(m *metrics.TutorMetrics) *MetricsHandler {
	if m == nil {
		m = metrics.GetTutorMetrics()
	}
	return &MetricsHandler{metrics: m, exporter: m.Handler()}
}

// Export 以 Prometheus 抓取格式输出指标。
func (h *MetricsHandler) Export(c *gin.Context) {
	h.exporter.ServeHTTP(c.Writer, c.Request)
}

// Stats 以 JSON 返回同一组指标。
func (h *MetricsHandler) Stats(c *gin.Context) {
	response.OK(c, h.metrics.Stats())
}
