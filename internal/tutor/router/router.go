// Package router 注册辅导服务路由。
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/tutor/handler"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/response"
)

// HealthCheck 检查依赖是否可达
type HealthCheck func(ctx context.Context) error

// Register 在 engine 上注册辅导服务路由，metricsHandler 为 nil 时不注册指标路由。
func Register(engine *gin.Engine, tutorHandler *handler.TutorHandler, metricsHandler *handler.MetricsHandler, checks map[string]HealthCheck) {
	logger.Info("Registering tutor routes...")

	engine.GET("/health", health(checks))
	if metricsHandler != nil {
		engine.GET("/metrics", metricsHandler.Export)
	}

	v1 := engine.Group("/v1")
	{
		tutor := v1.Group("/tutor")
		{
			tutor.POST("/ask", tutorHandler.Ask)

			tutor.POST("/steps/:id/embeddings", tutorHandler.ReembedStep)
			tutor.DELETE("/steps/:id/embeddings", tutorHandler.DeleteStepEmbeddings)
			tutor.GET("/steps/:id/duration", tutorHandler.StepDuration)

			tutor.POST("/courses/:id/embeddings", tutorHandler.ReembedCourse)

			if metricsHandler != nil {
				tutor.GET("/stats", metricsHandler.Stats)
			}
		}
	}

	logger.Info("HTTP routes registered")
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				logger.Warnw("health check failed", "dependency", name, "error", err.Error())
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}

		if !healthy {
			r := response.Err(apierrors.ErrServiceUnavailable)
			r.Data = status
			response.JSON(c, r)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": status})
	}
}
