package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/api/middleware"
)

// RegisterNFCRoutes 注册标签读取桥接路由（/api/v1/nfc）
func RegisterNFCRoutes(
	r *gin.Engine,
	handler *NFCHandler,
	authCfg middleware.AuthConfig,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) {
	if r == nil || handler == nil {
		return
	}

	api := r.Group("/api/v1/nfc")
	api.Use(middleware.RequestTracing())
	// 先认证后限流：未认证请求不占用共享令牌桶
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}
	api.Use(middleware.RateLimit(limiter, logger))

	api.POST("/initialize", handler.Initialize)
	api.GET("/stream", handler.Stream)
	api.POST("/lifecycle/:event", handler.Lifecycle)
	api.GET("/status", handler.Status)
	api.DELETE("/listeners", handler.RemoveListeners)

	endpoints := 5
	if handler.sim != nil {
		api.GET("/sim/tags", handler.ListFixtures)
		api.POST("/sim/tags/:name/tap", handler.TapFixture)
		api.PUT("/sim/radio", handler.SetRadio)
		endpoints += 3
	}

	logger.Info("nfc routes registered", zap.Int("endpoints", endpoints))
}
