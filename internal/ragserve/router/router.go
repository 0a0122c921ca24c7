// Package router provides HTTP routing for the ragserve service.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/ragserve/handler"
)

// New 构建 gin 引擎并注册全部路由。
func New(h *handler.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", h.Healthz)
	engine.GET("/metrics", h.Metrics)

	api := engine.Group("/api")
	{
		// 文档入库
		api.POST("/ingest", h.Ingest)
		api.POST("/ingest/batch", h.IngestBatch)

		// 文档管理
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.DELETE("/documents/:id", h.DeleteDocument)
		api.DELETE("/documents", h.ClearDocuments)

		// 问答
		api.POST("/chat", h.ChatStream)
		api.POST("/chat/sync", h.ChatSync)

		// 会话管理
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DeleteSession)
		api.DELETE("/sessions", h.ClearSessions)

		// 模型与统计
		api.GET("/model", h.ModelInfo)
		api.POST("/model/validate", h.ValidateModel)
		api.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
	return engine
}
