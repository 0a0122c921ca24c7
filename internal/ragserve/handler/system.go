package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/ragserve/internal/ragserve/metrics"
)

// ModelInfo 返回当前使用的模型信息。
func (h *Handler) ModelInfo(c *gin.Context) {
	respondOK(c, h.service.ModelInfo())
}

// ValidateModel 检查模型供应商是否可用。
func (h *Handler) ValidateModel(c *gin.Context) {
	if err := h.service.ValidateModel(c.Request.Context()); err != nil {
		respondError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondOK(c, gin.H{"status": "ok"})
}

// Stats 返回服务统计信息。
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, stats)
}

// Healthz 健康检查。
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics 导出 Prometheus 文本格式指标。
func (h *Handler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(metrics.Get().Export("ragserve")))
}
