// Package handler provides HTTP handlers for the ragserve service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
)

// Handler 聚合全部 HTTP 处理器。
type Handler struct {
	service *biz.Service
}

// New 创建处理器实例。
func New(service *biz.Service) *Handler {
	return &Handler{service: service}
}

// Response is the standard response envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// respondOK 返回成功响应。
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// respondError 返回错误响应。
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Code: status, Message: message})
}
