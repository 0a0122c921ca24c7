package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListSessions 列出全部会话。
func (h *Handler) ListSessions(c *gin.Context) {
	respondOK(c, h.service.ListSessions())
}

// GetSession 查询会话的消息历史。
func (h *Handler) GetSession(c *gin.Context) {
	id := c.Param("id")

	history, ok := h.service.SessionHistory(id)
	if !ok {
		respondError(c, http.StatusNotFound, "session not found: "+id)
		return
	}
	respondOK(c, gin.H{"id": id, "messages": history})
}

// ClearSessions 删除全部会话。
func (h *Handler) ClearSessions(c *gin.Context) {
	respondOK(c, gin.H{"sessions_removed": h.service.ClearSessions()})
}

// DeleteSession 删除会话及其历史。
func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")

	if !h.service.DeleteSession(id) {
		respondError(c, http.StatusNotFound, "session not found: "+id)
		return
	}
	respondOK(c, gin.H{"deleted": id})
}
