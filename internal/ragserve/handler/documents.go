package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDocuments 列出全部已索引文档。
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, docs)
}

// GetDocument 查询单个文档。
func (h *Handler) GetDocument(c *gin.Context) {
	id := c.Param("id")

	doc, err := h.service.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		respondError(c, http.StatusNotFound, "document not found: "+id)
		return
	}
	respondOK(c, doc)
}

// ClearDocuments 清空全部已索引文档。
func (h *Handler) ClearDocuments(c *gin.Context) {
	removed, err := h.service.ClearDocuments(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, gin.H{"documents_removed": removed})
}

// DeleteDocument 删除文档及其全部块。
func (h *Handler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")

	existed, err := h.service.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !existed {
		respondError(c, http.StatusNotFound, "document not found: "+id)
		return
	}
	respondOK(c, gin.H{"deleted": id})
}
