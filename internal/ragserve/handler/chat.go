package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
	"github.com/kart-io/ragserve/internal/ragserve/metrics"
	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/pkg/utils/json"
)

// chatTimeout 单次问答的超时时间。
const chatTimeout = 60 * time.Second

// ChatRequest represents a chat request.
type ChatRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id"`
}

// ChatSync 执行同步问答。
func (h *Handler) ChatSync(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	result, err := h.service.Chat(ctx, req.SessionID, req.Question)
	metrics.Get().RecordChat(false, result != nil && result.Cached, result != nil && result.Answer == biz.NoKnowledgeAnswer, err)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			respondError(c, http.StatusRequestTimeout, "chat timed out, please retry or simplify the question")
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(c, result)
}

// ChatStream 执行流式问答，以 SSE 帧返回事件。
// 每帧格式为 "data: {json}\n\n"，事件依次为 sources、token、done；
// 出错时以 error 事件结束。
func (h *Handler) ChatStream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	events, _ := h.service.ChatStream(ctx, req.SessionID, req.Question)

	var failed bool
	for event := range events {
		if event.Type == model.EventError {
			failed = true
		}
		if err := writeSSE(c, event); err != nil {
			// 客户端断开，丢弃剩余事件
			for range events {
			}
			failed = true
			break
		}
	}
	metrics.Get().RecordChat(true, false, false, sseError(failed))
}

// writeSSE 写出一帧 SSE 事件并立即刷新。
func writeSSE(c *gin.Context, event model.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

// sseError 将失败标记转换为指标用的错误值。
func sseError(failed bool) error {
	if failed {
		return errStreamFailed
	}
	return nil
}

var errStreamFailed = fmt.Errorf("stream failed")
