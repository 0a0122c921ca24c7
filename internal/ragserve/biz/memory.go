package biz

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kart-io/ragserve/internal/ragserve/model"
)

// MemoryConfig 会话记忆配置。
type MemoryConfig struct {
	// MaxMessages 每个会话保留的最大消息条数。
	MaxMessages int
	// ContextTurns 构建对话上下文时使用的最近轮数。
	ContextTurns int
}

// session 单个会话的内部状态。
type session struct {
	id        string
	messages  []model.ChatMessage
	createdAt time.Time
	updatedAt time.Time
}

// ConversationMemory 管理有界的每会话对话历史。
// 消息数超过上限时淘汰最早的消息，上下文只取最近几轮。
type ConversationMemory struct {
	mu       sync.RWMutex
	sessions map[string]*session
	config   *MemoryConfig
}

// NewConversationMemory 创建会话记忆管理器。
func NewConversationMemory(config *MemoryConfig) *ConversationMemory {
	if config == nil {
		config = &MemoryConfig{MaxMessages: 20, ContextTurns: 3}
	}
	return &ConversationMemory{
		sessions: make(map[string]*session),
		config:   config,
	}
}

// NewSessionID 生成新的会话 ID。
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

// AddTurn 向会话追加一轮问答（用户消息 + 助手消息）。
// 会话不存在时自动创建，超出上限的最早消息被淘汰。
func (m *ConversationMemory) AddTurn(sessionID, userMsg, assistantMsg string) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{id: sessionID, createdAt: now}
		m.sessions[sessionID] = s
	}

	s.messages = append(s.messages,
		model.ChatMessage{Role: "user", Content: userMsg, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: assistantMsg, Timestamp: now},
	)
	if len(s.messages) > m.config.MaxMessages {
		s.messages = s.messages[len(s.messages)-m.config.MaxMessages:]
	}
	s.updatedAt = now
}

// ContextString 返回会话最近几轮的格式化上下文。
// 每条消息一行，用户消息以 "Human: " 开头，助手消息以
// "Assistant: " 开头。会话不存在或为空时返回空字符串。
func (m *ConversationMemory) ContextString(sessionID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok || len(s.messages) == 0 {
		return ""
	}

	limit := m.config.ContextTurns * 2
	messages := s.messages
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch msg.Role {
		case "user":
			sb.WriteString("Human: ")
		case "assistant":
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

// RecentMessages 返回会话最近几轮的消息，用于构建模型输入。
func (m *ConversationMemory) RecentMessages(sessionID string) []model.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}

	limit := m.config.ContextTurns * 2
	messages := s.messages
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	out := make([]model.ChatMessage, len(messages))
	copy(out, messages)
	return out
}

// History 返回会话的全部消息及会话是否存在。
func (m *ConversationMemory) History(sessionID string) ([]model.ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}

	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out, true
}

// ListSessions 列出全部会话概要，按创建时间升序。
func (m *ConversationMemory) ListSessions() []model.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]model.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, model.SessionInfo{
			ID:           s.id,
			MessageCount: len(s.messages),
			CreatedAt:    s.createdAt,
			UpdatedAt:    s.updatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// DeleteSession 删除会话，返回会话是否存在。
func (m *ConversationMemory) DeleteSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	return true
}

// ClearAll 删除全部会话，返回被删除的会话数量。
func (m *ConversationMemory) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := len(m.sessions)
	m.sessions = make(map[string]*session)
	return removed
}

// Count 返回活跃会话数量。
func (m *ConversationMemory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ValidateSessionID 校验会话 ID 格式。
func ValidateSessionID(sessionID string) error {
	if !strings.HasPrefix(sessionID, "session_") {
		return fmt.Errorf("invalid session id: %s", sessionID)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(sessionID, "session_")); err != nil {
		return fmt.Errorf("invalid session id: %s", sessionID)
	}
	return nil
}
