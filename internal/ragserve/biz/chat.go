package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/pkg/llm"
)

// NoKnowledgeAnswer 检索不到相关内容时的固定回答。
const NoKnowledgeAnswer = "I do not have knowledge of this based on the uploaded documents."

// ChatConfig 问答服务配置。
type ChatConfig struct {
	// SystemPrompt 系统提示词，{{context}} 占位符会被替换为检索上下文。
	SystemPrompt string
}

// answerCache 问答缓存的最小接口，由 AnswerCache 实现。
type answerCache interface {
	Get(ctx context.Context, question string) (*model.ChatResult, error)
	Set(ctx context.Context, question string, result *model.ChatResult) error
	Clear(ctx context.Context) (int, error)
}

// ChatService 提供基于检索的有据问答。
// 回答只依据检索到的文档内容，会话历史用于检索融合与多轮追问。
type ChatService struct {
	retriever *Retriever
	memory    *ConversationMemory
	provider  llm.ChatProvider
	cache     answerCache
	config    *ChatConfig
}

// NewChatService 创建问答服务实例。cache 可为 nil。
func NewChatService(
	retriever *Retriever,
	memory *ConversationMemory,
	provider llm.ChatProvider,
	cache *AnswerCache,
	config *ChatConfig,
) *ChatService {
	s := &ChatService{
		retriever: retriever,
		memory:    memory,
		provider:  provider,
		config:    config,
	}
	if cache != nil {
		s.cache = cache
	}
	return s
}

// Chat 执行同步问答。sessionID 为空时创建新会话。
// 只有成功产生回答时才将本轮写入会话历史。
func (s *ChatService) Chat(ctx context.Context, sessionID, question string) (*model.ChatResult, error) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	convCtx := s.memory.ContextString(sessionID)

	// 无历史的独立提问才可命中缓存
	if convCtx == "" && s.cache != nil {
		if cached, err := s.cache.Get(ctx, question); err == nil && cached != nil {
			s.memory.AddTurn(sessionID, question, cached.Answer)
			return &model.ChatResult{
				Answer:    cached.Answer,
				SessionID: sessionID,
				Sources:   cached.Sources,
				Cached:    true,
			}, nil
		}
	}

	retrieval, err := s.retriever.RetrieveWithContext(ctx, question, convCtx)
	if err != nil {
		return nil, err
	}

	if len(retrieval.Results) == 0 {
		s.memory.AddTurn(sessionID, question, NoKnowledgeAnswer)
		return &model.ChatResult{
			Answer:    NoKnowledgeAnswer,
			SessionID: sessionID,
			Sources:   []model.Source{},
		}, nil
	}

	messages := s.buildMessages(sessionID, question, retrieval.ContextText)
	answer, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	s.memory.AddTurn(sessionID, question, answer)

	result := &model.ChatResult{
		Answer:    answer,
		SessionID: sessionID,
		Sources:   retrieval.Sources,
	}
	if convCtx == "" && s.cache != nil {
		if err := s.cache.Set(ctx, question, result); err != nil {
			logger.Warnw("failed to cache answer", "error", err.Error())
		}
	}
	return result, nil
}

// ChatStream 执行流式问答，返回事件通道与本次使用的会话 ID。
// 事件顺序为 sources、若干 token、最后 done；出错时以 error
// 事件结束，且不写入会话历史。
func (s *ChatService) ChatStream(ctx context.Context, sessionID, question string) (<-chan model.StreamEvent, string) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	events := make(chan model.StreamEvent, 16)
	go func() {
		defer close(events)

		convCtx := s.memory.ContextString(sessionID)
		retrieval, err := s.retriever.RetrieveWithContext(ctx, question, convCtx)
		if err != nil {
			events <- model.StreamEvent{Type: model.EventError, Error: err.Error()}
			return
		}

		events <- model.StreamEvent{Type: model.EventSources, Sources: retrieval.Sources}

		if len(retrieval.Results) == 0 {
			events <- model.StreamEvent{Type: model.EventToken, Content: NoKnowledgeAnswer}
			s.memory.AddTurn(sessionID, question, NoKnowledgeAnswer)
			events <- model.StreamEvent{Type: model.EventDone, SessionID: sessionID}
			return
		}

		messages := s.buildMessages(sessionID, question, retrieval.ContextText)
		stream, err := s.provider.ChatStream(ctx, messages)
		if err != nil {
			events <- model.StreamEvent{Type: model.EventError, Error: err.Error()}
			return
		}

		var answer strings.Builder
		var completed bool
		for chunk := range stream {
			if chunk.Err != nil {
				events <- model.StreamEvent{Type: model.EventError, Error: chunk.Err.Error()}
				return
			}
			if chunk.Content != "" {
				answer.WriteString(chunk.Content)
				select {
				case events <- model.StreamEvent{Type: model.EventToken, Content: chunk.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				completed = true
				break
			}
		}

		// 流未以 Done 帧收尾（上游截断）或请求已取消时，
		// 部分回答不写入会话历史
		if !completed || ctx.Err() != nil {
			select {
			case events <- model.StreamEvent{Type: model.EventError, Error: "generation interrupted before completion"}:
			case <-ctx.Done():
			}
			return
		}

		s.memory.AddTurn(sessionID, question, answer.String())
		events <- model.StreamEvent{Type: model.EventDone, SessionID: sessionID}
	}()

	return events, sessionID
}

// InvalidateCache 清空缓存的回答。索引内容变化后调用。
func (s *ChatService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Clear(ctx); err != nil {
		logger.Warnw("failed to clear answer cache", "error", err.Error())
	}
}

// buildMessages 构建模型输入：系统提示词（含检索上下文）、
// 最近几轮会话历史、当前问题。
func (s *ChatService) buildMessages(sessionID, question, contextText string) []llm.Message {
	systemPrompt := strings.ReplaceAll(s.config.SystemPrompt, "{{context}}", contextText)

	history := s.memory.RecentMessages(sessionID)
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, msg := range history {
		role := llm.RoleUser
		if msg.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}
