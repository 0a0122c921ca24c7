package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kart-io/ragserve/internal/ragserve/model"
	"github.com/kart-io/ragserve/pkg/llm"
)

// fakeEmbeddingProvider 确定性嵌入供应商，用于测试。
// 按文本前缀匹配返回预设向量，未匹配时返回 fallback。
type fakeEmbeddingProvider struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	fallback  []float32
	err       error
	lastQuery string
}

func newFakeEmbeddingProvider() *fakeEmbeddingProvider {
	return &fakeEmbeddingProvider{
		vectors:  make(map[string][]float32),
		fallback: []float32{1.0, 0.0, 0.0},
	}
}

func (f *fakeEmbeddingProvider) Name() string { return "fake-embed" }

func (f *fakeEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.EmbedSingle(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbeddingProvider) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastQuery = text
	if f.err != nil {
		return nil, f.err
	}

	src := f.fallback
	if v, ok := f.vectors[text]; ok {
		src = v
	}
	// 返回副本，嵌入器会原地归一化
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (f *fakeEmbeddingProvider) LastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

// fakeChatProvider 返回固定回答的对话供应商，用于测试。
type fakeChatProvider struct {
	mu           sync.Mutex
	answer       string
	err          error
	streamErr    error
	streamNoDone bool          // 流结束时不发送 Done 帧，模拟上游截断
	holdStream   chan struct{} // 非 nil 时，首个片段后阻塞直到该通道关闭或 ctx 取消
	lastMessages []llm.Message
	calls        int
}

var _ llm.ChatProvider = (*fakeChatProvider)(nil)

func newFakeChatProvider(answer string) *fakeChatProvider {
	return &fakeChatProvider{answer: answer}
}

func (f *fakeChatProvider) Name() string { return "fake-chat" }

func (f *fakeChatProvider) Chat(_ context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastMessages = messages
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeChatProvider) ChatStream(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	f.mu.Lock()
	f.lastMessages = messages
	f.calls++
	streamErr := f.streamErr
	noDone := f.streamNoDone
	hold := f.holdStream
	answer := f.answer
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	ch := make(chan llm.StreamChunk, 16)
	go func() {
		defer close(ch)
		if streamErr != nil {
			ch <- llm.StreamChunk{Err: streamErr}
			return
		}
		for i, word := range strings.SplitAfter(answer, " ") {
			ch <- llm.StreamChunk{Content: word}
			if hold != nil && i == 0 {
				select {
				case <-ctx.Done():
					// 取消后像真实供应商一样直接关闭通道
					return
				case <-hold:
				}
			}
		}
		if !noDone {
			ch <- llm.StreamChunk{Done: true}
		}
	}()
	return ch, nil
}

func (f *fakeChatProvider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return f.Chat(ctx, messages)
}

func (f *fakeChatProvider) LastMessages() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessages
}

func (f *fakeChatProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAnswerCache 记录调用的问答缓存，用于测试缓存失效链路。
type fakeAnswerCache struct {
	mu         sync.Mutex
	entries    map[string]*model.ChatResult
	clearCalls int
}

var _ answerCache = (*fakeAnswerCache)(nil)

func newFakeAnswerCache() *fakeAnswerCache {
	return &fakeAnswerCache{entries: make(map[string]*model.ChatResult)}
}

func (f *fakeAnswerCache) Get(_ context.Context, question string) (*model.ChatResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[question], nil
}

func (f *fakeAnswerCache) Set(_ context.Context, question string, result *model.ChatResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[question] = result
	return nil
}

func (f *fakeAnswerCache) Clear(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := len(f.entries)
	f.entries = make(map[string]*model.ChatResult)
	f.clearCalls++
	return removed, nil
}

func (f *fakeAnswerCache) ClearCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}

// systemPromptOf 提取消息列表中的系统提示词。
func systemPromptOf(messages []llm.Message) (string, error) {
	if len(messages) == 0 || messages[0].Role != llm.RoleSystem {
		return "", fmt.Errorf("first message is not a system prompt")
	}
	return messages[0].Content, nil
}
