// Package metrics 提供 ragserve 服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ServiceMetrics ragserve 业务指标。
type ServiceMetrics struct {
	// 问答指标
	chatsTotal       uint64 // 总问答次数
	chatsStreaming   uint64 // 流式问答次数
	chatsCacheHits   uint64 // 缓存命中次数
	chatsNoKnowledge uint64 // 无相关内容的问答次数
	chatsErrors      uint64 // 问答错误次数

	// 检索指标
	retrievalTotal    uint64  // 总检索次数
	retrievalDuration float64 // 检索总耗时（秒）
	retrievalErrors   uint64  // 检索错误次数

	// 入库指标
	documentsIngested uint64 // 已入库文档数
	chunksIngested    uint64 // 已入库分块数
	ingestErrors      uint64 // 入库错误次数

	startTime  time.Time
	durationMu sync.Mutex
}

// 全局指标实例。
var (
	globalMetrics *ServiceMetrics
	metricsOnce   sync.Once
)

// Get 获取全局指标实例。
func Get() *ServiceMetrics {
	metricsOnce.Do(func() {
		globalMetrics = &ServiceMetrics{
			startTime: time.Now(),
		}
	})
	return globalMetrics
}

// RecordChat 记录一次问答。
func (m *ServiceMetrics) RecordChat(streaming, cacheHit, noKnowledge bool, err error) {
	atomic.AddUint64(&m.chatsTotal, 1)
	if streaming {
		atomic.AddUint64(&m.chatsStreaming, 1)
	}
	if err != nil {
		atomic.AddUint64(&m.chatsErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.chatsCacheHits, 1)
	}
	if noKnowledge {
		atomic.AddUint64(&m.chatsNoKnowledge, 1)
	}
}

// RecordRetrieval 记录一次检索。
func (m *ServiceMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIngest 记录一次入库。
func (m *ServiceMetrics) RecordIngest(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIngested, uint64(documents))
	atomic.AddUint64(&m.chunksIngested, uint64(chunks))
}

// counter 输出单个 Prometheus counter。
func counter(sb *strings.Builder, prefix, name, help string, value uint64) {
	sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
	sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
	sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, value))
}

// gauge 输出单个 Prometheus gauge。
func gauge(sb *strings.Builder, prefix, name, help string, value float64) {
	sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
	sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", prefix, name))
	sb.WriteString(fmt.Sprintf("%s_%s %.6f\n\n", prefix, name, value))
}

// Export 导出 Prometheus 文本格式指标。
func (m *ServiceMetrics) Export(namespace string) string {
	var sb strings.Builder

	counter(&sb, namespace, "chats_total", "Total number of chat requests.", atomic.LoadUint64(&m.chatsTotal))
	counter(&sb, namespace, "chats_streaming_total", "Number of streaming chat requests.", atomic.LoadUint64(&m.chatsStreaming))
	counter(&sb, namespace, "chats_cache_hits_total", "Number of answer cache hits.", atomic.LoadUint64(&m.chatsCacheHits))
	counter(&sb, namespace, "chats_no_knowledge_total", "Number of chats answered without relevant context.", atomic.LoadUint64(&m.chatsNoKnowledge))
	counter(&sb, namespace, "chats_errors_total", "Number of chat errors.", atomic.LoadUint64(&m.chatsErrors))

	counter(&sb, namespace, "retrieval_total", "Total number of retrievals.", atomic.LoadUint64(&m.retrievalTotal))
	counter(&sb, namespace, "retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	m.durationMu.Unlock()
	gauge(&sb, namespace, "retrieval_duration_seconds_total", "Total retrieval duration.", retrievalDuration)

	counter(&sb, namespace, "documents_ingested_total", "Total documents ingested.", atomic.LoadUint64(&m.documentsIngested))
	counter(&sb, namespace, "chunks_ingested_total", "Total chunks ingested.", atomic.LoadUint64(&m.chunksIngested))
	counter(&sb, namespace, "ingest_errors_total", "Number of ingest errors.", atomic.LoadUint64(&m.ingestErrors))

	gauge(&sb, namespace, "uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *ServiceMetrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	m.durationMu.Unlock()

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrievalDuration := 0.0
	if retrievalTotal > 0 {
		avgRetrievalDuration = retrievalDuration / float64(retrievalTotal)
	}

	return map[string]interface{}{
		"chats": map[string]interface{}{
			"total":        atomic.LoadUint64(&m.chatsTotal),
			"streaming":    atomic.LoadUint64(&m.chatsStreaming),
			"cache_hits":   atomic.LoadUint64(&m.chatsCacheHits),
			"no_knowledge": atomic.LoadUint64(&m.chatsNoKnowledge),
			"errors":       atomic.LoadUint64(&m.chatsErrors),
		},
		"retrieval": map[string]interface{}{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrievalDuration,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
		},
		"ingestion": map[string]interface{}{
			"documents_ingested": atomic.LoadUint64(&m.documentsIngested),
			"chunks_ingested":    atomic.LoadUint64(&m.chunksIngested),
			"errors":             atomic.LoadUint64(&m.ingestErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *ServiceMetrics) Reset() {
	atomic.StoreUint64(&m.chatsTotal, 0)
	atomic.StoreUint64(&m.chatsStreaming, 0)
	atomic.StoreUint64(&m.chatsCacheHits, 0)
	atomic.StoreUint64(&m.chatsNoKnowledge, 0)
	atomic.StoreUint64(&m.chatsErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.documentsIngested, 0)
	atomic.StoreUint64(&m.chunksIngested, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
