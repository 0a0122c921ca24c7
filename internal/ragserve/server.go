// Package ragserve provides the conversational RAG server implementation.
package ragserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/kart-io/ragserve/internal/ragserve/biz"
	"github.com/kart-io/ragserve/internal/ragserve/handler"
	"github.com/kart-io/ragserve/internal/ragserve/router"
	"github.com/kart-io/ragserve/internal/ragserve/store"
	"github.com/kart-io/ragserve/pkg/component/milvus"
	"github.com/kart-io/ragserve/pkg/component/redis"
	"github.com/kart-io/ragserve/pkg/infra/app"
	"github.com/kart-io/ragserve/pkg/infra/config"
	"github.com/kart-io/ragserve/pkg/infra/pool"
	"github.com/kart-io/ragserve/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/ragserve/pkg/llm/deepseek"
	_ "github.com/kart-io/ragserve/pkg/llm/ollama"
	_ "github.com/kart-io/ragserve/pkg/llm/openai"

	cacheopts "github.com/kart-io/ragserve/pkg/options/cache"
	llmopts "github.com/kart-io/ragserve/pkg/options/llm"
	logopts "github.com/kart-io/ragserve/pkg/options/logger"
	memoryopts "github.com/kart-io/ragserve/pkg/options/memory"
	milvusopts "github.com/kart-io/ragserve/pkg/options/milvus"
	ragopts "github.com/kart-io/ragserve/pkg/options/rag"
	httpopts "github.com/kart-io/ragserve/pkg/options/server/http"
	vectorstoreopts "github.com/kart-io/ragserve/pkg/options/vectorstore"
)

// Name is the name of the application.
const Name = "ragserve"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions        *httpopts.Options
	LogOptions         *logopts.Options
	VectorStoreOptions *vectorstoreopts.Options
	MilvusOptions      *milvusopts.Options
	EmbeddingOptions   *llmopts.ProviderOptions
	ChatOptions        *llmopts.ProviderOptions
	RAGOptions         *ragopts.Options
	MemoryOptions      *memoryopts.Options
	CacheOptions       *cacheopts.Options
	ShutdownTimeout    time.Duration
}

// Server represents the RAG server.
type Server struct {
	httpSrv         *http.Server
	watcher         *config.Watcher
	shutdownTimeout time.Duration
	storeClose      func()
	milvusClose     func()
	redisClose      func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting RAG service...")

	// 2. 初始化协程池
	if err := pool.InitGlobal(); err != nil {
		return nil, fmt.Errorf("failed to initialize worker pools: %w", err)
	}
	logger.Info("Worker pools initialized")

	// 3. 初始化向量存储
	vectorStore, milvusClose, err := cfg.newVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	logger.Infow("Vector store initialized", "backend", cfg.VectorStoreOptions.Backend)

	// 4. 初始化 Redis 回答缓存
	answerCache, redisClient, redisClose := cfg.newAnswerCache()

	// 5. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	if redisClient != nil {
		// 嵌入结果稳定，与回答缓存共用 Redis 连接
		embedProvider = llm.NewCachedEmbeddingProvider(embedProvider, redisClient, nil)
		logger.Info("Embedding cache enabled")
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 6. 初始化 Biz 层
	svc := biz.NewService(vectorStore, embedProvider, chatProvider, answerCache, &biz.ServiceConfig{
		Ingestor: &biz.IngestorConfig{
			ChunkSize:         cfg.RAGOptions.ChunkSize,
			ChunkOverlap:      cfg.RAGOptions.ChunkOverlap,
			AllowedExtensions: cfg.RAGOptions.AllowedExtensions,
		},
		Retriever: &biz.RetrieverConfig{
			TopK:           cfg.RAGOptions.TopK,
			ScoreThreshold: cfg.RAGOptions.ScoreThreshold,
		},
		Memory: &biz.MemoryConfig{
			MaxMessages:  cfg.MemoryOptions.MaxMessages,
			ContextTurns: cfg.MemoryOptions.ContextTurns,
		},
		Chat: &biz.ChatConfig{
			SystemPrompt: cfg.RAGOptions.SystemPrompt,
		},
	})
	logger.Infow("RAG service initialized",
		"cache.enabled", cfg.CacheOptions.Enabled,
		"rag.top_k", cfg.RAGOptions.TopK,
		"rag.score_threshold", cfg.RAGOptions.ScoreThreshold,
	)

	// 7. 订阅配置热更新：rag 段变更时动态调整检索参数
	watcher := config.NewWatcher(viper.GetViper())
	sub := config.NewReloadableSubscriber(svc.Retriever(), "rag", &biz.RetrieverConfig{})
	watcher.Subscribe("retriever", sub.Handler())
	watcher.Start()

	// 8. 初始化 Handler 层与路由
	engine := router.New(handler.New(svc))

	httpSrv := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("RAG service is ready")
	return &Server{
		httpSrv:         httpSrv,
		watcher:         watcher,
		shutdownTimeout: cfg.ShutdownTimeout,
		storeClose:      func() { _ = vectorStore.Close(context.Background()) },
		milvusClose:     milvusClose,
		redisClose:      redisClose,
	}, nil
}

// newVectorStore 按配置的后端构建向量存储。
func (cfg *Config) newVectorStore(ctx context.Context) (store.VectorStore, func(), error) {
	switch cfg.VectorStoreOptions.Backend {
	case "milvus":
		milvusClient, err := milvus.New(cfg.MilvusOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		s, err := store.NewMilvusStore(ctx, milvusClient, &store.MilvusStoreConfig{
			Collection:  cfg.VectorStoreOptions.Collection,
			Dimension:   cfg.VectorStoreOptions.Dimension,
			MetadataDir: cfg.VectorStoreOptions.Path,
		})
		if err != nil {
			_ = milvusClient.Close(context.Background())
			return nil, nil, err
		}
		return s, func() { _ = milvusClient.Close(context.Background()) }, nil
	default:
		s, err := store.NewLocalStore(cfg.VectorStoreOptions.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local vector store: %w", err)
		}
		return s, nil, nil
	}
}

// newAnswerCache 构建可选的 Redis 回答缓存。连接失败时降级为无缓存运行。
func (cfg *Config) newAnswerCache() (*biz.AnswerCache, *goredis.Client, func()) {
	if !cfg.CacheOptions.Enabled {
		logger.Info("Answer cache is disabled")
		return nil, nil, nil
	}
	redisOpts := cfg.CacheOptions.Redis
	if redisOpts == nil {
		logger.Warn("Cache is enabled but no Redis configuration provided")
		return nil, nil, nil
	}

	client, err := redis.New(redisOpts)
	if err != nil {
		logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
		return nil, nil, nil
	}

	cache := biz.NewAnswerCache(client.Client(), &biz.AnswerCacheConfig{
		Enabled:   true,
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
	})
	logger.Infow("Redis answer cache initialized",
		"host", redisOpts.Host,
		"port", redisOpts.Port,
		"ttl", cfg.CacheOptions.TTL,
	)
	return cache, client.Client(), func() { _ = client.Close() }
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		s.watcher.Stop()
		if s.storeClose != nil {
			s.storeClose()
		}
		if s.milvusClose != nil {
			s.milvusClose()
		}
		if s.redisClose != nil {
			s.redisClose()
		}
		_ = pool.CloseGlobal()
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Vector store: %s\n", cfg.VectorStoreOptions.Backend)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
}
