// Package options contains flags and options for initializing the ragserve server.
package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	ragserve "github.com/kart-io/ragserve/internal/ragserve"
	cacheopts "github.com/kart-io/ragserve/pkg/options/cache"
	llmopts "github.com/kart-io/ragserve/pkg/options/llm"
	logopts "github.com/kart-io/ragserve/pkg/options/logger"
	memoryopts "github.com/kart-io/ragserve/pkg/options/memory"
	milvusopts "github.com/kart-io/ragserve/pkg/options/milvus"
	ragopts "github.com/kart-io/ragserve/pkg/options/rag"
	httpopts "github.com/kart-io/ragserve/pkg/options/server/http"
	vectorstoreopts "github.com/kart-io/ragserve/pkg/options/vectorstore"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// VectorStoreOptions contains vector store backend configuration.
	VectorStoreOptions *vectorstoreopts.Options `json:"vectorstore" mapstructure:"vectorstore"`

	// MilvusOptions contains Milvus client configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains retrieval and ingestion configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// MemoryOptions contains conversation memory configuration.
	MemoryOptions *memoryopts.Options `json:"memory" mapstructure:"memory"`

	// CacheOptions contains answer cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:        httpopts.NewOptions(),
		LogOptions:         logopts.NewOptions(),
		VectorStoreOptions: vectorstoreopts.NewOptions(),
		MilvusOptions:      milvusopts.NewOptions(),
		EmbeddingOptions:   llmopts.NewEmbeddingOptions(),
		ChatOptions:        llmopts.NewChatOptions(),
		RAGOptions:         ragopts.NewOptions(),
		MemoryOptions:      memoryopts.NewOptions(),
		CacheOptions:       cacheopts.NewOptions(),
		ShutdownTimeout:    30 * time.Second,
	}
}

// AddFlags adds flags for all server options to the specified FlagSet.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.LogOptions.AddFlags(fs)
	o.VectorStoreOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs, "embedding")
	o.ChatOptions.AddFlags(fs, "chat")
	o.RAGOptions.AddFlags(fs)
	o.MemoryOptions.AddFlags(fs)
	o.CacheOptions.AddFlags(fs)

	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.VectorStoreOptions.Validate()...)
	if o.VectorStoreOptions.Backend == "milvus" {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.MemoryOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.VectorStoreOptions.Complete(); err != nil {
		return fmt.Errorf("vectorstore: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.MemoryOptions.Complete(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Config builds a ragserve.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ragserve.Config, error) {
	return &ragserve.Config{
		HTTPOptions:        o.HTTPOptions,
		LogOptions:         o.LogOptions,
		VectorStoreOptions: o.VectorStoreOptions,
		MilvusOptions:      o.MilvusOptions,
		EmbeddingOptions:   o.EmbeddingOptions,
		ChatOptions:        o.ChatOptions,
		RAGOptions:         o.RAGOptions,
		MemoryOptions:      o.MemoryOptions,
		CacheOptions:       o.CacheOptions,
		ShutdownTimeout:    o.ShutdownTimeout,
	}, nil
}
