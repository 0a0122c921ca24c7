// Package vectorstore provides vector store backend configuration options.
package vectorstore

import (
	"fmt"

	"github.com/kart-io/ragserve/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 向量存储配置。
type Options struct {
	// Backend 存储后端（local, milvus）。
	Backend string `json:"backend" mapstructure:"backend"`

	// Path 本地存储目录，用于持久化索引和元数据。
	Path string `json:"path" mapstructure:"path"`

	// Collection Milvus 集合名称。
	Collection string `json:"collection" mapstructure:"collection"`

	// Dimension 向量维度，Milvus 后端建表时必须指定。
	Dimension int `json:"dimension" mapstructure:"dimension"`
}

// NewOptions 创建默认向量存储配置。
func NewOptions() *Options {
	return &Options{
		Backend:    "local",
		Path:       "./vector_store",
		Collection: "ragserve_chunks",
		Dimension:  768,
	}
}

// AddFlags adds flags for vector store options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, options.Join(prefixes...)+"vectorstore.backend", o.Backend, "Vector store backend (local, milvus).")
	fs.StringVar(&o.Path, options.Join(prefixes...)+"vectorstore.path", o.Path, "Directory for the local vector store persistence files.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"vectorstore.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.Dimension, options.Join(prefixes...)+"vectorstore.dimension", o.Dimension, "Embedding dimension for the milvus backend.")
}

// Validate validates the vector store options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case "local", "milvus":
	default:
		errs = append(errs, fmt.Errorf("vectorstore.backend must be one of [local, milvus], got %q", o.Backend))
	}
	if o.Backend == "local" && o.Path == "" {
		errs = append(errs, fmt.Errorf("vectorstore.path is required for the local backend"))
	}
	if o.Backend == "milvus" && o.Collection == "" {
		errs = append(errs, fmt.Errorf("vectorstore.collection is required for the milvus backend"))
	}
	if o.Backend == "milvus" && o.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("vectorstore.dimension must be positive for the milvus backend"))
	}
	return errs
}

// Complete completes the vector store options with defaults.
func (o *Options) Complete() error {
	if o.Backend == "" {
		o.Backend = "local"
	}
	return nil
}
