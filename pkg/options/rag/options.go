// Package rag provides retrieval and ingestion configuration options.
package rag

import (
	"fmt"
	"strings"

	"github.com/kart-io/ragserve/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval and ingestion configuration.
type Options struct {
	// ChunkSize is the size of text chunks, in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks, in characters.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ScoreThreshold 相似度下限，低于该值的检索结果被丢弃。
	ScoreThreshold float64 `json:"score-threshold" mapstructure:"score-threshold"`

	// AllowedExtensions 允许上传的文档扩展名。
	AllowedExtensions []string `json:"allowed-extensions" mapstructure:"allowed-extensions"`

	// SystemPrompt is the system prompt used for grounded question answering.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`
}

// DefaultSystemPrompt is the default system prompt for grounded answering.
const DefaultSystemPrompt = `You are a helpful assistant that answers questions based on the provided document context.

Rules:
- Answer ONLY based on the context provided below.
- If the context does not contain the answer, say you do not have that information in the uploaded documents.
- Be concise and accurate.
- Do not make up information.

Context from documents:
{{context}}`

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		TopK:              5,
		ScoreThreshold:    0.3,
		AllowedExtensions: []string{".txt", ".pdf", ".docx"},
		SystemPrompt:      DefaultSystemPrompt,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"rag.chunk-size", o.ChunkSize, "Size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"rag.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"rag.top-k", o.TopK, "Number of results from similarity search.")
	fs.Float64Var(&o.ScoreThreshold, options.Join(prefixes...)+"rag.score-threshold", o.ScoreThreshold, "Minimum similarity score for retrieved chunks.")
	fs.StringSliceVar(&o.AllowedExtensions, options.Join(prefixes...)+"rag.allowed-extensions", o.AllowedExtensions, "Accepted document file extensions.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap cannot be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be smaller than rag.chunk-size"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	if o.ScoreThreshold < 0 || o.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("rag.score-threshold must be within [0, 1]"))
	}
	for _, ext := range o.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("rag.allowed-extensions entry %q must start with a dot", ext))
		}
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if len(o.AllowedExtensions) == 0 {
		o.AllowedExtensions = []string{".txt", ".pdf", ".docx"}
	}
	return nil
}
