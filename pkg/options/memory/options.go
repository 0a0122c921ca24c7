// Package memory provides conversation memory configuration options.
package memory

import (
	"fmt"

	"github.com/kart-io/ragserve/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 会话记忆配置。
type Options struct {
	// MaxMessages 每个会话保留的最大消息条数，超出后淘汰最早的消息。
	MaxMessages int `json:"max-messages" mapstructure:"max-messages"`

	// ContextTurns 构建对话上下文时使用的最近轮数。
	ContextTurns int `json:"context-turns" mapstructure:"context-turns"`
}

// NewOptions 创建默认会话记忆配置。
func NewOptions() *Options {
	return &Options{
		MaxMessages:  20,
		ContextTurns: 3,
	}
}

// AddFlags adds flags for memory options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.MaxMessages, options.Join(prefixes...)+"memory.max-messages", o.MaxMessages, "Maximum messages retained per conversation session.")
	fs.IntVar(&o.ContextTurns, options.Join(prefixes...)+"memory.context-turns", o.ContextTurns, "Number of recent turns used as conversation context.")
}

// Validate validates the memory options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.MaxMessages <= 0 {
		errs = append(errs, fmt.Errorf("memory.max-messages must be positive"))
	} else if o.MaxMessages%2 != 0 {
		// 历史按 用户/助手 成对淘汰，奇数上限会截断半轮
		errs = append(errs, fmt.Errorf("memory.max-messages must be even"))
	}
	if o.ContextTurns <= 0 {
		errs = append(errs, fmt.Errorf("memory.context-turns must be positive"))
	}
	if o.ContextTurns*2 > o.MaxMessages {
		errs = append(errs, fmt.Errorf("memory.context-turns cannot exceed half of memory.max-messages"))
	}
	return errs
}

// Complete completes the memory options with defaults.
func (o *Options) Complete() error {
	return nil
}
