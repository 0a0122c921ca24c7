package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

// reloadSpy 记录配置变更回调的 Reloadable 实现。
type reloadSpy struct {
	calls int
	last  interface{}
	err   error
}

var _ Reloadable = (*reloadSpy)(nil)

func (r *reloadSpy) OnConfigChange(cfg interface{}) error {
	r.calls++
	r.last = cfg
	return r.err
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w := NewWatcher(viper.New())

	if count := w.HandlerCount(); count != 0 {
		t.Fatalf("expected 0 handlers initially, got %d", count)
	}

	handler := func(_ *viper.Viper) error { return nil }
	w.Subscribe("retriever", handler)
	w.Subscribe("logger", handler)
	if count := w.HandlerCount(); count != 2 {
		t.Errorf("expected 2 handlers, got %d", count)
	}

	// 同名订阅替换原 handler，而非追加
	w.Subscribe("retriever", handler)
	if count := w.HandlerCount(); count != 2 {
		t.Errorf("expected 2 handlers after replacement, got %d", count)
	}

	w.Unsubscribe("logger")
	w.Unsubscribe("missing") // 不存在的 ID 不报错
	if count := w.HandlerCount(); count != 1 {
		t.Errorf("expected 1 handler after unsubscribe, got %d", count)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragserve.yaml")
	if err := os.WriteFile(path, []byte("rag:\n  top-k: 5\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	w := NewWatcher(v)

	if w.IsWatching() {
		t.Fatal("watcher should not be active before Start")
	}

	w.Start()
	w.Start()
	if !w.IsWatching() {
		t.Error("watcher should be active after Start")
	}

	w.Stop()
	w.Stop()
	if w.IsWatching() {
		t.Error("watcher should be inactive after Stop")
	}
}

func TestReloadableSubscriberHandler(t *testing.T) {
	// 检索参数是服务中热更新的配置段
	type retrieverTuning struct {
		TopK           int     `mapstructure:"top-k"`
		ScoreThreshold float64 `mapstructure:"score-threshold"`
	}

	spy := &reloadSpy{}
	target := &retrieverTuning{}
	handler := NewReloadableSubscriber(spy, "rag", target).Handler()

	v := viper.New()
	v.Set("rag.top-k", 8)
	v.Set("rag.score-threshold", 0.45)

	if err := handler(v); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if spy.calls != 1 {
		t.Errorf("expected 1 callback, got %d", spy.calls)
	}
	if target.TopK != 8 || target.ScoreThreshold != 0.45 {
		t.Errorf("unexpected target after reload: %+v", target)
	}
	if spy.last != target {
		t.Error("component should receive the unmarshaled target")
	}
}

func TestReloadableSubscriberRejectedChange(t *testing.T) {
	spy := &reloadSpy{err: fmt.Errorf("top-k out of range")}
	handler := NewReloadableSubscriber(spy, "rag", &struct{}{}).Handler()

	if err := handler(viper.New()); err == nil {
		t.Error("expected error when component rejects the change")
	}
}
