package redis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewWithContextRejectsNilOptions(t *testing.T) {
	if _, err := NewWithContext(context.Background(), nil); err == nil {
		t.Error("expected error for nil options")
	}
}

func TestNewWithContextUnreachableServer(t *testing.T) {
	opts := NewOptions()
	opts.Port = 1
	opts.MaxRetries = 0
	opts.DialTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewWithContext(ctx, opts); err == nil {
		t.Error("expected error when server is unreachable")
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := NewOptions()

	if opts.Host != "127.0.0.1" || opts.Port != 6379 {
		t.Errorf("unexpected default address %s:%d", opts.Host, opts.Port)
	}
	if opts.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", opts.MaxRetries)
	}
	if opts.PoolSize != 10 {
		t.Errorf("expected default pool size 10, got %d", opts.PoolSize)
	}
	if opts.DialTimeout != 5*time.Second {
		t.Errorf("expected default dial timeout 5s, got %v", opts.DialTimeout)
	}
}

func TestOptionsRedactPassword(t *testing.T) {
	opts := &Options{
		Host:     "cache.internal",
		Port:     6379,
		Password: "answer-cache-secret",
	}

	data, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	// 密码不得出现在日志或序列化输出中
	for name, out := range map[string]string{"json": string(data), "string": opts.String()} {
		if strings.Contains(out, "answer-cache-secret") {
			t.Errorf("%s output leaks password: %s", name, out)
		}
		if !strings.Contains(out, "[REDACTED]") {
			t.Errorf("%s output missing redaction placeholder: %s", name, out)
		}
	}
}

func TestOptionsEmptyPasswordNotRedacted(t *testing.T) {
	data, err := json.Marshal(&Options{Host: "localhost", Port: 6379})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "[REDACTED]") {
		t.Errorf("empty password should stay empty, got %s", data)
	}
}
