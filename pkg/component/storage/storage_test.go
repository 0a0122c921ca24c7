package storage

import (
	"context"
	"testing"
	"time"
)

// stubClient 实现 Client 接口，用于测试。
type stubClient struct {
	healthy bool
}

var _ Client = (*stubClient)(nil)

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Ping(_ context.Context) error {
	if !s.healthy {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *stubClient) Close() error { return nil }

func (s *stubClient) Health() HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return s.Ping(ctx)
	}
}

type stubFactory struct{}

var _ Factory = (*stubFactory)(nil)

func (stubFactory) Create(_ context.Context) (Client, error) {
	return &stubClient{healthy: true}, nil
}

func TestHealthChecker(t *testing.T) {
	if err := (&stubClient{healthy: true}).Health()(); err != nil {
		t.Errorf("expected healthy client to return nil, got %v", err)
	}
	if err := (&stubClient{healthy: false}).Health()(); err == nil {
		t.Error("expected unhealthy client to return error")
	}
}

func TestFactoryCreate(t *testing.T) {
	client, err := stubFactory{}.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if client.Name() != "stub" {
		t.Errorf("expected name 'stub', got %q", client.Name())
	}
}
