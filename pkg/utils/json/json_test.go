package json

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
	"time"
)

// chatEvent 模拟服务中典型的序列化负载。
type chatEvent struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := chatEvent{
		Type:      "token",
		Content:   "Go 支持并发",
		SessionID: "session_0001",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out chatEvent
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestMarshalOmitsEmptyFields(t *testing.T) {
	data, err := Marshal(chatEvent{Type: "done"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), "content") {
		t.Errorf("expected omitempty field to be dropped, got %s", data)
	}
}

func TestUnmarshalInvalidInput(t *testing.T) {
	var out chatEvent
	if err := Unmarshal([]byte("{not json"), &out); err == nil {
		t.Error("expected error for invalid JSON input")
	}
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(map[string]int{"chunks": 4}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out map[string]int
	if err := NewDecoder(&buf).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out["chunks"] != 4 {
		t.Errorf("expected chunks=4, got %d", out["chunks"])
	}
}

func TestSonicSelection(t *testing.T) {
	wantSonic := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	if IsUsingSonic() != wantSonic {
		t.Errorf("IsUsingSonic() = %v on %s, want %v", IsUsingSonic(), runtime.GOARCH, wantSonic)
	}
}

func TestModeSwitchKeepsSemantics(t *testing.T) {
	defer ConfigStandardMode()

	ConfigFastestMode()
	data, err := Marshal(chatEvent{Type: "sources"})
	if err != nil {
		t.Fatalf("Marshal in fastest mode failed: %v", err)
	}

	var out chatEvent
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal in fastest mode failed: %v", err)
	}
	if out.Type != "sources" {
		t.Errorf("expected type 'sources', got %q", out.Type)
	}
}
