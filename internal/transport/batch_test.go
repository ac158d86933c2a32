package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestBatchAdapterUploadsRawBodyWithBearer(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotLen = len(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"book a table for two"}`))
	}))
	defer server.Close()

	adapter := NewBatchAdapter(server.URL, "token-123", server.Client(), zaptest.NewLogger(t))
	pcm := make([]byte, 24576) // 12288 samples
	text, err := adapter.Transcribe(context.Background(), pcm)
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}

	if text != "book a table for two" {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if gotAuth != "Bearer token-123" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotLen != 24576 {
		t.Fatalf("server received %d bytes, want 24576", gotLen)
	}
}

func TestBatchAdapterEmptyTranscriptMeansNoSpeech(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer server.Close()

	adapter := NewBatchAdapter(server.URL, "", server.Client(), zaptest.NewLogger(t))
	text, err := adapter.Transcribe(context.Background(), []byte{0, 0})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty transcript, got %q", text)
	}
}

func TestBatchAdapterRejectsEmptyBuffer(t *testing.T) {
	t.Parallel()

	adapter := NewBatchAdapter("http://127.0.0.1:1", "", nil, zaptest.NewLogger(t))
	if _, err := adapter.Transcribe(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty buffer")
	}
}

func TestBatchAdapterNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewBatchAdapter(server.URL, "", server.Client(), zaptest.NewLogger(t))
	if _, err := adapter.Transcribe(context.Background(), []byte{1}); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
