package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"auravoice/internal/domain"
	"auravoice/internal/ports"
)

// BatchAdapter uploads one fully buffered recording as a raw s16le body and
// returns the one-shot transcript.
type BatchAdapter struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

var _ ports.BatchTranscriber = (*BatchAdapter)(nil)

func NewBatchAdapter(baseURL string, token string, client *http.Client, log *zap.Logger) *BatchAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchAdapter{baseURL: baseURL, token: token, client: client, log: log}
}

func (a *BatchAdapter) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", errors.New("no audio buffered for upload")
	}

	endpoint := strings.TrimRight(a.baseURL, "/") + "/voice/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(pcm))
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	a.log.Debug("uploading recording", zap.Int("bytes", len(pcm)))
	resp, err := a.client.Do(req)
	if err != nil {
		return "", domain.MarkNetwork(fmt.Errorf("upload recording: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription upload failed: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	return strings.TrimSpace(decoded.Text), nil
}
