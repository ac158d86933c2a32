// Package transport carries secondary-path audio to the AURA backend, either
// as a live websocket stream or as one batch upload.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"auravoice/internal/domain"
	"auravoice/internal/ports"
	"auravoice/internal/wsstream"
)

// StreamingAdapter ships binary PCM frames to the backend's live STT socket
// and reads `{"text","final"}` messages back.
type StreamingAdapter struct {
	baseURL string
	token   string
	log     *zap.Logger
}

var _ ports.SpeechStreamer = (*StreamingAdapter)(nil)

func NewStreamingAdapter(baseURL string, token string, log *zap.Logger) *StreamingAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamingAdapter{baseURL: baseURL, token: token, log: log}
}

// Start dials the backend socket. It returns only once the connection is
// established; capture must not emit frames before then.
func (a *StreamingAdapter) Start(ctx context.Context, _ ports.StreamConfig) (ports.SpeechStream, error) {
	wsURL, err := socketURL(a.baseURL, "/ws/stt")
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if a.token != "" {
		headers.Set("Authorization", "Bearer "+a.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, domain.MarkNetwork(fmt.Errorf("connect live transcription socket: %w", err))
	}
	a.log.Debug("live transcription socket open", zap.String("url", wsURL))

	stream := wsstream.New(conn, sttCodec{})

	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	return stream, nil
}

// sttCodec speaks the backend's live STT protocol on top of the shared
// websocket stream.
type sttCodec struct{}

func (sttCodec) Decode(payload []byte) (domain.TranscriptEvent, bool, error) {
	var msg sttMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.TranscriptEvent{}, false, nil
	}
	if msg.Error != "" {
		return domain.TranscriptEvent{}, false, errors.New(msg.Error)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return domain.TranscriptEvent{}, false, nil
	}

	kind := domain.TranscriptKindInterim
	if msg.Final {
		kind = domain.TranscriptKindFinal
	}
	return domain.TranscriptEvent{Kind: kind, Text: text}, true, nil
}

func (sttCodec) CloseFrame() (int, []byte) {
	return websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
}

type sttMessage struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Error string `json:"error,omitempty"`
}

func socketURL(base string, path string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("backend base URL is not configured")
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimRight(base, "/") + path, nil
}
