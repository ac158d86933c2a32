// Package recognizer implements the primary recognition path: a continuous,
// interim-capable online speech recognizer over a websocket.
package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"auravoice/internal/domain"
	"auravoice/internal/ports"
	"auravoice/internal/wsstream"
)

// Config controls the online recognizer connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Deepgram opens continuous recognition streams against the Deepgram
// listen API.
type Deepgram struct {
	cfg Config
	log *zap.Logger
}

var _ ports.SpeechStreamer = (*Deepgram)(nil)

func NewDeepgram(cfg Config, log *zap.Logger) *Deepgram {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Deepgram{cfg: cfg, log: log}
}

// Configured reports whether the recognizer has credentials and can serve as
// the primary path at all.
func (d *Deepgram) Configured() bool {
	return strings.TrimSpace(d.cfg.APIKey) != ""
}

func (d *Deepgram) Start(ctx context.Context, cfg ports.StreamConfig) (ports.SpeechStream, error) {
	if !d.Configured() {
		return nil, errors.New("recognizer API key is not configured")
	}

	wsURL, err := listenURL(d.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, domain.MarkNetwork(fmt.Errorf("connect recognizer stream: %w", err))
	}
	d.log.Debug("recognizer stream open", zap.String("model", d.cfg.Model))

	stream := wsstream.New(conn, listenCodec{})

	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	return stream, nil
}

// listenCodec speaks the Deepgram live listen protocol on top of the shared
// websocket stream.
type listenCodec struct{}

func (listenCodec) Decode(payload []byte) (domain.TranscriptEvent, bool, error) {
	var msg listenMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.TranscriptEvent{}, false, nil
	}

	if strings.EqualFold(msg.Type, "Error") {
		detail := strings.TrimSpace(msg.Message)
		if detail == "" {
			detail = "recognizer returned an unknown error"
		}
		return domain.TranscriptEvent{}, false, errors.New(detail)
	}

	text := msg.transcript()
	if text == "" {
		return domain.TranscriptEvent{}, false, nil
	}

	event := domain.TranscriptEvent{Text: text, Kind: domain.TranscriptKindInterim}
	if msg.IsFinal || msg.SpeechFinal {
		event.Kind = domain.TranscriptKindFinal
	}
	return event, true, nil
}

func (listenCodec) CloseFrame() (int, []byte) {
	return websocket.TextMessage, []byte(`{"type":"CloseStream"}`)
}

type listenMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (m listenMessage) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

func listenURL(cfg Config, stream ports.StreamConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid recognizer base URL: %w", err)
	}

	if stream.Encoding == "" {
		stream.Encoding = "linear16"
	}
	if stream.SampleRate <= 0 {
		stream.SampleRate = 16000
	}
	if stream.Channels <= 0 {
		stream.Channels = 1
	}

	q := u.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", stream.Encoding)
	q.Set("sample_rate", fmt.Sprintf("%d", stream.SampleRate))
	q.Set("channels", fmt.Sprintf("%d", stream.Channels))
	q.Set("interim_results", fmt.Sprintf("%t", stream.InterimResults))
	q.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
