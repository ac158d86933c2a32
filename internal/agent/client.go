// Package agent is the client for the AURA processing backend. It hands a
// finalized transcript to the agent endpoint and decodes the structured
// booking response.
package agent

import (
	"bytes"
	"context"
	"encoding/base64"
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

// Client talks to the /agent/process and /voice/speak endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

var _ ports.AgentClient = (*Client)(nil)

func NewClient(baseURL string, token string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient, log: log}
}

type processRequest struct {
	Text string `json:"text"`
}

type processResponse struct {
	DetectedLanguage     string           `json:"detected_language"`
	DetectedLanguageName string           `json:"detected_language_name"`
	TranslatedText       string           `json:"translated_text"`
	Intents              []string         `json:"intents"`
	Bookings             []domain.Booking `json:"bookings"`
	Response             string           `json:"response"`
	Audio                string           `json:"audio,omitempty"`
	AutoListen           bool             `json:"auto_listen,omitempty"`
}

// Process submits a transcript and returns the agent's structured answer.
func (c *Client) Process(ctx context.Context, text string) (domain.ResponsePayload, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ResponsePayload{}, errors.New("empty transcript")
	}

	var decoded processResponse
	if err := c.postJSON(ctx, "/agent/process", processRequest{Text: text}, &decoded); err != nil {
		return domain.ResponsePayload{}, err
	}

	payload := domain.ResponsePayload{
		Text:                 decoded.Response,
		TranslatedText:       decoded.TranslatedText,
		DetectedLanguage:     decoded.DetectedLanguage,
		DetectedLanguageName: decoded.DetectedLanguageName,
		Intents:              decoded.Intents,
		Bookings:             decoded.Bookings,
		AutoListen:           decoded.AutoListen,
	}

	if decoded.Audio != "" {
		audio, err := base64.StdEncoding.DecodeString(decoded.Audio)
		if err != nil {
			// A mangled audio payload should not lose the text answer.
			c.log.Warn("discarding undecodable audio payload", zap.Error(err))
		} else {
			payload.Audio = audio
		}
	}

	c.log.Info("agent response received",
		zap.String("language", payload.DetectedLanguage),
		zap.Strings("intents", payload.Intents),
		zap.Bool("auto_listen", payload.AutoListen),
		zap.Bool("has_audio", payload.HasAudio()))
	return payload, nil
}

// Speak asks the backend to synthesize speech for text, used for replaying a
// response whose audio was not retained.
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	var decoded struct {
		Audio string `json:"audio"`
	}
	if err := c.postJSON(ctx, "/voice/speak", processRequest{Text: text}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Audio == "" {
		return nil, errors.New("backend returned no audio")
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.Audio)
	if err != nil {
		return nil, fmt.Errorf("decode speech audio: %w", err)
	}
	return audio, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.MarkNetwork(fmt.Errorf("call %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %s: %s", path, resp.Status, bytes.TrimSpace(detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
