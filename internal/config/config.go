package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"auravoice/internal/domain"
)

// Config stores runtime configuration for the voice assistant.
type Config struct {
	Server   ServerConfig
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Session  SessionConfig
}

// ServerConfig points at the booking assistant backend.
type ServerConfig struct {
	BaseURL  string
	APIToken string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type AudioConfig struct {
	Backend         string
	RecorderCommand string
	PlayerCommand   string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

const (
	AudioBackendPortAudio = "portaudio"
	AudioBackendFFMPEG    = "ffmpeg"
)

type SessionConfig struct {
	Transport       domain.Transport
	FrameSize       int
	StreamGrace     time.Duration
	AutoListenDelay time.Duration
	HistoryLimit    int
}

// Load resolves configuration from environment variables and sensible
// defaults. The only required value is the backend server URL.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			BaseURL:  envOrDefault("AURA_SERVER_URL", "http://localhost:8000"),
			APIToken: strings.TrimSpace(os.Getenv("AURA_API_TOKEN")),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			Backend:         envOrDefault("AURA_CAPTURE_BACKEND", AudioBackendPortAudio),
			RecorderCommand: envOrDefault("AURA_FFMPEG_COMMAND", "ffmpeg"),
			PlayerCommand:   envOrDefault("AURA_FFPLAY_COMMAND", "ffplay"),
			InputFormat:     strings.TrimSpace(os.Getenv("AURA_AUDIO_INPUT_FORMAT")),
			InputDevice:     envOrDefault("AURA_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("AURA_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("AURA_CHANNELS", 1),
		},
		Session: SessionConfig{
			Transport:       domain.Transport(envOrDefault("AURA_TRANSPORT", string(domain.TransportStreaming))),
			FrameSize:       envOrDefaultInt("AURA_FRAME_SIZE", 4096),
			StreamGrace:     time.Duration(envOrDefaultInt("AURA_STREAM_GRACE_MS", 250)) * time.Millisecond,
			AutoListenDelay: time.Duration(envOrDefaultInt("AURA_AUTO_LISTEN_DELAY_MS", 350)) * time.Millisecond,
			HistoryLimit:    envOrDefaultInt("AURA_HISTORY_LIMIT", 50),
		},
	}

	if _, err := url.Parse(cfg.Server.BaseURL); err != nil || cfg.Server.BaseURL == "" {
		return Config{}, errors.New("AURA_SERVER_URL is not a valid URL")
	}
	switch cfg.Audio.Backend {
	case AudioBackendPortAudio, AudioBackendFFMPEG:
	default:
		return Config{}, errors.New("AURA_CAPTURE_BACKEND must be portaudio or ffmpeg")
	}
	switch cfg.Session.Transport {
	case domain.TransportStreaming, domain.TransportBatch:
	default:
		return Config{}, errors.New("AURA_TRANSPORT must be streaming or batch")
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.FrameSize < 256 {
		cfg.Session.FrameSize = 4096
	}
	if cfg.Session.HistoryLimit <= 0 {
		cfg.Session.HistoryLimit = 50
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
