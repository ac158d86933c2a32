package config

import (
	"testing"
	"time"

	"auravoice/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"AURA_SERVER_URL", "AURA_API_TOKEN", "AURA_CAPTURE_BACKEND", "AURA_TRANSPORT",
		"AURA_SAMPLE_RATE", "AURA_CHANNELS", "AURA_FRAME_SIZE", "AURA_STREAM_GRACE_MS",
		"AURA_AUTO_LISTEN_DELAY_MS", "AURA_HISTORY_LIMIT",
		"DEEPGRAM_API_KEY", "DEEPGRAM_API_BASE", "DEEPGRAM_MODEL", "DEEPGRAM_LANGUAGE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected server URL: %q", cfg.Server.BaseURL)
	}
	if cfg.Audio.Backend != AudioBackendPortAudio {
		t.Fatalf("unexpected capture backend: %q", cfg.Audio.Backend)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Session.Transport != domain.TransportStreaming {
		t.Fatalf("unexpected transport: %q", cfg.Session.Transport)
	}
	if cfg.Session.FrameSize != 4096 {
		t.Fatalf("unexpected frame size: %d", cfg.Session.FrameSize)
	}
	if cfg.Session.AutoListenDelay != 350*time.Millisecond {
		t.Fatalf("unexpected auto listen delay: %v", cfg.Session.AutoListenDelay)
	}
	if cfg.Session.HistoryLimit != 50 {
		t.Fatalf("unexpected history limit: %d", cfg.Session.HistoryLimit)
	}
	if cfg.Deepgram.Model != "nova-2" || !cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram defaults: %+v", cfg.Deepgram)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("AURA_SERVER_URL", "https://aura.example.com")
	t.Setenv("AURA_API_TOKEN", "secret-token")
	t.Setenv("AURA_CAPTURE_BACKEND", "ffmpeg")
	t.Setenv("AURA_TRANSPORT", "batch")
	t.Setenv("AURA_SAMPLE_RATE", "48000")
	t.Setenv("AURA_FRAME_SIZE", "8192")
	t.Setenv("AURA_AUTO_LISTEN_DELAY_MS", "500")
	t.Setenv("AURA_HISTORY_LIMIT", "10")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.BaseURL != "https://aura.example.com" || cfg.Server.APIToken != "secret-token" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Audio.Backend != AudioBackendFFMPEG || cfg.Audio.SampleRate != 48000 {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Session.Transport != domain.TransportBatch {
		t.Fatalf("unexpected transport: %q", cfg.Session.Transport)
	}
	if cfg.Session.FrameSize != 8192 {
		t.Fatalf("unexpected frame size: %d", cfg.Session.FrameSize)
	}
	if cfg.Session.AutoListenDelay != 500*time.Millisecond {
		t.Fatalf("unexpected auto listen delay: %v", cfg.Session.AutoListenDelay)
	}
	if cfg.Deepgram.APIKey != "dg-key" || cfg.Deepgram.Model != "nova-3" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("AURA_CAPTURE_BACKEND", "alsa")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown capture backend")
	}

	t.Setenv("AURA_CAPTURE_BACKEND", "portaudio")
	t.Setenv("AURA_TRANSPORT", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("AURA_TRANSPORT", "")
	t.Setenv("AURA_CAPTURE_BACKEND", "")
	t.Setenv("AURA_SAMPLE_RATE", "not-a-number")
	t.Setenv("AURA_FRAME_SIZE", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("malformed sample rate should fall back: %d", cfg.Audio.SampleRate)
	}
	if cfg.Session.FrameSize != 4096 {
		t.Fatalf("tiny frame size should fall back: %d", cfg.Session.FrameSize)
	}
}
