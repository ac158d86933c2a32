package bootstrap

import (
	"time"

	"go.uber.org/zap"

	"auravoice/internal/agent"
	"auravoice/internal/audio"
	"auravoice/internal/config"
	"auravoice/internal/player"
	"auravoice/internal/ports"
	"auravoice/internal/recognizer"
	"auravoice/internal/transport"
	"auravoice/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.Controller
	Config     config.Config
	Logger     *zap.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}

	var capture ports.AudioCapture
	switch cfg.Audio.Backend {
	case config.AudioBackendFFMPEG:
		capture = audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, log)
	default:
		capture = audio.NewPortAudioCapture(log)
	}

	var primary ports.SpeechStreamer
	if dg := recognizer.NewDeepgram(recognizer.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
	}, log); dg.Configured() {
		primary = dg
	}

	controller := usecase.NewController(usecase.Deps{
		Capture:      capture,
		Primary:      primary,
		Backend:      transport.NewStreamingAdapter(cfg.Server.BaseURL, cfg.Server.APIToken, log),
		Batch:        transport.NewBatchAdapter(cfg.Server.BaseURL, cfg.Server.APIToken, nil, log),
		Agent:        agent.NewClient(cfg.Server.BaseURL, cfg.Server.APIToken, nil, log),
		Player:       player.NewFFPlay(cfg.Audio.PlayerCommand, log),
		Connectivity: transport.NewProbe(cfg.Server.BaseURL, 2*time.Second),
		Events:       eventSink,
		Logger:       log,
	}, usecase.Config{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			FrameSize:   cfg.Session.FrameSize,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		Stream: ports.StreamConfig{
			SampleRate:     cfg.Audio.SampleRate,
			Channels:       cfg.Audio.Channels,
			Encoding:       "linear16",
			InterimResults: true,
		},
		Transport:       cfg.Session.Transport,
		FrameSize:       cfg.Session.FrameSize,
		StreamGrace:     cfg.Session.StreamGrace,
		AutoListenDelay: cfg.Session.AutoListenDelay,
		HistoryLimit:    cfg.Session.HistoryLimit,
	})

	return Services{Controller: controller, Config: cfg, Logger: log}, nil
}
