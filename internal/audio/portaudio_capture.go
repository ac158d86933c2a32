package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"auravoice/internal/ports"
)

// PortAudioCapture acquires the default input device and delivers encoded
// s16le frames. Each callback block of float samples is encoded through
// EncodeBlock before it leaves this package.
type PortAudioCapture struct {
	log *zap.Logger
}

func NewPortAudioCapture(log *zap.Logger) *PortAudioCapture {
	if log == nil {
		log = zap.NewNop()
	}
	return &PortAudioCapture{log: log}
}

func (c *PortAudioCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 4096
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	block := make([]float32, cfg.FrameSize*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.FrameSize, block)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	session := &portaudioSession{
		stream: stream,
		block:  block,
		frames: make(chan []byte, 8),
		done:   make(chan struct{}),
		log:    c.log,
	}
	go session.captureLoop()
	go func() {
		<-ctx.Done()
		_ = session.Stop()
	}()

	c.log.Debug("portaudio capture running",
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("frame_size", cfg.FrameSize))
	return session, nil
}

type portaudioSession struct {
	stream *portaudio.Stream
	block  []float32
	frames chan []byte
	done   chan struct{}
	log    *zap.Logger

	stopOnce sync.Once
	stopErr  error

	readMu   sync.Mutex
	leftover []byte
}

func (s *portaudioSession) captureLoop() {
	defer close(s.frames)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			// Overflow means the host dropped a block; keep capturing.
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			select {
			case <-s.done:
			default:
				s.log.Warn("input stream read failed", zap.Error(err))
			}
			return
		}

		frame := EncodeBlock(s.block)
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
}

func (s *portaudioSession) Read(p []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if len(s.leftover) == 0 {
		frame, ok := <-s.frames
		if !ok {
			return 0, io.EOF
		}
		s.leftover = frame
	}

	n := copy(p, s.leftover)
	s.leftover = s.leftover[n:]
	return n, nil
}

func (s *portaudioSession) Close() error {
	return s.Stop()
}

func (s *portaudioSession) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if err := s.stream.Stop(); err != nil {
			s.stopErr = err
		}
		if err := s.stream.Close(); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
		if err := portaudio.Terminate(); err != nil && s.stopErr == nil {
			s.stopErr = err
		}
	})
	return s.stopErr
}
