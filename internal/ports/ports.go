package ports

import (
	"context"
	"io"

	"auravoice/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	FrameSize   int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session delivering s16le mono PCM bytes.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamConfig describes provider-agnostic streaming settings.
type StreamConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// SpeechStream is an active recognition stream. Both the primary online
// recognizer and the backend streaming adapter satisfy it.
type SpeechStream interface {
	SendAudio(frame []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// SpeechStreamer opens recognition streams. Implementations must not return
// before the underlying connection is ready to accept audio frames.
type SpeechStreamer interface {
	Start(ctx context.Context, cfg StreamConfig) (SpeechStream, error)
}

// BatchTranscriber submits one fully buffered recording and returns the
// transcript. An empty transcript means no speech was recognized.
type BatchTranscriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// AgentClient talks to the downstream processing endpoint.
type AgentClient interface {
	Process(ctx context.Context, text string) (domain.ResponsePayload, error)
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Playback is one in-flight audio playback.
type Playback interface {
	// Done yields exactly one value when playback ends, nil on normal
	// completion. Resources are released before the value is delivered.
	Done() <-chan error
	// Stop interrupts playback synchronously.
	Stop() error
}

// SpeechPlayer plays an encoded audio container (MP3 or WAV).
type SpeechPlayer interface {
	Play(ctx context.Context, audio []byte) (Playback, error)
}

// Connectivity reports whether the device can reach the network.
type Connectivity interface {
	Online() bool
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	StateChanged(state domain.SessionState, reason domain.SessionStateReason)
	InterimTranscript(text string)
	TranscriptFinalized(text string)
	ResponseReceived(resp domain.ResponsePayload)
	SessionError(code domain.ErrorCode, detail string)
}
