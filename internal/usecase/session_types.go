package usecase

import (
	"context"
	"sync"

	"auravoice/internal/audio"
	"auravoice/internal/domain"
	"auravoice/internal/ports"
)

// session is one voice interaction from listening start to transcript
// finalization. The mode may change once, from primary to secondary, when
// the online recognizer is lost mid-session.
type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	aggregator *transcriptAggregator
	leg        *sessionLeg

	mu         sync.Mutex
	mode       domain.SessionMode
	manualStop bool
	fellBack   bool
}

func (s *session) setManualStop() {
	s.mu.Lock()
	s.manualStop = true
	s.mu.Unlock()
}

func (s *session) manualStopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualStop
}

// markFellBack flips the one-way fallback flag. It returns false when the
// session already fell back, so fallback runs at most once.
func (s *session) markFellBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fellBack {
		return false
	}
	s.fellBack = true
	s.mode = domain.ModeSecondary
	return true
}

func (s *session) fellBackNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fellBack
}

func (s *session) currentMode() domain.SessionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// sessionLeg holds the capture and recognition endpoints of a session. The
// stream pointer may be swapped while the audio pump is running, either to
// relaunch the continuous recognizer or to detach it during fallback.
type sessionLeg struct {
	audio ports.AudioSession

	mu     sync.Mutex
	stream ports.SpeechStream
	buffer *audio.FrameBuffer

	pumpDone   chan struct{}
	eventsDone chan struct{}
}

func newSessionLeg() *sessionLeg {
	return &sessionLeg{
		pumpDone:   make(chan struct{}),
		eventsDone: make(chan struct{}),
	}
}

func (l *sessionLeg) currentStream() ports.SpeechStream {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stream
}

func (l *sessionLeg) setStream(stream ports.SpeechStream) {
	l.mu.Lock()
	l.stream = stream
	l.mu.Unlock()
}

// detachStream removes the stream and attaches a frame buffer so capture
// continues locally. It returns the detached stream for closing.
func (l *sessionLeg) detachStream() ports.SpeechStream {
	l.mu.Lock()
	defer l.mu.Unlock()
	detached := l.stream
	l.stream = nil
	if l.buffer == nil {
		l.buffer = audio.NewFrameBuffer()
	}
	return detached
}

func (l *sessionLeg) currentBuffer() *audio.FrameBuffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffer
}

// deliver hands one captured frame to whichever endpoints are attached.
// Send errors are ignored; a dying stream is reported by its own consumer.
func (l *sessionLeg) deliver(frame []byte) {
	l.mu.Lock()
	stream := l.stream
	buffer := l.buffer
	l.mu.Unlock()

	if buffer != nil {
		buffer.Append(frame)
	}
	if stream != nil {
		_ = stream.SendAudio(frame)
	}
}
