// Package wsstream holds the websocket plumbing shared by the recognition
// streams: buffered send and event queues, once-guarded shutdown, and
// first-error-wins termination with benign close frames filtered out.
// Providers plug in only their message decoding and end-of-audio frame.
package wsstream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"auravoice/internal/domain"
)

// Codec adapts one provider protocol onto the shared stream.
type Codec interface {
	// Decode interprets one incoming message. ok reports whether the message
	// carried transcript text. A non-nil error ends the stream; it is kept
	// as-is, so server-side failures stay distinguishable from network ones.
	Decode(payload []byte) (event domain.TranscriptEvent, ok bool, err error)

	// CloseFrame returns the websocket message announcing the end of audio,
	// sent after the last frame so the server can flush its final result.
	CloseFrame() (messageType int, data []byte)
}

// Stream pumps audio frames out and transcript events in over one websocket
// connection. It satisfies ports.SpeechStream.
type Stream struct {
	conn  *websocket.Conn
	codec Codec

	events chan domain.TranscriptEvent
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

// New starts the read and write loops over an established connection and
// returns a stream that is immediately ready to accept audio frames.
func New(conn *websocket.Conn, codec Codec) *Stream {
	s := &Stream{
		conn:   conn,
		codec:  codec,
		events: make(chan domain.TranscriptEvent, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()

	return s
}

func (s *Stream) SendAudio(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), frame...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.terminalErr(); err != nil {
			return err
		}
		return errors.New("recognition stream closed")
	}
}

func (s *Stream) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *Stream) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *Stream) Wait() error {
	<-s.done
	return s.terminalErr()
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.terminalErr()
}

func (s *Stream) terminalErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	if err == nil {
		return
	}
	// A normal close is a benign end of the stream; the restart policy
	// handles it, not fallback.
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) writeLoop() {
	defer s.wg.Done()

	for frame := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			s.setErr(domain.MarkNetwork(fmt.Errorf("send audio frame: %w", err)))
			return
		}
	}

	messageType, data := s.codec.CloseFrame()
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		s.setErr(domain.MarkNetwork(fmt.Errorf("finish audio stream: %w", err)))
	}
}

func (s *Stream) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(domain.MarkNetwork(fmt.Errorf("read recognition message: %w", err)))
			return
		}

		event, ok, decodeErr := s.codec.Decode(payload)
		if decodeErr != nil {
			s.setErr(decodeErr)
			return
		}
		if !ok {
			continue
		}

		select {
		case s.events <- event:
		case <-s.done:
		default:
		}
	}
}
