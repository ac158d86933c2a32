// Package player plays the agent's encoded audio responses through an
// ffplay subprocess. The container format (MP3 or WAV) is detected by the
// playback process itself.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auravoice/internal/ports"
)

// FFPlay launches one playback process per response.
type FFPlay struct {
	command string
	log     *zap.Logger
}

var _ ports.SpeechPlayer = (*FFPlay)(nil)

func NewFFPlay(command string, log *zap.Logger) *FFPlay {
	if command == "" {
		command = "ffplay"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FFPlay{command: command, log: log}
}

func (p *FFPlay) Play(ctx context.Context, audio []byte) (ports.Playback, error) {
	if len(audio) == 0 {
		return nil, errors.New("no audio to play")
	}

	path := filepath.Join(os.TempDir(), "aura-response-"+uuid.NewString())
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return nil, fmt.Errorf("write audio payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.command, "-nodisp", "-autoexit", "-loglevel", "error", path)
	if err := cmd.Start(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("start playback process: %w", err)
	}
	p.log.Debug("playback started", zap.Int("bytes", len(audio)))

	pb := &playback{
		process: cmd.Process,
		done:    make(chan error, 1),
		exited:  make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		// The audio file is released unconditionally, whichever way
		// playback ended.
		_ = os.Remove(path)

		pb.mu.Lock()
		stopped := pb.stopped
		pb.mu.Unlock()
		if stopped {
			err = nil
		}
		pb.done <- err
		close(pb.exited)
	}()

	return pb, nil
}

type playback struct {
	process *os.Process
	done    chan error
	exited  chan struct{}

	mu       sync.Mutex
	stopped  bool
	stopOnce sync.Once
}

func (pb *playback) Done() <-chan error {
	return pb.done
}

// Stop interrupts playback. The exit caused by the signal is reported as a
// clean end on Done.
func (pb *playback) Stop() error {
	pb.stopOnce.Do(func() {
		pb.mu.Lock()
		pb.stopped = true
		pb.mu.Unlock()

		if pb.process != nil {
			if err := pb.process.Signal(os.Interrupt); err != nil {
				_ = pb.process.Kill()
				return
			}
			// ffplay normally exits promptly on SIGINT; escalate if not.
			go func() {
				select {
				case <-pb.exited:
				case <-time.After(1200 * time.Millisecond):
					_ = pb.process.Kill()
				}
			}()
		}
	})
	return nil
}
