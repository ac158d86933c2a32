package player

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestFFPlayCompletesNormally(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "play.sh", "#!/usr/bin/env bash\nexit 0\n")
	player := NewFFPlay(script, zaptest.NewLogger(t))

	pb, err := player.Play(context.Background(), []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case err := <-pb.Done():
		if err != nil {
			t.Fatalf("expected clean completion, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("playback never completed")
	}
}

func TestFFPlayStopInterruptsCleanly(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "slow.sh", "#!/usr/bin/env bash\nexec sleep 10\n")
	player := NewFFPlay(script, zaptest.NewLogger(t))

	pb, err := player.Play(context.Background(), []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if err := pb.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	select {
	case err := <-pb.Done():
		if err != nil {
			t.Fatalf("manual stop must not report an error, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("playback never ended after stop")
	}
}

func TestFFPlayFailureReported(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\nexit 3\n")
	player := NewFFPlay(script, zaptest.NewLogger(t))

	pb, err := player.Play(context.Background(), []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case err := <-pb.Done():
		if err == nil {
			t.Fatalf("expected playback failure")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("playback never ended")
	}
}

func TestFFPlayRejectsEmptyAudio(t *testing.T) {
	t.Parallel()

	player := NewFFPlay("true", zaptest.NewLogger(t))
	if _, err := player.Play(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty audio")
	}
}

func writeScript(t *testing.T, name string, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}
