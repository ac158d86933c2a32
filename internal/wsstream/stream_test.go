package wsstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"auravoice/internal/domain"
)

// echoCodec is a minimal protocol for exercising the shared plumbing:
// `{"text":...,"final":...}` in, "bye" as the end-of-audio frame, and a
// message starting with "fail:" as a server-side error.
type echoCodec struct{}

func (echoCodec) Decode(payload []byte) (domain.TranscriptEvent, bool, error) {
	if detail, ok := strings.CutPrefix(string(payload), "fail:"); ok {
		return domain.TranscriptEvent{}, false, errors.New(detail)
	}
	var msg struct {
		Text  string `json:"text"`
		Final bool   `json:"final"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return domain.TranscriptEvent{}, false, nil
	}
	if msg.Text == "" {
		return domain.TranscriptEvent{}, false, nil
	}
	kind := domain.TranscriptKindInterim
	if msg.Final {
		kind = domain.TranscriptKindFinal
	}
	return domain.TranscriptEvent{Kind: kind, Text: msg.Text}, true, nil
}

func (echoCodec) CloseFrame() (int, []byte) {
	return websocket.TextMessage, []byte("bye")
}

func dialTestStream(t *testing.T, handler func(conn *websocket.Conn)) *Stream {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return New(conn, echoCodec{})
}

func TestStreamSendsCloseFrameAfterLastAudioFrame(t *testing.T) {
	t.Parallel()

	type inbound struct {
		kind    int
		payload []byte
	}
	messages := make(chan inbound, 8)
	stream := dialTestStream(t, func(conn *websocket.Conn) {
		for {
			kind, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			messages <- inbound{kind: kind, payload: payload}
			if kind == websocket.TextMessage {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
		}
	})

	if err := stream.SendAudio([]byte("pcm frame")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("close send failed: %v", err)
	}
	if err := stream.Wait(); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	first := <-messages
	if first.kind != websocket.BinaryMessage || !bytes.Equal(first.payload, []byte("pcm frame")) {
		t.Fatalf("unexpected first message: kind=%d payload=%q", first.kind, first.payload)
	}
	second := <-messages
	if second.kind != websocket.TextMessage || string(second.payload) != "bye" {
		t.Fatalf("expected end-of-audio frame, got kind=%d payload=%q", second.kind, second.payload)
	}
}

func TestStreamDecodeErrorEndsStreamWithoutNetworkMark(t *testing.T) {
	t.Parallel()

	stream := dialTestStream(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"hola","final":false}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("fail:quota exceeded"))
		time.Sleep(50 * time.Millisecond)
	})
	defer stream.Close()

	select {
	case ev := <-stream.Events():
		if ev.Text != "hola" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the first event")
	}

	_ = stream.CloseSend()
	err := stream.Wait()
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected the server error, got %v", err)
	}
	if domain.IsNetworkError(err) {
		t.Fatalf("server-side failure must not look like a network error")
	}
}

func TestStreamAbruptDisconnectIsNetworkError(t *testing.T) {
	t.Parallel()

	stream := dialTestStream(t, func(conn *websocket.Conn) {
		_ = conn.Close()
	})
	defer stream.Close()

	_ = stream.CloseSend()
	err := stream.Wait()
	if err == nil {
		t.Fatalf("expected an error after an abrupt disconnect")
	}
	if !domain.IsNetworkError(err) {
		t.Fatalf("abrupt disconnect must classify as a network error, got %v", err)
	}
}
