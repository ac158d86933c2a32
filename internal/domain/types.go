package domain

import "time"

// SessionState models the voice interaction lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateListening  SessionState = "listening"
	SessionStateProcessing SessionState = "processing"
	SessionStateSpeaking   SessionState = "speaking"
)

// SessionMode identifies which recognition path a session is running on.
type SessionMode string

const (
	// ModePrimary is the continuous online recognizer with interim results.
	ModePrimary SessionMode = "primary"
	// ModeSecondary captures raw audio locally and ships it to the backend.
	ModeSecondary SessionMode = "secondary"
)

// Transport selects how raw audio reaches the backend in secondary mode.
type Transport string

const (
	TransportStreaming Transport = "streaming"
	TransportBatch     Transport = "batch"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonStartup             SessionStateReason = "startup"
	SessionReasonListeningStarted    SessionStateReason = "listening_started"
	SessionReasonAutoListen          SessionStateReason = "auto_listen"
	SessionReasonFallbackEngaged     SessionStateReason = "fallback_engaged"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonNoSpeech            SessionStateReason = "no_speech"
	SessionReasonCaptureFailed       SessionStateReason = "capture_failed"
	SessionReasonTransportFailed     SessionStateReason = "transport_failed"
	SessionReasonProcessingFailed    SessionStateReason = "processing_failed"
	SessionReasonResponseReceived    SessionStateReason = "response_received"
	SessionReasonPlaybackStarted     SessionStateReason = "playback_started"
	SessionReasonPlaybackFinished    SessionStateReason = "playback_finished"
	SessionReasonPlaybackInterrupted SessionStateReason = "playback_interrupted"
	SessionReasonPlaybackFailed      SessionStateReason = "playback_failed"
)

// ErrorCode identifies backend error categories surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeCapture     ErrorCode = "capture"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeTransport   ErrorCode = "transport"
	ErrorCodeProcessing  ErrorCode = "processing"
	ErrorCodePlayback    ErrorCode = "playback"
)

// TranscriptKind identifies whether a stream event is interim or final text.
type TranscriptKind string

const (
	TranscriptKindInterim TranscriptKind = "interim"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a
// recognition stream.
type TranscriptEvent struct {
	Kind TranscriptKind `json:"kind"`
	Text string         `json:"text"`
}

// Booking is a simulated reservation returned by the agent backend. Details
// are passed through untouched for display.
type Booking struct {
	Intent  string         `json:"intent,omitempty"`
	Status  string         `json:"status,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ResponsePayload is the agent's answer to one utterance. Audio holds the
// decoded bytes of an encoded container (MP3 or WAV), empty when the backend
// produced no speech.
type ResponsePayload struct {
	Text                 string    `json:"text"`
	TranslatedText       string    `json:"translatedText"`
	DetectedLanguage     string    `json:"detectedLanguage"`
	DetectedLanguageName string    `json:"detectedLanguageName"`
	Intents              []string  `json:"intents"`
	Bookings             []Booking `json:"bookings"`
	Audio                []byte    `json:"-"`
	AutoListen           bool      `json:"autoListen"`
}

// HasAudio reports whether the payload carries playable audio.
func (p ResponsePayload) HasAudio() bool {
	return len(p.Audio) > 0
}

// StopResult is returned once a listening session is stopped and processed.
type StopResult struct {
	SessionID  string           `json:"sessionId"`
	Transcript string           `json:"transcript"`
	Response   *ResponsePayload `json:"response,omitempty"`
}

// HistoryEntry is one turn of the conversation, kept for display only.
type HistoryEntry struct {
	Role     string    `json:"role"`
	Text     string    `json:"text"`
	Intents  []string  `json:"intents,omitempty"`
	Bookings []Booking `json:"bookings,omitempty"`
	At       time.Time `json:"at"`
}

const (
	HistoryRoleUser      = "user"
	HistoryRoleAssistant = "assistant"
)

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Mode      SessionMode  `json:"mode,omitempty"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Message   string       `json:"message,omitempty"`
}
