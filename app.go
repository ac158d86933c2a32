package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"auravoice/internal/bootstrap"
	"auravoice/internal/config"
	"auravoice/internal/domain"
	"auravoice/internal/usecase"
)

const (
	eventState      = "aura:state"
	eventInterim    = "aura:interim"
	eventTranscript = "aura:transcript"
	eventResponse   = "aura:response"
	eventError      = "aura:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.Controller
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.StateChanged(domain.SessionStateIdle, domain.SessionReasonStartup)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller == nil {
		return
	}
	_, _ = a.controller.Stop(context.Background())
}

// StartListening opens the microphone and begins recognition.
func (a *App) StartListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopListening finalizes the utterance and processes it.
func (a *App) StopListening() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	result, err := a.controller.Stop(a.ctx)
	if errors.Is(err, usecase.ErrNoSpeech) {
		return domain.StopResult{}, nil
	}
	if err != nil {
		return domain.StopResult{}, err
	}
	return result, nil
}

// ToggleListening flips between listening and not listening.
func (a *App) ToggleListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Toggle(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// ReplayLastResponse replays the most recent spoken response.
func (a *App) ReplayLastResponse() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.ReplayLast(a.ctx)
}

// CopyTranscript copies the last finalized transcript to the clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	text := a.controller.LastTranscript()
	if text == "" {
		return fmt.Errorf("no transcript to copy")
	}
	return runtime.ClipboardSetText(a.ctx, text)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetHistory returns the conversation so far.
func (a *App) GetHistory() []domain.HistoryEntry {
	if a.controller == nil {
		return nil
	}
	return a.controller.History()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	primary := "not configured"
	if a.cfg.Deepgram.APIKey != "" {
		primary = a.cfg.Deepgram.Model
	}
	return map[string]string{
		"server":         a.cfg.Server.BaseURL,
		"primary":        primary,
		"captureBackend": a.cfg.Audio.Backend,
		"transport":      string(a.cfg.Session.Transport),
		"sampleRate":     fmt.Sprintf("%d", a.cfg.Audio.SampleRate),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StateChanged emits session lifecycle updates to the frontend.
func (a *App) StateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": stateReasonMessage(reason),
	})
}

// InterimTranscript emits live provisional transcript text.
func (a *App) InterimTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInterim, map[string]string{"text": text})
}

// TranscriptFinalized emits the finalized utterance text.
func (a *App) TranscriptFinalized(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": text})
}

// ResponseReceived emits the assistant's answer to the frontend.
func (a *App) ResponseReceived(resp domain.ResponsePayload) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventResponse, map[string]any{
		"text":                 resp.Text,
		"translatedText":       resp.TranslatedText,
		"detectedLanguage":     resp.DetectedLanguage,
		"detectedLanguageName": resp.DetectedLanguageName,
		"intents":              resp.Intents,
		"bookings":             resp.Bookings,
		"hasAudio":             resp.HasAudio(),
		"autoListen":           resp.AutoListen,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonStartup:
		return "Ready"
	case domain.SessionReasonListeningStarted:
		return "Listening..."
	case domain.SessionReasonAutoListen:
		return "Listening for your reply..."
	case domain.SessionReasonFallbackEngaged:
		return "Online recognition lost; continuing offline"
	case domain.SessionReasonTranscribing:
		return "Processing your request..."
	case domain.SessionReasonNoSpeech:
		return "Didn't catch that"
	case domain.SessionReasonCaptureFailed:
		return "Microphone problem"
	case domain.SessionReasonTransportFailed:
		return "Could not reach the assistant"
	case domain.SessionReasonProcessingFailed:
		return "Request failed"
	case domain.SessionReasonResponseReceived:
		return "Done"
	case domain.SessionReasonPlaybackStarted:
		return "Speaking..."
	case domain.SessionReasonPlaybackFinished:
		return "Done"
	case domain.SessionReasonPlaybackInterrupted:
		return "Stopped"
	case domain.SessionReasonPlaybackFailed:
		return "Could not play the response"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCapture:
		return "Microphone error"
	case domain.ErrorCodeRecognition:
		return "Speech recognition issue"
	case domain.ErrorCodeTransport:
		return "Connection issue"
	case domain.ErrorCodeProcessing:
		return "Assistant request failed"
	case domain.ErrorCodePlayback:
		return "Audio playback issue"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
