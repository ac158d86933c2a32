package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auravoice/internal/domain"
	"auravoice/internal/ports"
)

var (
	ErrBusy          = errors.New("a session is already being processed")
	ErrNoSpeech      = errors.New("no speech recognized")
	ErrNoReplay      = errors.New("no spoken response to replay")
	ErrNoAgent       = errors.New("agent client is not configured")
	ErrNoCapture     = errors.New("audio capture is not configured")
	ErrNoTranscriber = errors.New("no transcription path is configured")
)

// Config controls session behavior.
type Config struct {
	Audio           ports.AudioConfig
	Stream          ports.StreamConfig
	Transport       domain.Transport
	FrameSize       int
	StreamGrace     time.Duration
	AutoListenDelay time.Duration
	HistoryLimit    int
}

// Deps are the controller's collaborators. Primary and Backend may be nil;
// the controller then runs on whatever paths remain.
type Deps struct {
	Capture      ports.AudioCapture
	Primary      ports.SpeechStreamer
	Backend      ports.SpeechStreamer
	Batch        ports.BatchTranscriber
	Agent        ports.AgentClient
	Player       ports.SpeechPlayer
	Connectivity ports.Connectivity
	Events       ports.EventSink
	Logger       *zap.Logger
}

// Controller orchestrates the voice interaction loop: capture, recognition,
// agent processing and spoken playback, with automatic fallback from the
// online recognizer to local capture when the network drops.
type Controller struct {
	machine      *StateMachine
	capture      ports.AudioCapture
	primary      ports.SpeechStreamer
	backend      ports.SpeechStreamer
	batch        ports.BatchTranscriber
	agent        ports.AgentClient
	player       ports.SpeechPlayer
	connectivity ports.Connectivity
	events       ports.EventSink
	history      *historyRing
	log          *zap.Logger
	cfg          Config

	// opMu serializes session acquisition and release so two Start calls
	// can never both pass the state check and open the microphone twice.
	opMu sync.Mutex

	mu             sync.Mutex
	current        *session
	playback       ports.Playback
	interrupted    bool
	autoTimer      *time.Timer
	lastMode       domain.SessionMode
	lastTranscript string
	lastResponse   *domain.ResponsePayload
}

func NewController(deps Deps, cfg Config) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.FrameSize < 256 {
		cfg.FrameSize = 4096
	}
	if cfg.StreamGrace <= 0 {
		cfg.StreamGrace = 250 * time.Millisecond
	}
	if cfg.AutoListenDelay <= 0 {
		cfg.AutoListenDelay = 350 * time.Millisecond
	}
	if cfg.Transport == "" {
		cfg.Transport = domain.TransportStreaming
	}

	c := &Controller{
		machine:      NewStateMachine(deps.Logger),
		capture:      deps.Capture,
		primary:      deps.Primary,
		backend:      deps.Backend,
		batch:        deps.Batch,
		agent:        deps.Agent,
		player:       deps.Player,
		connectivity: deps.Connectivity,
		events:       deps.Events,
		history:      newHistoryRing(cfg.HistoryLimit),
		log:          deps.Logger,
		cfg:          cfg,
	}
	c.machine.Subscribe(func(state domain.SessionState, reason domain.SessionStateReason) {
		c.events.StateChanged(state, reason)
	})
	return c
}

// Start begins listening. Called while the assistant is speaking it
// interrupts playback first, so the user can barge in.
func (c *Controller) Start(ctx context.Context) error {
	return c.start(ctx, domain.SessionReasonListeningStarted)
}

func (c *Controller) start(ctx context.Context, reason domain.SessionStateReason) error {
	c.cancelAutoListen()
	if c.capture == nil {
		return ErrNoCapture
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	fromSpeaking := false
	switch c.machine.State() {
	case domain.SessionStateListening:
		return nil
	case domain.SessionStateProcessing:
		return ErrBusy
	case domain.SessionStateSpeaking:
		c.mu.Lock()
		pb := c.playback
		if pb != nil {
			c.interrupted = true
		}
		c.mu.Unlock()
		if pb != nil {
			_ = pb.Stop()
			_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackInterrupted)
		} else {
			// Playback already finished; listening is entered below on
			// the direct speaking -> listening edge.
			fromSpeaking = true
		}
	}

	mode := ChoosePath(c.primary != nil, c.online())
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:         uuid.NewString(),
		ctx:        sessCtx,
		cancel:     cancel,
		mode:       mode,
		aggregator: newTranscriptAggregator(),
		leg:        newSessionLeg(),
	}

	if err := c.openLeg(sess); err != nil {
		cancel()
		c.events.SessionError(domain.ErrorCodeRecognition, err.Error())
		if fromSpeaking {
			_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackFinished)
		}
		return err
	}

	audioSession, err := c.capture.Start(sessCtx, c.cfg.Audio)
	if err != nil {
		if stream := sess.leg.currentStream(); stream != nil {
			_ = stream.Close()
		}
		cancel()
		c.events.SessionError(domain.ErrorCodeCapture, err.Error())
		if fromSpeaking {
			_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackFinished)
		}
		return err
	}
	sess.leg.audio = audioSession

	c.mu.Lock()
	c.current = sess
	c.lastMode = sess.currentMode()
	c.mu.Unlock()

	go c.pumpFrames(sess)
	switch {
	case sess.leg.currentStream() == nil:
		close(sess.leg.eventsDone)
	case sess.currentMode() == domain.ModePrimary:
		go c.consumePrimary(sess)
	default:
		go c.consumeSecondary(sess)
	}

	c.log.Info("listening started",
		zap.String("session", sess.id),
		zap.String("mode", string(sess.currentMode())))
	_ = c.machine.Transition(domain.SessionStateListening, reason)
	return nil
}

// openLeg attaches the recognition endpoint for the session's mode. A
// network failure opening the primary recognizer demotes the session to the
// secondary path immediately.
func (c *Controller) openLeg(sess *session) error {
	if sess.currentMode() == domain.ModePrimary {
		stream, err := c.primary.Start(sess.ctx, c.cfg.Stream)
		if err == nil {
			sess.leg.setStream(stream)
			return nil
		}
		if !domain.IsNetworkError(err) {
			return err
		}
		c.log.Warn("online recognizer unreachable, starting on secondary path", zap.Error(err))
		sess.markFellBack()
	}

	if c.cfg.Transport == domain.TransportStreaming && c.backend != nil && !sess.fellBackNow() {
		stream, err := c.backend.Start(sess.ctx, c.cfg.Stream)
		if err == nil {
			sess.leg.setStream(stream)
			return nil
		}
		c.log.Warn("backend stream unavailable, buffering locally", zap.Error(err))
	}

	if c.batch == nil {
		return ErrNoTranscriber
	}
	sess.leg.detachStream()
	return nil
}

// pumpFrames moves captured PCM from the microphone into the session leg
// until capture ends.
func (c *Controller) pumpFrames(sess *session) {
	defer close(sess.leg.pumpDone)

	buf := make([]byte, c.cfg.FrameSize)
	for {
		n, err := sess.leg.audio.Read(buf)
		if n > 0 {
			sess.leg.deliver(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !sess.manualStopRequested() && sess.ctx.Err() == nil {
				c.failSession(sess, domain.ErrorCodeCapture, err)
			}
			return
		}
	}
}

// consumePrimary drains the continuous recognizer. The stream is relaunched
// after transient ends so the primary path keeps listening indefinitely; a
// network failure hands the session over to the secondary path once.
func (c *Controller) consumePrimary(sess *session) {
	defer close(sess.leg.eventsDone)

	for {
		stream := sess.leg.currentStream()
		if stream == nil {
			return
		}
		for ev := range stream.Events() {
			c.applyPrimaryEvent(sess, ev)
		}
		err := stream.Wait()
		if sess.ctx.Err() != nil {
			return
		}
		if !ShouldRestart(err, sess.manualStopRequested()) {
			if domain.IsNetworkError(err) {
				go c.fallbackFromPrimary(sess)
			}
			return
		}

		next, startErr := c.primary.Start(sess.ctx, c.cfg.Stream)
		if sess.manualStopRequested() || sess.ctx.Err() != nil {
			if startErr == nil {
				_ = next.Close()
			}
			return
		}
		if startErr != nil {
			if domain.IsNetworkError(startErr) {
				go c.fallbackFromPrimary(sess)
				return
			}
			c.failSession(sess, domain.ErrorCodeRecognition, startErr)
			return
		}
		sess.leg.setStream(next)
		c.log.Debug("recognition stream relaunched", zap.String("session", sess.id))
	}
}

func (c *Controller) applyPrimaryEvent(sess *session, ev domain.TranscriptEvent) {
	switch ev.Kind {
	case domain.TranscriptKindInterim:
		sess.aggregator.SetInterim(ev.Text)
	case domain.TranscriptKindFinal:
		sess.aggregator.ExtendFinal(ev.Text)
	}
	c.events.InterimTranscript(displayText(sess.aggregator))
}

// consumeSecondary drains the backend recognition stream, whose finals
// carry the whole utterance so far.
func (c *Controller) consumeSecondary(sess *session) {
	defer close(sess.leg.eventsDone)

	stream := sess.leg.currentStream()
	if stream == nil {
		return
	}
	for ev := range stream.Events() {
		switch ev.Kind {
		case domain.TranscriptKindInterim:
			sess.aggregator.SetInterim(ev.Text)
		case domain.TranscriptKindFinal:
			sess.aggregator.ReplaceFinal(ev.Text)
		}
		c.events.InterimTranscript(displayText(sess.aggregator))
	}
	err := stream.Wait()
	if err == nil || sess.manualStopRequested() || sess.ctx.Err() != nil {
		return
	}
	c.failSession(sess, domain.ErrorCodeTransport, err)
}

// fallbackFromPrimary demotes a live session to local buffering after the
// online recognizer is lost. Fallback is one-way: the session never returns
// to the primary path, even if connectivity recovers.
func (c *Controller) fallbackFromPrimary(sess *session) {
	if !sess.markFellBack() {
		return
	}
	<-sess.leg.eventsDone

	if !c.isCurrent(sess) || sess.manualStopRequested() {
		return
	}
	if detached := sess.leg.detachStream(); detached != nil {
		_ = detached.Close()
	}

	c.mu.Lock()
	c.lastMode = domain.ModeSecondary
	c.mu.Unlock()

	c.log.Warn("online recognition lost, continuing with local capture",
		zap.String("session", sess.id))
	c.events.SessionError(domain.ErrorCodeRecognition,
		"online recognition unavailable, continuing with local capture")
	c.events.StateChanged(domain.SessionStateListening, domain.SessionReasonFallbackEngaged)
}

// Stop ends the current interaction. While listening it finalizes the
// transcript and hands it to the agent; while speaking it interrupts
// playback; otherwise it is a no-op.
func (c *Controller) Stop(ctx context.Context) (domain.StopResult, error) {
	c.cancelAutoListen()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch c.machine.State() {
	case domain.SessionStateSpeaking:
		c.interruptPlayback()
		return domain.StopResult{}, nil
	case domain.SessionStateIdle, domain.SessionStateProcessing:
		return domain.StopResult{}, nil
	}

	sess := c.takeCurrent()
	if sess == nil {
		return domain.StopResult{}, nil
	}
	sess.setManualStop()

	stream := sess.leg.currentStream()
	if stream != nil {
		_ = c.machine.Transition(domain.SessionStateProcessing, domain.SessionReasonTranscribing)
	}

	_ = sess.leg.audio.Stop()
	if stream != nil && c.cfg.StreamGrace > 0 {
		timer := time.NewTimer(c.cfg.StreamGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	var streamErr error
	if stream != nil {
		_ = stream.CloseSend()
		streamErr = waitStream(stream, 4*time.Second)
	}
	<-sess.leg.eventsDone
	<-sess.leg.pumpDone
	sess.cancel()

	if stream == nil {
		buffered := 0
		if buffer := sess.leg.currentBuffer(); buffer != nil {
			buffered = buffer.Len()
		}
		if buffered == 0 && sess.aggregator.Final() == "" {
			// Nothing was captured; skip the processing hop entirely.
			_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonNoSpeech)
			return domain.StopResult{}, ErrNoSpeech
		}
		_ = c.machine.Transition(domain.SessionStateProcessing, domain.SessionReasonTranscribing)
	}

	transcript, err := c.finalTranscript(ctx, sess, streamErr)
	if err != nil {
		code := domain.ErrorCodeRecognition
		if domain.IsNetworkError(err) {
			code = domain.ErrorCodeTransport
		}
		c.events.SessionError(code, err.Error())
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonTransportFailed)
		return domain.StopResult{}, err
	}
	if transcript == "" {
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonNoSpeech)
		return domain.StopResult{}, ErrNoSpeech
	}

	c.events.TranscriptFinalized(transcript)
	c.history.Append(domain.HistoryEntry{Role: domain.HistoryRoleUser, Text: transcript})
	c.mu.Lock()
	c.lastTranscript = transcript
	c.mu.Unlock()

	if c.agent == nil {
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonResponseReceived)
		return domain.StopResult{SessionID: sess.id, Transcript: transcript}, ErrNoAgent
	}

	resp, err := c.agent.Process(ctx, transcript)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeProcessing, err.Error())
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonProcessingFailed)
		return domain.StopResult{SessionID: sess.id, Transcript: transcript}, err
	}

	c.history.Append(domain.HistoryEntry{
		Role:     domain.HistoryRoleAssistant,
		Text:     resp.Text,
		Intents:  resp.Intents,
		Bookings: resp.Bookings,
	})
	c.events.ResponseReceived(resp)
	c.mu.Lock()
	saved := resp
	c.lastResponse = &saved
	c.mu.Unlock()

	result := domain.StopResult{SessionID: sess.id, Transcript: transcript, Response: &resp}
	if !resp.HasAudio() {
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonResponseReceived)
		return result, nil
	}
	if err := c.playResponse(ctx, resp, false); err != nil {
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackFailed)
	}
	return result, nil
}

// Toggle flips between listening and not listening with a single control.
func (c *Controller) Toggle(ctx context.Context) error {
	switch c.machine.State() {
	case domain.SessionStateListening:
		_, err := c.Stop(ctx)
		if errors.Is(err, ErrNoSpeech) {
			return nil
		}
		return err
	case domain.SessionStateProcessing:
		return nil
	default:
		return c.Start(ctx)
	}
}

// ReplayLast replays the audio of the most recent spoken response.
func (c *Controller) ReplayLast(ctx context.Context) error {
	c.mu.Lock()
	last := c.lastResponse
	c.mu.Unlock()
	if last == nil || !last.HasAudio() {
		return ErrNoReplay
	}
	if c.machine.State() != domain.SessionStateIdle {
		return ErrBusy
	}
	replay := *last
	replay.AutoListen = false
	return c.playResponse(ctx, replay, true)
}

// Status returns the current backend status.
func (c *Controller) Status() domain.Status {
	state := c.machine.State()

	c.mu.Lock()
	defer c.mu.Unlock()
	status := domain.Status{State: state, Active: state != domain.SessionStateIdle, Mode: c.lastMode}
	if c.current != nil {
		status.SessionID = c.current.id
		status.Mode = c.current.currentMode()
	}
	return status
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []domain.HistoryEntry {
	return c.history.Snapshot()
}

// LastTranscript returns the most recent finalized transcript.
func (c *Controller) LastTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTranscript
}

func (c *Controller) playResponse(ctx context.Context, resp domain.ResponsePayload, force bool) error {
	pb, err := c.player.Play(ctx, resp.Audio)
	if err != nil {
		c.events.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}

	c.mu.Lock()
	c.playback = pb
	c.interrupted = false
	c.mu.Unlock()

	if force {
		c.machine.ForceSpeaking(domain.SessionReasonPlaybackStarted)
	} else {
		_ = c.machine.Transition(domain.SessionStateSpeaking, domain.SessionReasonPlaybackStarted)
	}
	go c.watchPlayback(pb, resp.AutoListen)
	return nil
}

func (c *Controller) watchPlayback(pb ports.Playback, autoListen bool) {
	err := <-pb.Done()

	c.mu.Lock()
	interrupted := c.interrupted
	if c.playback == pb {
		c.playback = nil
	}
	c.mu.Unlock()

	if interrupted {
		return
	}
	if err != nil {
		c.events.SessionError(domain.ErrorCodePlayback, err.Error())
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackFailed)
		return
	}
	if autoListen {
		c.scheduleAutoListen()
		return
	}
	_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackFinished)
}

// scheduleAutoListen reopens the microphone shortly after a spoken response
// finishes, so multi-turn conversations flow without button presses.
func (c *Controller) scheduleAutoListen() {
	c.mu.Lock()
	if c.autoTimer != nil {
		c.autoTimer.Stop()
	}
	c.autoTimer = time.AfterFunc(c.cfg.AutoListenDelay, func() {
		if err := c.start(context.Background(), domain.SessionReasonAutoListen); err != nil {
			c.log.Warn("auto listen failed", zap.Error(err))
		}
	})
	c.mu.Unlock()
}

func (c *Controller) cancelAutoListen() {
	c.mu.Lock()
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
	c.mu.Unlock()
}

func (c *Controller) interruptPlayback() {
	c.mu.Lock()
	pb := c.playback
	if pb != nil {
		c.interrupted = true
	}
	c.mu.Unlock()
	if pb == nil {
		// Playback already finished and the auto-listen timer was just
		// cancelled; without this the machine would stay in speaking.
		_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackFinished)
		return
	}
	_ = pb.Stop()
	_ = c.machine.Transition(domain.SessionStateIdle, domain.SessionReasonPlaybackInterrupted)
}

// failSession tears down a session that died mid-listening.
func (c *Controller) failSession(sess *session, code domain.ErrorCode, cause error) {
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	c.log.Warn("session failed",
		zap.String("session", sess.id),
		zap.String("code", string(code)),
		zap.Error(cause))
	c.events.SessionError(code, cause.Error())

	sess.cancel()
	_ = sess.leg.audio.Stop()
	if stream := sess.leg.currentStream(); stream != nil {
		_ = stream.Close()
	}

	reason := domain.SessionReasonTransportFailed
	if code == domain.ErrorCodeCapture {
		reason = domain.SessionReasonCaptureFailed
	}
	_ = c.machine.Transition(domain.SessionStateIdle, reason)
}

// finalTranscript assembles the utterance text for the finished session.
// Any locally buffered audio is transcribed in one batch and joined after
// whatever the streams already recognized.
func (c *Controller) finalTranscript(ctx context.Context, sess *session, streamErr error) (string, error) {
	recognized := sess.aggregator.Final()

	var pcm []byte
	if buffer := sess.leg.currentBuffer(); buffer != nil {
		pcm = buffer.Bytes()
	}
	if len(pcm) > 0 {
		if c.batch == nil {
			return recognized, nil
		}
		text, err := c.batch.Transcribe(ctx, pcm)
		if err != nil {
			if recognized == "" {
				return "", err
			}
			c.log.Warn("batch transcription failed, keeping streamed transcript", zap.Error(err))
			return recognized, nil
		}
		return joinUtterance(recognized, text), nil
	}

	if recognized == "" && streamErr != nil {
		return "", streamErr
	}
	return recognized, nil
}

func (c *Controller) takeCurrent() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.current
	c.current = nil
	return sess
}

func (c *Controller) isCurrent(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == sess
}

func (c *Controller) online() bool {
	if c.connectivity == nil {
		return true
	}
	return c.connectivity.Online()
}

func displayText(agg *transcriptAggregator) string {
	return joinUtterance(agg.Final(), agg.Interim())
}

func joinUtterance(head, tail string) string {
	head = strings.TrimSpace(head)
	tail = strings.TrimSpace(tail)
	switch {
	case head == "":
		return tail
	case tail == "":
		return head
	default:
		return head + " " + tail
	}
}

func waitStream(stream ports.SpeechStream, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- stream.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = stream.Close()
		return <-done
	}
}
