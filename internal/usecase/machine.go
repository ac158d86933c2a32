package usecase

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"auravoice/internal/domain"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// StateObserver is notified synchronously of every state change.
type StateObserver func(state domain.SessionState, reason domain.SessionStateReason)

// StateMachine is the single source of truth for the interaction state.
// Every other component requests transitions; the machine alone decides the
// current state and notifies observers.
type StateMachine struct {
	log *zap.Logger

	// transitionMu serializes transitions end to end, including observer
	// notification, so no transition can overlap another.
	transitionMu sync.Mutex

	mu        sync.Mutex
	state     domain.SessionState
	observers []StateObserver
}

var allowedTransitions = map[domain.SessionState][]domain.SessionState{
	domain.SessionStateIdle:       {domain.SessionStateListening},
	domain.SessionStateListening:  {domain.SessionStateProcessing, domain.SessionStateIdle},
	domain.SessionStateProcessing: {domain.SessionStateSpeaking, domain.SessionStateIdle},
	domain.SessionStateSpeaking:   {domain.SessionStateIdle, domain.SessionStateListening},
}

func NewStateMachine(log *zap.Logger) *StateMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &StateMachine{log: log, state: domain.SessionStateIdle}
}

// Subscribe registers an observer for all subsequent transitions.
func (m *StateMachine) Subscribe(observer StateObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

// State returns the current state.
func (m *StateMachine) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to the requested state if the edge is legal.
func (m *StateMachine) Transition(to domain.SessionState, reason domain.SessionStateReason) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	from := m.state
	if !edgeAllowed(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidTransition, from, to, reason)
	}
	m.state = to
	observers := append([]StateObserver(nil), m.observers...)
	m.mu.Unlock()

	m.log.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", string(reason)))
	for _, observer := range observers {
		observer(to, reason)
	}
	return nil
}

// ForceSpeaking moves to speaking regardless of the current state. Playback
// start is authoritative for this transition.
func (m *StateMachine) ForceSpeaking(reason domain.SessionStateReason) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	from := m.state
	m.state = domain.SessionStateSpeaking
	observers := append([]StateObserver(nil), m.observers...)
	m.mu.Unlock()

	if from != domain.SessionStateSpeaking {
		m.log.Debug("state forced to speaking", zap.String("from", string(from)))
	}
	for _, observer := range observers {
		observer(domain.SessionStateSpeaking, reason)
	}
}

func edgeAllowed(from domain.SessionState, to domain.SessionState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
