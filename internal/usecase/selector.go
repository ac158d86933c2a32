package usecase

import "auravoice/internal/domain"

// ChoosePath picks the recognition path for a new session. The primary path
// is attempted only when a recognizer is configured and the device is
// online; otherwise the session starts directly on the secondary path.
func ChoosePath(primaryAvailable bool, online bool) domain.SessionMode {
	if primaryAvailable && online {
		return domain.ModePrimary
	}
	return domain.ModeSecondary
}

// ShouldRestart decides whether a terminated primary recognition stream is
// relaunched. Benign ends (nil error or a transient, non-network failure
// such as no speech detected) restart the stream so the primary path keeps
// running indefinitely; a manual stop in progress suppresses the restart,
// and network failures are handled by fallback instead.
func ShouldRestart(reason error, manualStop bool) bool {
	if manualStop {
		return false
	}
	return !domain.IsNetworkError(reason)
}
