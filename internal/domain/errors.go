package domain

import (
	"errors"
	"fmt"
	"net"
)

// ErrNetwork tags recognition or transport failures caused by connectivity
// loss. The strategy selector switches to the secondary path only for errors
// carrying this tag or implementing net.Error.
var ErrNetwork = errors.New("network failure")

// MarkNetwork wraps err so IsNetworkError reports true for it.
func MarkNetwork(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// IsNetworkError classifies an error as network-related. Nil errors and
// transient recognition outcomes (such as no speech detected) are not
// network errors.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
