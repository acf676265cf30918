package fetch

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError indicates a transport or HTTP failure for a single request.
// Status is zero when the failure happened before a response arrived.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("network: %s returned status %d", e.URL, e.Status)
	}
	return fmt.Errorf("network: %s: %w", e.URL, e.Err).Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RelayExhaustionError indicates every configured relay path failed.
type RelayExhaustionError struct {
	Attempted int
	Errs      []error
}

func (e *RelayExhaustionError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("relay: all %d paths failed: %s", e.Attempted, strings.Join(msgs, "; "))
}

func (e *RelayExhaustionError) Unwrap() error {
	return errors.Join(e.Errs...)
}
