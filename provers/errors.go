package relayer

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is the category of every FetchError.
	ErrFetch = errors.New("proving key fetch failed")

	// ErrProving wraps failures raised by the proving routine.
	ErrProving = errors.New("proof generation failed")

	// ErrBusy is returned when a request arrives while another one is in flight.
	ErrBusy = errors.New("a proof request is already in flight")
)

// FetchError reports a proving-key retrieval that did not succeed.
// Status is the HTTP status code, or 0 when no response was received.
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s returned status %d", ErrFetch, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", ErrFetch, e.URL, e.Cause)
}

func (e *FetchError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Cause}
}

func wrapProvingError(err error) error {
	if errors.Is(err, ErrProving) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrProving, err)
}
