package ollama

import "fmt"

// ErrServiceUnavailable is returned when the Ollama endpoint cannot be
// reached, answers non-2xx, or the circuit breaker is open. Callers skip
// straight to their own fallback instead of blocking on a dead backend.
type ErrServiceUnavailable struct {
	Endpoint string
	Cause    error
}

func (e *ErrServiceUnavailable) Error() string {
	return fmt.Sprintf("ollama: service unavailable: %s: %v", e.Endpoint, e.Cause)
}

func (e *ErrServiceUnavailable) Unwrap() error { return e.Cause }

// ErrInvalidResponse is returned when the model's output cannot be parsed
// into a schema-valid strategy. The caller must never pass an unvalidated
// strategy to the live page.
type ErrInvalidResponse struct {
	Reason string
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("ollama: invalid response: %s", e.Reason)
}
