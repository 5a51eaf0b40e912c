package service

import "fmt"

// NotFoundError reports an operation that referenced an unknown
// meeting. Surfaced to the requesting connection only, never fatal.
type NotFoundError struct {
	MeetingID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("meeting not found: %s", e.MeetingID)
}

// ProviderError wraps an AI adapter failure. Recoverable per task: the
// task returns to idle and other meetings are unaffected.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a meeting-record write failure. In-memory
// room state never depends on these succeeding.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
