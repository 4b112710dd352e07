package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of pipeline failure classes
type ErrorKind string

const (
	// KindTranscription covers image description and audio transcription failures
	KindTranscription ErrorKind = "transcription"
	// KindRetrieval covers embedding and vector search failures
	KindRetrieval ErrorKind = "retrieval"
	// KindGeneration is the only kind that changes the user-visible reply
	KindGeneration ErrorKind = "generation"
	// KindHistoryCorrupt covers unreadable persisted history
	KindHistoryCorrupt ErrorKind = "history_corrupt"
	// KindAudit covers research log persistence failures
	KindAudit ErrorKind = "audit"
)

// Error is a classified collaborator failure
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError classifies err under kind
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of a classified error
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}
