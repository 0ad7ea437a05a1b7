package student

import "fmt"

// Kind classifies an operation failure so the HTTP layer can translate it
// without inspecting messages.
type Kind string

const (
	KindMissingField  Kind = "missing-field"
	KindInvalidFormat Kind = "invalid-format"
	KindQuotaExceeded Kind = "quota-exceeded"
	KindNotFound      Kind = "not-found"
	KindDuplicate     Kind = "duplicate-username"
	KindProvider      Kind = "provider-error"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrMissingUsername = &Error{KindMissingField, `Missing required field "username"`}
	ErrInvalidUsername = &Error{KindInvalidFormat, "Invalid username. Use letters, numbers, hyphens and underscores, only."}
	ErrQuotaExceeded   = &Error{KindQuotaExceeded, "Class already has maximum allowed number of students"}
	ErrStudentNotFound = &Error{KindNotFound, "student not found"}
)

func duplicateErr(username string) *Error {
	return &Error{KindDuplicate, fmt.Sprintf("student with username %q already exists", username)}
}

func providerErr(err error) *Error {
	return &Error{KindProvider, fmt.Sprintf("identity provider request failed: %v", err)}
}
