// Package memory is the domain layer of the memory graph: validation,
// observation editing, bounded traversal, and task operations, all against
// the store port. It holds no state of its own; every operation is a
// self-contained unit of work.
package memory

import (
	"fmt"
	"strings"
)

// Issue is a single validation failure tied to the input that caused it.
type Issue struct {
	// Subject is the entity name, relationship type, or task name the
	// issue refers to. May be empty when the input had no usable name.
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Subject == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Subject, i.Message)
}

// ValidationError reports every invalid input in a rejected call. It is
// always raised before any store call, so a rejected batch has no partial
// side effects.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// validationIssue builds a single-issue ValidationError.
func validationIssue(subject, format string, args ...any) *ValidationError {
	return &ValidationError{Issues: []Issue{{Subject: subject, Message: fmt.Sprintf(format, args...)}}}
}
