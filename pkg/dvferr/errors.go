// Package dvferr defines the error taxonomy for the ingestion pipeline.
// Row-level kinds (malformed record, invalid value, duplicate association)
// are recovered and counted; batch/run-level kinds (integrity conflict,
// storage unavailable) propagate to the run coordinator.
package dvferr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

type Kind string

const (
	KindMalformedRecord      Kind = "malformed_record"
	KindInvalidValue         Kind = "invalid_value"
	KindDuplicateAssociation Kind = "duplicate_association"
	KindIntegrityConflict    Kind = "integrity_conflict"
	KindStorageUnavailable   Kind = "storage_unavailable"
)

type Error struct {
	Kind    Kind
	Field   string
	Source  string
	Line    int
	Message string
	cause   error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, cause: err}
}

func (e *Error) Error() string {
	path := []string{}
	if e.Source != "" {
		if e.Line > 0 {
			path = append(path, fmt.Sprintf("%s:%d", e.Source, e.Line))
		} else {
			path = append(path, e.Source)
		}
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	msg := e.Message
	if e.cause != nil {
		msg = msg + ": " + e.cause.Error()
	}
	if len(path) == 0 {
		return string(e.Kind) + ": " + msg
	}
	return string(e.Kind) + ": " + strings.Join(path, " -> ") + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) AddField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) AddSource(source string, line int) *Error {
	e.Source = source
	e.Line = line
	return e
}

// KindOf returns the kind of err if it is (or wraps) a taxonomy error,
// otherwise the empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRowLevel reports whether err is recoverable at row granularity:
// the row is skipped and the run continues.
func IsRowLevel(err error) bool {
	switch KindOf(err) {
	case KindMalformedRecord, KindInvalidValue, KindDuplicateAssociation:
		return true
	}
	return false
}

func IsIntegrityConflict(err error) bool {
	return KindOf(err) == KindIntegrityConflict
}

func IsStorageUnavailable(err error) bool {
	return KindOf(err) == KindStorageUnavailable
}

// ToHTTPError maps a taxonomy error onto the platform HTTP error type for
// the admin API surface.
func ToHTTPError(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return httperror.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case KindMalformedRecord, KindInvalidValue:
		status = http.StatusBadRequest
	case KindDuplicateAssociation:
		status = http.StatusConflict
	case KindStorageUnavailable:
		status = http.StatusServiceUnavailable
	}
	return httperror.NewHTTPError(status, e.Error()).AddMetaValue("kind", string(e.Kind)).AddMetaValue("field", e.Field)
}
