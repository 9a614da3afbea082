package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// ImportValidationError describes a single rejected row of an import.
// Row is 1-based; 0 means the error is not tied to a row.
type ImportValidationError struct {
	Section string `json:"section"`
	Row     int    `json:"row"`
	Reason  string `json:"reason"`
}

func (err ImportValidationError) Error() string {
	if err.Row == 0 {
		return fmt.Sprintf("%s: %s", err.Section, err.Reason)
	}
	return fmt.Sprintf("%s row %d: %s", err.Section, err.Row, err.Reason)
}

// ImportReport is the partial-success result of an import: valid rows are applied, the rest are listed.
type ImportReport struct {
	Applied  int                     `json:"applied"`
	Rejected []ImportValidationError `json:"rejected"`
}

func (r *ImportReport) Reject(section string, row int, reason string) {
	r.Rejected = append(r.Rejected, ImportValidationError{Section: section, Row: row, Reason: reason})
}

func (r *ImportReport) Merge(other ImportReport) {
	r.Applied += other.Applied
	r.Rejected = append(r.Rejected, other.Rejected...)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
