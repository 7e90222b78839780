// Package apperr defines the error taxonomy surfaced to API clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	NameValidation = "ValidationError"
	NameDataImport = "DataImportError"
	NameFileType   = "CSVFileTypeError"
	NameCSVField   = "CSVFieldValidationError"
	NameConflict   = "ConflictError"
	NameDatabase   = "DatabaseError"
	NameInternal   = "InternalServerError"
)

// Error is a client-facing error. Operational errors are caused by the caller
// (bad input, wrong file); the rest are server faults and hide their cause.
type Error struct {
	Name        string
	Message     string
	Status      int
	Operational bool
	Details     any
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Name + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Name + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// As extracts an *Error from the chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func Is(err error, name string) bool {
	ae, ok := As(err)
	return ok && ae.Name == name
}

// FieldIssue is one entry of a ValidationError's details.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func Validation(message string, issues ...FieldIssue) *Error {
	e := &Error{Name: NameValidation, Message: message, Status: http.StatusBadRequest, Operational: true}
	if len(issues) > 0 {
		e.Details = issues
	}
	return e
}

func DataImport(message string) *Error {
	return &Error{Name: NameDataImport, Message: message, Status: http.StatusBadRequest, Operational: true}
}

func CSVFileType() *Error {
	return &Error{
		Name:        NameFileType,
		Message:     "Only CSV files are allowed",
		Status:      http.StatusBadRequest,
		Operational: true,
		Details: map[string][]string{
			"allowedTypes":      {"text/csv"},
			"allowedExtensions": {".csv"},
		},
	}
}

// FieldDetails locates a CSV validation failure.
type FieldDetails struct {
	Line  int    `json:"line"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func CSVField(line int, field, value, reason string) *Error {
	return &Error{
		Name:        NameCSVField,
		Message:     fmt.Sprintf("line %d: field %q: %s (value %q)", line, field, reason, value),
		Status:      http.StatusBadRequest,
		Operational: true,
		Details:     FieldDetails{Line: line, Field: field, Value: value},
	}
}

func CSVMissingField(line int, field string) *Error {
	e := CSVField(line, field, "", "missing")
	e.Message = fmt.Sprintf("line %d: Missing required field: %s", line, field)
	return e
}

// FileTooLarge rejects an upload over the size cap.
func FileTooLarge(limit int64) *Error {
	return &Error{
		Name:        NameDataImport,
		Message:     fmt.Sprintf("File exceeds the %d byte upload limit", limit),
		Status:      http.StatusRequestEntityTooLarge,
		Operational: true,
	}
}

func Conflict(message string) *Error {
	return &Error{Name: NameConflict, Message: message, Status: http.StatusConflict, Operational: true}
}

// Database wraps a storage failure. The cause is kept for logs only.
func Database(message string, cause error) *Error {
	return &Error{Name: NameDatabase, Message: message, Status: http.StatusInternalServerError, cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Name: NameInternal, Message: "Internal server error", Status: http.StatusInternalServerError, cause: cause}
}
