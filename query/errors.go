package query

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/reoring/postq"
)

// Kind discriminates the two error families carried by APIError.
type Kind string

const (
	// KindValidation means a request or response body failed its schema.
	KindValidation Kind = "validation"
	// KindTransport means the request failed in flight or the server answered
	// with an error status.
	KindTransport Kind = "transport"
)

// Pseudo statuses for transport failures that never produced an HTTP status.
const (
	CodeFetchError   = "FETCH_ERROR"
	CodeParsingError = "PARSING_ERROR"
)

// APIError is the single error type every query returns.
type APIError struct {
	Kind Kind `json:"kind"`
	// Status is the HTTP status when one was received.
	Status int `json:"status,omitempty"`
	// Code is CodeFetchError or CodeParsingError when Status is zero.
	Code    string       `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
	Issues  postq.Issues `json:"issues,omitempty"`
	// Data holds the offending body: the request body for argument failures,
	// the raw payload for response or HTTP failures.
	Data any `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	switch {
	case e.Kind == KindValidation:
		return "validation failed: " + e.Issues.Error()
	case e.Status != 0:
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Messages returns what a UI shows: each issue message for validation
// failures, otherwise the transport message.
func (e *APIError) Messages() []string {
	if e == nil {
		return nil
	}
	if e.Kind == KindValidation {
		return e.Issues.Messages()
	}
	msg := e.Message
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = e.Code
	}
	return []string{msg}
}

// ValidationError builds a KindValidation error.
func ValidationError(iss postq.Issues, data any) *APIError {
	return &APIError{Kind: KindValidation, Issues: iss, Data: data}
}

// TransportError builds a KindTransport error for an HTTP status.
func TransportError(status int, msg string, data any) *APIError {
	return &APIError{Kind: KindTransport, Status: status, Message: msg, Data: data}
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsValidation reports whether err is a schema validation failure.
func IsValidation(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Kind == KindValidation
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.Kind == KindTransport
}
