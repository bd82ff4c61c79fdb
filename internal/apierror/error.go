// Package apierror defines the normalized (code, message) error every failed
// request converges to, and the classification of raw transport failures.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/baaskit/internal/controllers"
)

// Error codes shared with the server.
const (
	OtherCause          = -1
	InternalServerError = 1
	ConnectionFailed    = 100
	ObjectNotFound      = 101
	InvalidQuery        = 102
	InvalidClassName    = 103
	MissingObjectID     = 104
	InvalidKeyName      = 105
	InvalidPointer      = 106
	InvalidJSON         = 107
	CommandUnavailable  = 108
	NotInitialized      = 109
	InvalidFileName     = 122
	Timeout             = 124
	FileTooLarge        = 129
	FileSaveError       = 130
	DuplicateValue      = 137
	UsernameMissing     = 200
	PasswordMissing     = 201
	SessionMissing      = 206
	InvalidSessionToken = 209
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Is matches another *Error by code, so errors.Is(err, apierror.New(101, ""))
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// serverError is the wire shape of a server-reported failure.
type serverError struct {
	Code  *int   `json:"code"`
	Error string `json:"error"`
}

// Normalize classifies any failure of a request into exactly one Error:
//   - a response body that decodes as {"code", "error"} is passed through;
//   - a response body that is not JSON becomes InvalidJSON;
//   - no response body at all becomes ConnectionFailed.
//
// An already normalized *Error is returned unchanged.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var te *controllers.TransportError
	if errors.As(err, &te) && te.ResponseText != "" {
		var se serverError
		if jerr := json.Unmarshal([]byte(te.ResponseText), &se); jerr != nil {
			return New(InvalidJSON, "Received an error with invalid JSON from server: "+te.ResponseText)
		}
		code := OtherCause
		if se.Code != nil {
			code = *se.Code
		}
		return New(code, se.Error)
	}

	return New(ConnectionFailed, "request failed: "+describe(err))
}

func describe(err error) string {
	var te *controllers.TransportError
	payload := map[string]any{"error": err.Error()}
	if errors.As(err, &te) && te.Status != 0 {
		payload["status"] = te.Status
	}
	b, jerr := json.Marshal(payload)
	if jerr != nil {
		return err.Error()
	}
	return string(b)
}
