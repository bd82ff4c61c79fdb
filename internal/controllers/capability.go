package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Capability names a role for which exactly one implementation is bound.
type Capability int

const (
	REST Capability = iota
	File
	Storage
	Installation
	User
	Crypto
)

func (c Capability) String() string {
	switch c {
	case REST:
		return "rest"
	case File:
		return "file"
	case Storage:
		return "storage"
	case Installation:
		return "installation"
	case User:
		return "user"
	case Crypto:
		return "crypto"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// Response is a successful raw exchange: HTTP-like status and JSON body.
type Response struct {
	Status int
	Body   json.RawMessage
}

// TransportError is the only error a Transport returns. An empty
// ResponseText means no response was received at all (DNS, connectivity,
// timeout); otherwise it holds the raw body the server answered with.
type TransportError struct {
	Status       int
	ResponseText string
	Err          error
}

func (e *TransportError) Error() string {
	if e.ResponseText != "" {
		return fmt.Sprintf("transport: status %d: %s", e.Status, e.ResponseText)
	}
	if e.Err != nil {
		return "transport: " + e.Err.Error()
	}
	return "transport: request failed"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport performs a single raw network exchange.
type Transport interface {
	Send(ctx context.Context, method, url string, body []byte, headers http.Header) (*Response, error)
}

// SavedFile is the server identity assigned to an uploaded file.
type SavedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FileController uploads the local file known by name.
type FileController interface {
	SaveFile(ctx context.Context, name string) (*SavedFile, error)
}

// StorageController is a best-effort key/value store. It never reports
// errors: a missing or unreadable key is (“”, false), failed writes are
// dropped.
type StorageController interface {
	GetItem(ctx context.Context, key string) (string, bool)
	SetItem(ctx context.Context, key, value string)
	RemoveItem(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// InstallationController yields an identifier stable for the life of the
// local install.
type InstallationController interface {
	CurrentInstallationID(ctx context.Context) (string, error)
}

// SessionUser is the part of a user the pipeline needs.
type SessionUser interface {
	SessionToken() string
}

// UserController resolves the currently logged-in user. A nil user with a
// nil error means nobody is logged in.
type UserController interface {
	CurrentUser(ctx context.Context) (SessionUser, error)
}

// CryptoController encrypts values persisted on the device.
type CryptoController interface {
	Encrypt(plaintext []byte, secret string) (string, error)
	Decrypt(ciphertext string, secret string) ([]byte, error)
}
