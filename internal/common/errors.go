package common

import "errors"

var (
	// Configuration errors, raised before any I/O.
	ErrMasterKeyNotProvided = errors.New("cannot use the master key, it has not been provided")
	ErrMissingApplicationID = errors.New("application id is not configured")
	ErrMissingServerURL     = errors.New("server url is not configured")
	ErrInvalidVersion       = errors.New("invalid client version")

	// File errors.
	ErrInvalidFileName = errors.New("invalid file name")
	ErrNoFileChosen    = errors.New("no file chosen")

	// Session errors.
	ErrNoCurrentUser = errors.New("no current user")
)
