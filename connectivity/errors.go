package connectivity

import "errors"

var (
	// ErrConnectionTimeout is returned when auto-connect or an explicit
	// connect exceeds its bound.
	ErrConnectionTimeout = errors.New("connection timed out")
	// ErrScanFailure is returned when the discovery scan fails.
	ErrScanFailure = errors.New("scan failed")
	// ErrPersistence is returned when the credential store cannot be read or written.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidCredential is returned when adding a credential without an SSID.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidArgument is returned for non-positive timeouts or attempt counts.
	ErrInvalidArgument = errors.New("invalid argument")
)
