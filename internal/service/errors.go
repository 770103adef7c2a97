package service

import "errors"

var (
	// ErrLoginOnServer wraps any failure of the remote login call.
	ErrLoginOnServer = errors.New("error logging in on server")

	// ErrUnverifiedAccount is returned when login succeeds but the
	// account's primary email is not verified. An unverified session
	// cannot fetch keys, so no sync credentials can be derived.
	ErrUnverifiedAccount = errors.New("account email is not verified")

	// ErrUnknownCollection is returned when a sync is requested for a
	// collection no store was registered for.
	ErrUnknownCollection = errors.New("unknown collection")
)
