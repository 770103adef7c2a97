package models

import "fmt"

// LoginResponse is the account service's answer to POST /account/login.
type LoginResponse struct {
	// UID is the stable account identifier assigned by the service.
	UID string `json:"uid"`

	// SessionToken is the opaque hex-encoded session credential. It scopes
	// all subsequent authenticated account operations.
	SessionToken string `json:"sessionToken"`

	// KeyFetchToken is the opaque hex-encoded credential for the one-shot
	// /account/keys fetch. Present only when login was requested with keys.
	KeyFetchToken string `json:"keyFetchToken,omitempty"`

	// Verified reports whether the account's primary email is verified.
	Verified bool `json:"verified"`
}

// AccountStatusResponse is the answer to GET /account/status.
type AccountStatusResponse struct {
	Exists bool `json:"exists"`
}

// RecoveryEmailStatusResponse is the answer to GET /recovery_email/status.
type RecoveryEmailStatusResponse struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// SignResponse is the answer to POST /certificate/sign. The certificate is a
// serialized signed assertion of the submitted public key, valid for the
// duration requested by the client.
type SignResponse struct {
	Certificate string `json:"cert"`
}

// OAuthAuthorizeResponse is the answer to POST /authorization on the OAuth
// service.
type OAuthAuthorizeResponse struct {
	AccessToken string `json:"access_token"`
}

// KeysResponse is the raw answer to GET /account/keys. Bundle is the
// hex-encoded encrypted-and-authenticated key blob; it still has to be
// unwrapped with the key-fetch token before any key material is usable.
type KeysResponse struct {
	Bundle string `json:"bundle"`
}

// Session is the fully established authenticated state produced by a
// successful sign-in with key fetch: the account identity, the session
// credential, and the derived synchronization material.
type Session struct {
	// UID is the stable account identifier.
	UID string

	// Email is the account's primary email address as entered at sign-in.
	Email string

	// SessionToken is the decoded session credential used to sign
	// authenticated account requests.
	SessionToken []byte

	// KeyB is the account root key recovered from the fetched key bundle.
	KeyB []byte

	// SyncKey is the 64-byte key bundle credential derived from KeyB for
	// the collection storage service.
	SyncKey []byte

	// ClientState is the hex marker the storage service uses to detect a
	// key change across devices.
	ClientState string

	// Verified reports whether the account's primary email is verified.
	// An unverified session cannot fetch keys or sync.
	Verified bool
}

// RemoteError is the structured error envelope returned by the account and
// OAuth services on a non-success status. It is passed through to callers
// verbatim so domain-specific handling (rate limiting, bad credentials, ...)
// stays possible.
type RemoteError struct {
	Code    int64  `json:"code"`
	Errno   int64  `json:"errno"`
	Error_  string `json:"error"`
	Message string `json:"message"`
	Info    string `json:"info"`
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d (errno %d): %s: %s", e.Code, e.Errno, e.Error_, e.Message)
}
