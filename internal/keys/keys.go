// Package keys implements the account key-derivation scheme: namespaced
// HKDF-SHA256 derivation from root and session secrets, the quick-stretch
// password derivation, and the HMAC-verified unwrap of fetched key bundles.
//
// All derivations are deterministic and side-effect free. Distinct purposes
// always yield disjoint derivation contexts, so keys derived for different
// purposes are computationally independent even from the same root secret.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// contextPrefix is the fixed vocabulary prefix of every derivation context.
const contextPrefix = "identity.mozilla.com/picl/v1/"

// UnitLength is the unit of all derived key material, in bytes. Every
// derivation length is a multiple of it.
const UnitLength = 32

// quickStretchRounds is the PBKDF2 iteration count of the quick-stretch
// password derivation.
const quickStretchRounds = 1000

// maxDeriveLength is the HKDF-SHA256 expand bound (255 hash blocks).
const maxDeriveLength = 255 * UnitLength

// Context returns the namespaced derivation context for purpose.
func Context(purpose string) []byte {
	return []byte(contextPrefix + purpose)
}

// ContextForEmail returns the namespaced derivation context for purpose bound
// to an email address. Used only for password-stretching salts.
func ContextForEmail(purpose, email string) []byte {
	return []byte(contextPrefix + purpose + ":" + email)
}

// Deriver performs HKDF-SHA256 derivations with a configurable default salt.
// The zero-value salt convention (32 zero bytes) applies whenever the input
// secret is already uniformly random; the empty salt is used when extracting
// from a low-entropy stretched password.
type Deriver struct {
	salt []byte
}

// NewDeriver constructs a Deriver with the standard all-zero 32-byte salt.
func NewDeriver() Deriver {
	return Deriver{salt: make([]byte, UnitLength)}
}

// NewDeriverWithSalt constructs a Deriver with an explicit default salt.
// Intended for tests that need to vary the salt.
func NewDeriverWithSalt(salt []byte) Deriver {
	return Deriver{salt: salt}
}

// Derive produces length bytes of key material from secret under the given
// salt and context via HKDF-SHA256 extract-then-expand. The result is
// deterministic. Returns an error when length exceeds the PRF's safe output
// bound; the output is never silently truncated.
func Derive(secret, salt, context []byte, length int) ([]byte, error) {
	if length > maxDeriveLength {
		return nil, fmt.Errorf("derive: requested %d bytes exceeds HKDF output bound %d", length, maxDeriveLength)
	}

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, context), out); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	return out, nil
}

// DeriveSyncKey derives the 64-byte sync key from the account root key kB.
// The empty salt is deliberate: kB is already uniformly random.
func DeriveSyncKey(kB []byte) ([]byte, error) {
	return Derive(kB, nil, Context("oldsync"), UnitLength*2)
}

// DeriveFromSessionToken derives the 64-byte request-signing key for a
// session token.
func (d Deriver) DeriveFromSessionToken(sessionToken []byte) ([]byte, error) {
	return Derive(sessionToken, d.salt, Context("sessionToken"), UnitLength*2)
}

// DeriveFromKeyFetchToken derives the 96-byte key stream for the one-shot
// key fetch: the first two units sign the request, the last unit is the
// key-request key consumed by the bundle unwrap.
func (d Deriver) DeriveFromKeyFetchToken(keyFetchToken []byte) ([]byte, error) {
	return Derive(keyFetchToken, d.salt, Context("keyFetchToken"), UnitLength*3)
}

// ComputeClientState returns the account client-state marker: the first 16
// bytes of SHA-256(kB), hex-encoded lower case.
func ComputeClientState(kB []byte) string {
	digest := sha256.Sum256(kB)
	return hex.EncodeToString(digest[:16])
}

// QuickStretch runs the 1000-round PBKDF2-SHA256 stretch of a user password,
// salted with the email-bound quickStretch context.
func QuickStretch(email, password string) []byte {
	salt := ContextForEmail("quickStretch", email)
	return pbkdf2.Key([]byte(password), salt, quickStretchRounds, UnitLength, sha256.New)
}

// AuthPW derives the hex-encoded authentication password sent at login from
// a quick-stretched password.
func AuthPW(stretched []byte) (string, error) {
	derived, err := Derive(stretched, nil, Context("authPW"), UnitLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(derived), nil
}

// UnwrapBKey unmasks wrap_kB into the account root key kB using the unwrap
// key derived from the quick-stretched password. The server never sees the
// stretched password, so it can store wrap_kB without learning kB.
func UnwrapBKey(stretched, wrapKB []byte) ([]byte, error) {
	if len(wrapKB) != UnitLength {
		return nil, fmt.Errorf("unwrap kB: got %d bytes, want %d", len(wrapKB), UnitLength)
	}

	mask, err := Derive(stretched, nil, Context("unwrapBkey"), UnitLength)
	if err != nil {
		return nil, err
	}

	kB := make([]byte, UnitLength)
	for i := range wrapKB {
		kB[i] = wrapKB[i] ^ mask[i]
	}
	return kB, nil
}
