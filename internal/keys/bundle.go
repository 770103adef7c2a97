package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrMalformedBundle is returned when a fetched key bundle does not
	// decode to exactly three key units. No cryptographic check runs on a
	// bundle of the wrong size.
	ErrMalformedBundle = errors.New("malformed key bundle")

	// ErrIntegrityCheckFailed is returned when the bundle's integrity tag
	// does not match. Retrying with the same inputs will always fail the
	// same way; the caller must obtain a fresh key-fetch token.
	ErrIntegrityCheckFailed = errors.New("key bundle integrity check failed")
)

// UnwrapKeys recovers wrap_kB from the hex-encoded bundle returned by the
// account service, authenticated against keyFetchToken.
//
// The unwrap is a two-round derivation ladder and must run in exactly this
// order to interoperate with the server-side wrapping scheme:
//
//  1. derive three units from keyFetchToken under "keyFetchToken"; the last
//     unit is the key-request key
//  2. decode the bundle and split it into ciphertext (two units) and tag
//  3. derive three units from the key-request key under "account/keys",
//     yielding the HMAC key and the XOR mask
//  4. verify HMAC-SHA256(hmacKey, ciphertext) against the tag in constant
//     time
//  5. unmask the ciphertext; the second half of the plaintext is wrap_kB
func (d Deriver) UnwrapKeys(keyFetchToken []byte, bundleHex string) ([]byte, error) {
	tokenKey, err := Derive(keyFetchToken, d.salt, Context("keyFetchToken"), UnitLength*3)
	if err != nil {
		return nil, err
	}
	keyRequestKey := tokenKey[UnitLength*2 : UnitLength*3]

	bundle, err := hex.DecodeString(bundleHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	if len(bundle) != UnitLength*3 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedBundle, len(bundle), UnitLength*3)
	}

	ciphertext := bundle[:UnitLength*2]
	tag := bundle[UnitLength*2:]

	unwrapKey, err := Derive(keyRequestKey, d.salt, Context("account/keys"), UnitLength*3)
	if err != nil {
		return nil, err
	}
	hmacKey := unwrapKey[:UnitLength]
	xorKey := unwrapKey[UnitLength:]

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil), tag) {
		return nil, ErrIntegrityCheckFailed
	}

	plain := make([]byte, len(ciphertext))
	for i := range ciphertext {
		plain[i] = ciphertext[i] ^ xorKey[i]
	}

	return plain[UnitLength : UnitLength*2], nil
}
