package keys

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

// wrapBundle builds a bundle the way the server side does: derive the
// key-request key from the token, mask the plaintext with the XOR key, and
// append the HMAC tag over the ciphertext.
func wrapBundle(t *testing.T, keyFetchToken, kA, wrapKB []byte) string {
	t.Helper()

	d := NewDeriver()
	tokenKey, err := Derive(keyFetchToken, d.salt, Context("keyFetchToken"), UnitLength*3)
	if err != nil {
		t.Fatalf("derive token key: %v", err)
	}
	keyRequestKey := tokenKey[UnitLength*2:]

	unwrapKey, err := Derive(keyRequestKey, d.salt, Context("account/keys"), UnitLength*3)
	if err != nil {
		t.Fatalf("derive unwrap key: %v", err)
	}
	hmacKey := unwrapKey[:UnitLength]
	xorKey := unwrapKey[UnitLength:]

	plain := append(append([]byte{}, kA...), wrapKB...)
	ciphertext := make([]byte, len(plain))
	for i := range plain {
		ciphertext[i] = plain[i] ^ xorKey[i]
	}

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)

	return hex.EncodeToString(append(ciphertext, mac.Sum(nil)...))
}

func TestUnwrapKeys_RoundTrip(t *testing.T) {
	token := bytes.Repeat([]byte{0x11}, 32)
	kA := bytes.Repeat([]byte{0xAA}, 32)
	wrapKB := bytes.Repeat([]byte{0xBB}, 32)

	bundle := wrapBundle(t, token, kA, wrapKB)

	got, err := NewDeriver().UnwrapKeys(token, bundle)
	if err != nil {
		t.Fatalf("UnwrapKeys error: %v", err)
	}
	if !bytes.Equal(got, wrapKB) {
		t.Fatalf("wrap_kB mismatch: got %x", got)
	}
}

func TestUnwrapKeys_WrongLengthRejectedBeforeCrypto(t *testing.T) {
	token := bytes.Repeat([]byte{0x11}, 32)

	for _, n := range []int{0, 32, 64, 95, 97, 128} {
		bundle := hex.EncodeToString(make([]byte, n))
		_, err := NewDeriver().UnwrapKeys(token, bundle)
		if !errors.Is(err, ErrMalformedBundle) {
			t.Fatalf("bundle of %d bytes: got %v, want ErrMalformedBundle", n, err)
		}
	}
}

func TestUnwrapKeys_BadHexIsMalformed(t *testing.T) {
	token := bytes.Repeat([]byte{0x11}, 32)

	_, err := NewDeriver().UnwrapKeys(token, "not-hex-at-all")
	if !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("got %v, want ErrMalformedBundle", err)
	}
}

func TestUnwrapKeys_TamperedTag(t *testing.T) {
	token := bytes.Repeat([]byte{0x11}, 32)
	bundle := wrapBundle(t, token, bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0xBB}, 32))

	raw, _ := hex.DecodeString(bundle)
	for _, i := range []int{UnitLength * 2, UnitLength*3 - 1} {
		tampered := append([]byte{}, raw...)
		tampered[i] ^= 0x01
		_, err := NewDeriver().UnwrapKeys(token, hex.EncodeToString(tampered))
		if !errors.Is(err, ErrIntegrityCheckFailed) {
			t.Fatalf("tag bit flip at %d: got %v, want ErrIntegrityCheckFailed", i, err)
		}
	}
}

func TestUnwrapKeys_TamperedCiphertext(t *testing.T) {
	token := bytes.Repeat([]byte{0x11}, 32)
	bundle := wrapBundle(t, token, bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0xBB}, 32))

	raw, _ := hex.DecodeString(bundle)
	for _, i := range []int{0, UnitLength, UnitLength*2 - 1} {
		tampered := append([]byte{}, raw...)
		tampered[i] ^= 0x80
		_, err := NewDeriver().UnwrapKeys(token, hex.EncodeToString(tampered))
		if !errors.Is(err, ErrIntegrityCheckFailed) {
			t.Fatalf("ciphertext bit flip at %d: got %v, want ErrIntegrityCheckFailed", i, err)
		}
	}
}

func TestUnwrapKeys_WrongTokenFailsIntegrity(t *testing.T) {
	token := bytes.Repeat([]byte{0x11}, 32)
	bundle := wrapBundle(t, token, bytes.Repeat([]byte{0xAA}, 32), bytes.Repeat([]byte{0xBB}, 32))

	otherToken := bytes.Repeat([]byte{0x22}, 32)
	_, err := NewDeriver().UnwrapKeys(otherToken, bundle)
	if !errors.Is(err, ErrIntegrityCheckFailed) {
		t.Fatalf("got %v, want ErrIntegrityCheckFailed", err)
	}
}
