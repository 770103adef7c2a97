// Package hawk implements HAWK v1 request signing: a MAC over a normalized
// request string, carried in the Authorization header. The normalization is a
// pinned external protocol contract; both sides must produce the identical
// byte string or authentication fails.
package hawk

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const headerVersion = "1"

// Credentials identify the signer: an opaque token ID and the MAC key.
type Credentials struct {
	ID  string
	Key []byte
}

// CredentialsFromKey splits a 64-byte derived request-signing key into HAWK
// credentials: the first 32 bytes become the hex token ID, the last 32 the
// MAC key.
func CredentialsFromKey(key []byte) (Credentials, error) {
	if len(key) != 64 {
		return Credentials{}, fmt.Errorf("hawk: key must be 64 bytes, got %d", len(key))
	}
	return Credentials{
		ID:  hex.EncodeToString(key[:32]),
		Key: key[32:],
	}, nil
}

// Signer signs outbound requests. The clock and nonce source are injectable
// so tests can produce stable headers.
type Signer struct {
	now   func() time.Time
	nonce func() (string, error)
}

// NewSigner constructs a Signer using the wall clock and a random nonce
// source.
func NewSigner() *Signer {
	return &Signer{
		now:   time.Now,
		nonce: randomNonce,
	}
}

// NewSignerAt constructs a Signer with a fixed clock and nonce, for tests.
func NewSignerAt(now time.Time, nonce string) *Signer {
	return &Signer{
		now:   func() time.Time { return now },
		nonce: func() (string, error) { return nonce, nil },
	}
}

// Sign computes the HAWK MAC for req and sets the Authorization header. When
// body is non-nil the payload hash is included in the MAC, binding the body
// to the signature.
func (s *Signer) Sign(req *http.Request, creds Credentials, body []byte) error {
	if creds.ID == "" || len(creds.Key) == 0 {
		return errors.New("hawk: empty credentials")
	}

	nonce, err := s.nonce()
	if err != nil {
		return fmt.Errorf("hawk: generate nonce: %w", err)
	}
	ts := strconv.FormatInt(s.now().Unix(), 10)

	hash := ""
	if body != nil {
		hash = PayloadHash(req.Header.Get("Content-Type"), body)
	}

	mac := computeMAC(creds.Key, normalized(ts, nonce, req, hash))

	header := fmt.Sprintf(`Hawk id="%s", ts="%s", nonce="%s"`, creds.ID, ts, nonce)
	if hash != "" {
		header += fmt.Sprintf(`, hash="%s"`, hash)
	}
	header += fmt.Sprintf(`, mac="%s"`, mac)

	req.Header.Set("Authorization", header)
	return nil
}

// PayloadHash computes the HAWK payload hash: base64 of SHA-256 over the
// normalized payload string. Only the media type part of the Content-Type
// header participates.
func PayloadHash(contentType string, body []byte) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	h := sha256.New()
	h.Write([]byte("hawk." + headerVersion + ".payload\n"))
	h.Write([]byte(mediaType + "\n"))
	h.Write(body)
	h.Write([]byte("\n"))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// normalized builds the "hawk.1.header" request string the MAC covers.
func normalized(ts, nonce string, req *http.Request, hash string) string {
	pathAndQuery := req.URL.EscapedPath()
	if req.URL.RawQuery != "" {
		pathAndQuery += "?" + req.URL.RawQuery
	}

	var b strings.Builder
	b.WriteString("hawk." + headerVersion + ".header\n")
	b.WriteString(ts + "\n")
	b.WriteString(nonce + "\n")
	b.WriteString(strings.ToUpper(req.Method) + "\n")
	b.WriteString(pathAndQuery + "\n")
	b.WriteString(strings.ToLower(req.URL.Hostname()) + "\n")
	b.WriteString(portFor(req) + "\n")
	b.WriteString(hash + "\n")
	b.WriteString("\n") // ext, unused
	return b.String()
}

func computeMAC(key []byte, normalized string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(normalized))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func portFor(req *http.Request) string {
	if port := req.URL.Port(); port != "" {
		return port
	}
	if req.URL.Scheme == "https" {
		return "443"
	}
	return "80"
}

func randomNonce() (string, error) {
	raw := make([]byte, 6)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
