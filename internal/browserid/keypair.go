// Package browserid produces the identity-delegation artifacts the OAuth
// authorization flow needs: fresh RSA keypairs whose public half can be
// submitted for certificate signing, and signed, time-bounded assertions
// binding a keypair to its certificate.
package browserid

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
)

// KeyPair wraps a freshly generated RSA keypair for one authorization flow.
// Keypairs are single-use: generated, certified, used to sign one assertion,
// then discarded.
type KeyPair struct {
	private *rsa.PrivateKey
}

// GenerateKeyPair creates a new RSA keypair of the given bit length.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &KeyPair{private: key}, nil
}

// publicKeyJSON is the wire representation the certificate-signing endpoint
// expects: algorithm marker plus modulus and exponent as decimal strings.
type publicKeyJSON struct {
	Algorithm string `json:"algorithm"`
	Modulus   string `json:"n"`
	Exponent  string `json:"e"`
}

// PublicKeyJSON exports the public key in the JSON representation accepted by
// the certificate-signing endpoint.
func (kp *KeyPair) PublicKeyJSON() (json.RawMessage, error) {
	pub := kp.private.Public().(*rsa.PublicKey)
	out, err := json.Marshal(publicKeyJSON{
		Algorithm: "RS",
		Modulus:   pub.N.String(),
		Exponent:  fmt.Sprintf("%d", pub.E),
	})
	if err != nil {
		return nil, fmt.Errorf("export public key: %w", err)
	}
	return out, nil
}
