package browserid

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// assertionIssuer is the issuer claim of self-signed assertions. The value is
// conventional: the assertion's authority is the certificate chained in front
// of it, not the issuer field.
const assertionIssuer = "127.0.0.1"

// CreateAssertion builds a signed, time-bounded assertion binding kp to the
// given certificate for one audience. The result is the certificate and a
// self-signed RS256 JWT joined by "~": the certificate delegates identity
// from the account service to the keypair, and the JWT proves possession of
// the private half. Expiry is carried in milliseconds since epoch.
func CreateAssertion(kp *KeyPair, certificate, audience string, validity time.Duration) (string, error) {
	expiresAt := time.Now().Add(validity).UnixMilli()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"aud": audience,
		"exp": expiresAt,
		"iss": assertionIssuer,
	})

	signed, err := token.SignedString(kp.private)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	return certificate + "~" + signed, nil
}
