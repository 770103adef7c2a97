// Package account implements the authenticated account-operation client:
// login, status checks, key fetch, certificate signing, and OAuth
// authorization against the account, OAuth, and profile services.
//
// The client is a stateless orchestrator. It holds immutable configuration
// (base URLs, OAuth client ID, signing validity) and threads all credentials
// through call arguments; tokens and keys are owned by the caller and are
// never cached here.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mlevitin/go-account-sync/internal/browserid"
	"github.com/mlevitin/go-account-sync/internal/hawk"
	"github.com/mlevitin/go-account-sync/internal/keys"
	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/models"
)

// Config holds the immutable settings of an account client. Base URLs must
// include the API version prefix (e.g. "https://api.accounts.example.com/v1/").
type Config struct {
	AuthBaseURL    string
	OAuthBaseURL   string
	ProfileBaseURL string

	// OAuthClientID identifies this client to the OAuth service.
	OAuthClientID string

	// SignValidity bounds certificates requested via Sign and the
	// assertions built on top of them.
	SignValidity time.Duration

	// KeyPairBits is the RSA modulus size of per-authorization keypairs.
	KeyPairBits int

	// Timeout is the per-request transport timeout.
	Timeout time.Duration
}

func (cfg *Config) withDefaults() {
	if cfg.SignValidity <= 0 {
		cfg.SignValidity = 24 * time.Hour
	}
	if cfg.KeyPairBits <= 0 {
		cfg.KeyPairBits = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
}

// Client performs account operations. Each operation is one blocking network
// round trip (OAuthAuthorize composes two: certificate signing plus the
// authorization call).
type Client struct {
	http    *resty.Client
	cfg     Config
	deriver keys.Deriver
	signer  *hawk.Signer
	log     *logger.Logger
}

// New constructs a Client from cfg.
func New(cfg Config, log *logger.Logger) *Client {
	cfg.withDefaults()

	return &Client{
		http:    resty.New().SetTimeout(cfg.Timeout),
		cfg:     cfg,
		deriver: keys.NewDeriver(),
		signer:  hawk.NewSigner(),
		log:     log,
	}
}

// Login authenticates with the pre-derived authPW (hex). When requestKeys is
// set the response additionally carries a key-fetch token for FetchKeys.
func (c *Client) Login(ctx context.Context, email, authPW string, requestKeys bool) (models.LoginResponse, error) {
	endpoint, err := joinURL(c.cfg.AuthBaseURL, "account/login")
	if err != nil {
		return models.LoginResponse{}, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("keys", strconv.FormatBool(requestKeys)).
		SetBody(map[string]string{"email": email, "authPW": authPW}).
		Post(endpoint)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.LoginResponse{}, err
	}

	var out models.LoginResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.LoginResponse{}, fmt.Errorf("decode login response: %w", err)
	}

	c.log.Debug().Str("uid", out.UID).Bool("verified", out.Verified).Msg("login succeeded")
	return out, nil
}

// AccountStatus reports whether an account exists for uid.
func (c *Client) AccountStatus(ctx context.Context, uid string) (models.AccountStatusResponse, error) {
	endpoint, err := joinURL(c.cfg.AuthBaseURL, "account/status")
	if err != nil {
		return models.AccountStatusResponse{}, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("uid", uid).
		Get(endpoint)
	if err != nil {
		return models.AccountStatusResponse{}, fmt.Errorf("account status request: %w", err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.AccountStatusResponse{}, err
	}

	var out models.AccountStatusResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.AccountStatusResponse{}, fmt.Errorf("decode account status response: %w", err)
	}
	return out, nil
}

// FetchKeys retrieves and unwraps the account key bundle, returning wrap_kB.
// The key-fetch token is single-use; on an integrity failure the caller must
// obtain a fresh one, retrying with the same token always fails identically.
func (c *Client) FetchKeys(ctx context.Context, keyFetchToken []byte) ([]byte, error) {
	requestKey, err := c.deriver.DeriveFromKeyFetchToken(keyFetchToken)
	if err != nil {
		return nil, err
	}

	endpoint, err := joinURL(c.cfg.AuthBaseURL, "account/keys")
	if err != nil {
		return nil, err
	}

	resp, err := c.hawkRequest(ctx, requestKey[:keys.UnitLength*2], http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch keys request: %w", err)
	}
	if err = mapRemoteError(resp); err != nil {
		return nil, err
	}

	var kr models.KeysResponse
	if err = json.Unmarshal(resp.Body(), &kr); err != nil {
		return nil, fmt.Errorf("decode keys response: %w", err)
	}

	wrapKB, err := c.deriver.UnwrapKeys(keyFetchToken, kr.Bundle)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Msg("account keys fetched and unwrapped")
	return wrapKB, nil
}

// RecoveryEmailStatus reports the session's primary email and its
// verification state.
func (c *Client) RecoveryEmailStatus(ctx context.Context, sessionToken []byte) (models.RecoveryEmailStatusResponse, error) {
	sessionKey, err := c.deriver.DeriveFromSessionToken(sessionToken)
	if err != nil {
		return models.RecoveryEmailStatusResponse{}, err
	}

	endpoint, err := joinURL(c.cfg.AuthBaseURL, "recovery_email/status")
	if err != nil {
		return models.RecoveryEmailStatusResponse{}, err
	}

	resp, err := c.hawkRequest(ctx, sessionKey, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.RecoveryEmailStatusResponse{}, fmt.Errorf("recovery email status request: %w", err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.RecoveryEmailStatusResponse{}, err
	}

	var out models.RecoveryEmailStatusResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.RecoveryEmailStatusResponse{}, fmt.Errorf("decode recovery email status response: %w", err)
	}
	return out, nil
}

// Sign submits a public key for certificate signing under the session. The
// certificate is valid for the configured sign validity.
func (c *Client) Sign(ctx context.Context, sessionToken []byte, publicKey json.RawMessage) (models.SignResponse, error) {
	sessionKey, err := c.deriver.DeriveFromSessionToken(sessionToken)
	if err != nil {
		return models.SignResponse{}, err
	}

	endpoint, err := joinURL(c.cfg.AuthBaseURL, "certificate/sign")
	if err != nil {
		return models.SignResponse{}, err
	}

	body := map[string]any{
		"publicKey": publicKey,
		"duration":  c.cfg.SignValidity.Milliseconds(),
	}
	resp, err := c.hawkRequest(ctx, sessionKey, http.MethodPost, endpoint, body)
	if err != nil {
		return models.SignResponse{}, fmt.Errorf("certificate sign request: %w", err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.SignResponse{}, err
	}

	var out models.SignResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.SignResponse{}, fmt.Errorf("decode certificate sign response: %w", err)
	}
	return out, nil
}

// OAuthAuthorize obtains a capability-scoped access token for the session.
// It generates a fresh keypair, has the account service certify it, builds a
// time-bounded assertion over the certificate for the OAuth audience, and
// submits the assertion. The delegation chain makes the account service the
// certificate authority while the assertion is self-signed over the certified
// key.
func (c *Client) OAuthAuthorize(ctx context.Context, sessionToken []byte, scope string) (models.OAuthAuthorizeResponse, error) {
	audience, err := c.oauthAudience()
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	keyPair, err := browserid.GenerateKeyPair(c.cfg.KeyPairBits)
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}
	publicKey, err := keyPair.PublicKeyJSON()
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	signed, err := c.Sign(ctx, sessionToken, publicKey)
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	assertion, err := browserid.CreateAssertion(keyPair, signed.Certificate, audience, c.cfg.SignValidity)
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	sessionKey, err := c.deriver.DeriveFromSessionToken(sessionToken)
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	endpoint, err := joinURL(c.cfg.OAuthBaseURL, "authorization")
	if err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	body := map[string]any{
		"assertion":     assertion,
		"client_id":     c.cfg.OAuthClientID,
		"response_type": "token",
		"scope":         scope,
	}
	resp, err := c.hawkRequest(ctx, sessionKey, http.MethodPost, endpoint, body)
	if err != nil {
		return models.OAuthAuthorizeResponse{}, fmt.Errorf("oauth authorize request: %w", err)
	}
	if err = mapRemoteError(resp); err != nil {
		return models.OAuthAuthorizeResponse{}, err
	}

	var out models.OAuthAuthorizeResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.OAuthAuthorizeResponse{}, fmt.Errorf("decode oauth authorize response: %w", err)
	}

	c.log.Debug().Str("scope", scope).Msg("oauth token obtained")
	return out, nil
}

// SignOut is not supported by this client yet.
func (c *Client) SignOut(ctx context.Context) error {
	return fmt.Errorf("sign out: %w", ErrNotImplemented)
}

// hawkRequest executes one HAWK-signed round trip. signingKey is the 64-byte
// derived request key; body, when non-nil, is JSON-encoded and bound into the
// signature via the payload hash.
func (c *Client) hawkRequest(ctx context.Context, signingKey []byte, method, endpoint string, body any) (*resty.Response, error) {
	creds, err := hawk.CredentialsFromKey(signingKey)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	// The MAC covers the final method, URL, and payload, so the header is
	// computed over a throwaway request with exactly those parts.
	signReq, err := http.NewRequest(method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		signReq.Header.Set("Content-Type", "application/json")
	}
	if err = c.signer.Sign(signReq, creds, payload); err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", signReq.Header.Get("Authorization"))
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	return req.Execute(method, endpoint)
}

// oauthAudience derives the assertion audience from the OAuth base URL:
// scheme://host[:port], omitting default ports.
func (c *Client) oauthAudience() (string, error) {
	parsed, err := url.Parse(c.cfg.OAuthBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse oauth url: %w", err)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("oauth url %q has no host", c.cfg.OAuthBaseURL)
	}

	port := parsed.Port()
	if port == "" || isDefaultPort(parsed.Scheme, port) {
		return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Hostname()), nil
	}
	return fmt.Sprintf("%s://%s:%s", parsed.Scheme, parsed.Hostname(), port), nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "https" && port == "443") || (scheme == "http" && port == "80")
}

func joinURL(base, path string) (string, error) {
	joined, err := url.JoinPath(base, strings.Split(path, "/")...)
	if err != nil {
		return "", fmt.Errorf("build url from %q and %q: %w", base, path, err)
	}
	return joined, nil
}
