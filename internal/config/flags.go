package config

import (
	"errors"
	"flag"
	"net/url"
	"strings"
	"time"
)

// ServerURL holds a validated base URL of a remote service.
// It implements the flag.Value interface.
type ServerURL struct {
	URL string
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-auth-server account authentication service base URL
//	-oauth-server OAuth service base URL
//	-profile-server profile service base URL
//	-oauth-client-id OAuth client identifier
//	-sign-validity certificate validity (e.g., "24h")
//	-storage-server collection storage service base URL
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-d local database DSN
//	-c/-config json file path with configs
//	-sync-interval background sync interval (e.g., "5m")
//	-collections comma-separated collection names
func ParseFlags() *StructuredConfig {
	var authServer, oauthServer, profileServer, storageServer ServerURL
	var oauthClientID string
	var signValidity time.Duration
	var databaseDSN string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var syncInterval time.Duration
	var collections string

	flag.Var(&authServer, "auth-server", "Account authentication service base URL")
	flag.Var(&oauthServer, "oauth-server", "OAuth service base URL")
	flag.Var(&profileServer, "profile-server", "Profile service base URL")
	flag.Var(&storageServer, "storage-server", "Collection storage service base URL")
	flag.StringVar(&oauthClientID, "oauth-client-id", "", "OAuth client identifier")
	flag.DurationVar(&signValidity, "sign-validity", 0, "Certificate validity (e.g., 24h)")
	flag.StringVar(&databaseDSN, "d", "", "Local database DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g., 5m)")
	flag.StringVar(&collections, "collections", "", "Comma-separated collection names")

	flag.Parse()

	return &StructuredConfig{
		Account: Account{
			AuthServerURL:    authServer.String(),
			OAuthServerURL:   oauthServer.String(),
			ProfileServerURL: profileServer.String(),
			OAuthClientID:    oauthClientID,
			SignValidity:     signValidity,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Adapter: Adapter{
			StorageServerURL: storageServer.String(),
			RequestTimeout:   requestTimeout,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
			Collections:  splitCollections(collections),
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns the validated URL, empty when the flag was not set.
func (u *ServerURL) String() string {
	return u.URL
}

// Set parses and validates the input as an http(s) base URL and stores it.
func (u *ServerURL) Set(s string) error {
	parsed, err := url.Parse(s)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("server URL must use http or https")
	}

	if parsed.Host == "" {
		return errors.New("server URL must include a host")
	}

	u.URL = s
	return nil
}

func splitCollections(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	collections := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			collections = append(collections, trimmed)
		}
	}

	return collections
}
