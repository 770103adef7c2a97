// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mikhail Levitin

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-account-sync client. It aggregates all sub-configurations and is
// populated by merging values from environment variables, command-line flags,
// and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Account holds the endpoints and parameters of the remote account
	// services the client authenticates against.
	Account Account `envPrefix:"ACCOUNT_"`

	// Storage holds configuration for the local persistence backend.
	Storage Storage `envPrefix:"STORAGE_"`

	// Adapter holds the endpoint and timeout settings of the remote
	// collection storage service.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Workers holds configuration for the background sync worker.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Account holds the remote account service endpoints and the parameters of
// the BrowserID certificate flow.
type Account struct {
	// AuthServerURL is the base URL of the account authentication service
	// (e.g. "https://api.accounts.example.com/v1").
	// Env: ACCOUNT_AUTH_SERVER_URL
	AuthServerURL string `env:"AUTH_SERVER_URL"`

	// OAuthServerURL is the base URL of the OAuth authorization service.
	// Env: ACCOUNT_OAUTH_SERVER_URL
	OAuthServerURL string `env:"OAUTH_SERVER_URL"`

	// ProfileServerURL is the base URL of the profile service.
	// Env: ACCOUNT_PROFILE_SERVER_URL
	ProfileServerURL string `env:"PROFILE_SERVER_URL"`

	// OAuthClientID identifies this client to the OAuth service.
	// Env: ACCOUNT_OAUTH_CLIENT_ID
	OAuthClientID string `env:"OAUTH_CLIENT_ID"`

	// SignValidity specifies how long a signed BrowserID certificate
	// remains valid after issuance (e.g. "24h").
	// Env: ACCOUNT_SIGN_VALIDITY
	SignValidity time.Duration `env:"SIGN_VALIDITY"`
}

// Storage groups the configuration for the local storage backend.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite Data Source Name used to open the local database
	// (e.g. "/home/user/.local/share/account-sync/credentials.db").
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Adapter holds the endpoint and timeout settings of the remote collection
// storage service the sync engine talks to.
type Adapter struct {
	// StorageServerURL is the base URL of the collection storage service,
	// including the user path prefix (e.g.
	// "https://storage.example.com/1.5/12345").
	// Env: ADAPTER_STORAGE_SERVER_URL
	StorageServerURL string `env:"STORAGE_SERVER_URL"`

	// RequestTimeout is the maximum duration allowed for a single outbound
	// request before the client cancels it (e.g. "30s", "1m").
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Workers holds configuration for the background sync worker.
type Workers struct {
	// SyncInterval defines how often the background worker runs a sync
	// cycle (e.g. "5m").
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// Collections lists the server collections the worker synchronizes,
	// comma-separated in the environment (e.g. "passwords,bookmarks").
	// Env: WORKERS_COLLECTIONS
	Collections []string `env:"COLLECTIONS" envSeparator:","`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
