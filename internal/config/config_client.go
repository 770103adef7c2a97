package config

import (
	"fmt"
	"time"
)

// ClientAccount holds the account service settings used by the auth flow.
type ClientAccount struct {
	// AuthServerURL is the base URL of the account authentication service.
	AuthServerURL string
	// OAuthServerURL is the base URL of the OAuth service.
	OAuthServerURL string
	// ProfileServerURL is the base URL of the profile service.
	ProfileServerURL string
	// OAuthClientID identifies this client to the OAuth service.
	OAuthClientID string
	// SignValidity is the requested BrowserID certificate validity.
	SignValidity time.Duration
}

// ClientAdapter holds network settings used by the sync transport layer.
type ClientAdapter struct {
	// StorageServerURL is the base URL of the collection storage service.
	StorageServerURL string
	// RequestTimeout is the default timeout for outbound requests.
	RequestTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string used by the client.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
}

// ClientWorkers contains background sync worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often the sync worker should run.
	SyncInterval time.Duration
	// Collections lists the server collections the worker synchronizes.
	Collections []string
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// Account contains account service settings.
	Account ClientAccount
	// Adapter contains sync transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Account: ClientAccount{
			AuthServerURL:    cfg.Account.AuthServerURL,
			OAuthServerURL:   cfg.Account.OAuthServerURL,
			ProfileServerURL: cfg.Account.ProfileServerURL,
			OAuthClientID:    cfg.Account.OAuthClientID,
			SignValidity:     cfg.Account.SignValidity,
		},
		Adapter: ClientAdapter{
			StorageServerURL: cfg.Adapter.StorageServerURL,
			RequestTimeout:   cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
		},
		Workers: ClientWorkers{
			SyncInterval: cfg.Workers.SyncInterval,
			Collections:  cfg.Workers.Collections,
		},
	}

	if len(clientCfg.Workers.Collections) == 0 {
		clientCfg.Workers.Collections = []string{"passwords"}
	}

	return clientCfg, clientCfg.validate()
}
