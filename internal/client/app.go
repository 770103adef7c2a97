package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mlevitin/go-account-sync/internal/adapter"
	"github.com/mlevitin/go-account-sync/internal/config"
	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/internal/service"
	"github.com/mlevitin/go-account-sync/internal/store"
)

// ErrNoCredentials is returned by Run when the account credentials are not
// present in the environment.
var ErrNoCredentials = errors.New("ACCOUNT_EMAIL and ACCOUNT_PASSWORD must be set")

// App is the long-running sync client: it signs in, performs an initial full
// sync, then keeps the configured collections synchronized on a timer until
// the context is cancelled.
type App struct {
	cfg  *config.ClientConfig
	auth service.AuthService
	db   *store.DB
	log  *logger.Logger
}

// NewApp assembles a client application from its pre-built dependencies.
func NewApp(cfg *config.ClientConfig, auth service.AuthService, db *store.DB, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if auth == nil || db == nil {
		return nil, errors.New("auth service and database are required")
	}
	return &App{cfg: cfg, auth: auth, db: db, log: log}, nil
}

// Run implements [Client]. It blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	email := os.Getenv("ACCOUNT_EMAIL")
	password := os.Getenv("ACCOUNT_PASSWORD")
	if email == "" || password == "" {
		return ErrNoCredentials
	}

	session, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	transport, err := adapter.NewStorageTransport(adapter.StorageConfig{
		BaseURL: storageBaseURL(a.cfg.Adapter.StorageServerURL, session.UID),
		Timeout: a.cfg.Adapter.RequestTimeout,
	}, session.SyncKey, a.log)
	if err != nil {
		return fmt.Errorf("create storage transport: %w", err)
	}

	syncService := service.NewSyncService(transport, true, a.log)
	for _, collection := range a.cfg.Workers.Collections {
		syncService.Register(collection, store.NewCredentialStore(a.db, collection, a.log))
	}

	if err := syncService.SyncAll(ctx); err != nil {
		a.log.Warn().Err(err).Msg("initial sync incomplete, background job will retry")
	}

	job := service.NewSyncJob(syncService)
	job.Start(ctx, a.cfg.Workers.SyncInterval)
	defer job.Stop()

	<-ctx.Done()
	return nil
}

// storageBaseURL appends the per-user path prefix the storage protocol
// expects under the service root.
func storageBaseURL(serverURL, uid string) string {
	return strings.TrimRight(serverURL, "/") + "/1.5/" + uid
}
