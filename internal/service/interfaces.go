package service

import (
	"context"
	"time"

	"github.com/mlevitin/go-account-sync/internal/sync15"
	"github.com/mlevitin/go-account-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// AccountClient is the slice of the account API the auth flow consumes.
// *account.Client satisfies it.
type AccountClient interface {
	// Login authenticates with the pre-derived authPW (hex). When
	// requestKeys is set the response additionally carries a key-fetch
	// token for FetchKeys.
	Login(ctx context.Context, email, authPW string, requestKeys bool) (models.LoginResponse, error)

	// FetchKeys retrieves and unwraps the account key bundle, returning
	// wrap_kB. The key-fetch token is single-use.
	FetchKeys(ctx context.Context, keyFetchToken []byte) ([]byte, error)
}

// AuthService establishes authenticated sessions: password stretching, login,
// key fetch, and derivation of the sync credentials.
type AuthService interface {
	// SignIn runs the full sign-in flow for the given account and returns
	// the established session with derived sync material.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
}

// SyncStore is a collection store that also reports its committed server
// watermark. store.CredentialStore satisfies it.
type SyncStore interface {
	sync15.Store

	LastServerTimestamp(ctx context.Context) (models.ServerTimestamp, error)
}

// SyncService runs sync cycles for registered collections.
type SyncService interface {
	// Register binds a collection name to its local store. Registering the
	// same name again replaces the previous binding.
	Register(collection string, store SyncStore)

	// SyncCollection runs one sync cycle for the named collection.
	SyncCollection(ctx context.Context, collection string) error

	// SyncAll runs one sync cycle for every registered collection. A
	// failing collection does not prevent the others from syncing; the
	// returned error aggregates all per-collection failures.
	SyncAll(ctx context.Context) error
}

// SyncJob periodically runs the sync service in the background.
type SyncJob interface {
	Start(ctx context.Context, interval time.Duration)
	Stop()
}
