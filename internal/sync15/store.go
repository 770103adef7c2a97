// Package sync15 implements the generic pull-merge-push synchronization
// cycle for one remote collection. The engine owns no domain data: record
// reconciliation belongs to the pluggable [Store], transport concerns to the
// [RecordTransport]. The engine enforces only the envelope protocol:
// watermarks, changesets, and upload atomicity.
package sync15

import (
	"context"

	"github.com/mlevitin/go-account-sync/models"
)

//go:generate mockgen -source=store.go -destination=../mock/sync15_mock.go -package=mock

// Store is the single extension point of the sync engine. Consumers hold the
// domain records and decide how remote and local changes reconcile; the
// engine only drives the cycle and reports protocol outcomes.
//
// Implementations may fail with any error type; the engine treats every
// Store failure as fatal for the current cycle and never retries internally.
// Retry policy belongs to the caller, which may re-invoke [Synchronize] with
// the original, unchanged watermark.
type Store interface {
	// ApplyIncoming reconciles the fetched remote changes into local state
	// and returns the outgoing changeset of locally modified records. The
	// returned changeset's Timestamp must echo the watermark this cycle
	// started from; the store must not advance it itself.
	ApplyIncoming(ctx context.Context, incoming models.IncomingChangeset) (models.OutgoingChangeset, error)

	// SyncFinished commits the cycle: the store durably records the new
	// server watermark and marks exactly the records the server accepted.
	SyncFinished(ctx context.Context, newTimestamp models.ServerTimestamp, succeededIDs []string) error
}

// RecordTransport moves raw changesets for one collection over the wire.
// Cancellation and timeouts are delegated entirely to the implementation via
// the context.
type RecordTransport interface {
	// FetchSince returns all remote changes for the collection strictly
	// after since, plus the server's current collection timestamp.
	FetchSince(ctx context.Context, collection string, since models.ServerTimestamp) (models.IncomingChangeset, error)

	// Upload submits the outgoing changeset. When outgoing.FullyAtomic is
	// set the batch must succeed or fail as one unit; otherwise partial
	// success is permitted and the result partitions records into
	// succeeded and failed sets.
	Upload(ctx context.Context, collection string, outgoing models.OutgoingChangeset) (models.UploadResult, error)
}
