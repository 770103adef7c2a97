package sync15

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/models"
)

// ErrStoreTimestampDrift reports a Store contract violation: the outgoing
// changeset's watermark differed from the one the cycle started with. This is
// a programming-error-class fault in the Store implementation, not a
// transient condition; the cycle aborts before any upload.
var ErrStoreTimestampDrift = errors.New("store changed the last-sync timestamp")

// Synchronize runs one fetch/apply/upload cycle for collection against the
// store's committed watermark lastSync.
//
// The cycle short-circuits on the first failure: a fetch failure means no
// apply or upload happens; an apply failure means no upload happens; an
// upload failure means SyncFinished is never called, leaving the store at its
// pre-cycle watermark so a retry with the same arguments is safe and
// idempotent from the store's perspective.
func Synchronize(
	ctx context.Context,
	tr RecordTransport,
	store Store,
	collection string,
	lastSync models.ServerTimestamp,
	fullyAtomic bool,
	log *logger.Logger,
) error {
	log.Info().Str("collection", collection).Msg("syncing collection")

	incoming, err := tr.FetchSince(ctx, collection, lastSync)
	if err != nil {
		return fmt.Errorf("fetch incoming changes: %w", err)
	}
	remoteTimestamp := incoming.Timestamp

	log.Info().Int("count", len(incoming.Changes)).Msg("downloaded remote changes")

	outgoing, err := store.ApplyIncoming(ctx, incoming)
	if err != nil {
		return fmt.Errorf("apply incoming changes: %w", err)
	}

	if outgoing.Timestamp != lastSync {
		return fmt.Errorf("%w: got %v, want %v", ErrStoreTimestampDrift, outgoing.Timestamp, lastSync)
	}

	// The upload is checked against, and produces, the remote timestamp
	// observed at fetch time.
	outgoing.Timestamp = remoteTimestamp
	outgoing.FullyAtomic = fullyAtomic

	log.Info().Int("count", len(outgoing.Changes)).Msg("uploading outgoing changes")

	result, err := tr.Upload(ctx, collection, outgoing)
	if err != nil {
		return fmt.Errorf("upload outgoing changes: %w", err)
	}

	log.Info().
		Int("succeeded", len(result.SucceededIDs)).
		Int("failed", len(result.FailedIDs)).
		Msg("upload finished")

	if err := store.SyncFinished(ctx, result.Timestamp, result.SucceededIDs); err != nil {
		return fmt.Errorf("finish sync: %w", err)
	}

	log.Info().Str("collection", collection).Msg("sync finished")
	return nil
}
