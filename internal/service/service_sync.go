package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/internal/sync15"
)

type syncService struct {
	transport   sync15.RecordTransport
	fullyAtomic bool
	log         *logger.Logger

	mu     sync.RWMutex
	stores map[string]SyncStore
}

// NewSyncService constructs a [SyncService] over the given transport. When
// fullyAtomic is set, every upload requests all-or-nothing semantics.
func NewSyncService(transport sync15.RecordTransport, fullyAtomic bool, log *logger.Logger) SyncService {
	return &syncService{
		transport:   transport,
		fullyAtomic: fullyAtomic,
		log:         log,
		stores:      make(map[string]SyncStore),
	}
}

func (s *syncService) Register(collection string, store SyncStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stores[collection] = store
}

func (s *syncService) SyncCollection(ctx context.Context, collection string) error {
	s.mu.RLock()
	store, ok := s.stores[collection]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	lastSync, err := store.LastServerTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("get last sync watermark: %w", err)
	}

	return sync15.Synchronize(ctx, s.transport, store, collection, lastSync, s.fullyAtomic, s.log)
}

func (s *syncService) SyncAll(ctx context.Context) error {
	s.mu.RLock()
	collections := make([]string, 0, len(s.stores))
	for collection := range s.stores {
		collections = append(collections, collection)
	}
	s.mu.RUnlock()
	sort.Strings(collections)

	var errs []error
	for _, collection := range collections {
		if err := s.SyncCollection(ctx, collection); err != nil {
			s.log.Err(err).Str("collection", collection).Msg("collection sync failed")
			errs = append(errs, fmt.Errorf("sync %s: %w", collection, err))
		}
	}

	return errors.Join(errs...)
}
