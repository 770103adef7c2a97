package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSyncKey() []byte {
	return append(bytes.Repeat([]byte{0x01}, 32), bytes.Repeat([]byte{0x02}, 32)...)
}

func newTestTransport(t *testing.T, serverURL string) *storageTransport {
	t.Helper()
	tr, err := NewStorageTransport(StorageConfig{BaseURL: serverURL}, testSyncKey(), logger.Nop())
	require.NoError(t, err)
	return tr.(*storageTransport)
}

func TestNewStorageTransport_Validation(t *testing.T) {
	_, err := NewStorageTransport(StorageConfig{}, testSyncKey(), logger.Nop())
	require.Error(t, err)

	_, err = NewStorageTransport(StorageConfig{BaseURL: "http://x"}, make([]byte, 16), logger.Nop())
	require.Error(t, err)
}

func TestFetchSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/storage/passwords", r.URL.Path)
		assert.Equal(t, "1234.56", r.URL.Query().Get("newer"))
		assert.Equal(t, "1", r.URL.Query().Get("full"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Hawk "))

		w.Header().Set("X-Last-Modified", "2000.00")
		_, _ = w.Write([]byte(`[{"id":"r1","payload":{},"modified":1500},{"id":"r2","payload":{},"modified":1999.99}]`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	incoming, err := tr.FetchSince(context.Background(), "passwords", models.ServerTimestamp(1234.56))

	require.NoError(t, err)
	assert.Equal(t, models.ServerTimestamp(2000), incoming.Timestamp)
	require.Len(t, incoming.Changes, 2)
	assert.Equal(t, "r1", incoming.Changes[0].ID)
}

func TestFetchSince_MissingTimestampHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.FetchSince(context.Background(), "passwords", 0)
	require.Error(t, err)
}

func TestFetchSince_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.FetchSince(context.Background(), "passwords", 0)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/passwords", r.URL.Path)
		assert.Equal(t, "1500.00", r.Header.Get("X-If-Unmodified-Since"))

		var records []models.Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&records))
		require.Len(t, records, 2)

		_, _ = w.Write([]byte(`{"modified":1600,"success":["l1","l2"],"failed":[]}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	result, err := tr.Upload(context.Background(), "passwords", models.OutgoingChangeset{
		Timestamp: models.ServerTimestamp(1500),
		Changes:   []models.Record{{ID: "l1", Payload: json.RawMessage(`{}`)}, {ID: "l2", Payload: json.RawMessage(`{}`)}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.ServerTimestamp(1600), result.Timestamp)
	assert.Equal(t, []string{"l1", "l2"}, result.SucceededIDs)
	assert.Empty(t, result.FailedIDs)
}

func TestUpload_PartialSuccessAllowedWhenNotAtomic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"modified":1600,"success":["l1"],"failed":["l2"]}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	result, err := tr.Upload(context.Background(), "passwords", models.OutgoingChangeset{
		Changes: []models.Record{{ID: "l1"}, {ID: "l2"}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, result.SucceededIDs)
	assert.Equal(t, []string{"l2"}, result.FailedIDs)
}

func TestUpload_AtomicPartialFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("atomic"))
		_, _ = w.Write([]byte(`{"modified":1600,"success":["l1"],"failed":["l2"]}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.Upload(context.Background(), "passwords", models.OutgoingChangeset{
		Changes:     []models.Record{{ID: "l1"}, {ID: "l2"}},
		FullyAtomic: true,
	})

	require.ErrorIs(t, err, ErrBatchInterrupted)
}

func TestUpload_ConcurrentModification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.Upload(context.Background(), "passwords", models.OutgoingChangeset{})
	require.ErrorIs(t, err, ErrConcurrentModification)
}
