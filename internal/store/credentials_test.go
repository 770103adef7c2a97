// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mikhail Levitin

package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/models"
)

func newTestStore(t *testing.T) CredentialStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "credentials.db")
	db, err := NewConnectSQLite(context.Background(), dsn, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())

	return NewCredentialStore(db, "passwords", logger.Nop())
}

// ── CRUD ──

func TestCredentialStore_AddAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{
		Hostname: "https://example.com",
		Username: "bob",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID, "a missing ID must be assigned")
	assert.False(t, added.TimeCreated.IsZero())
	assert.Equal(t, added.TimeCreated, added.TimePasswordChanged)

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.Hostname)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "hunter2", got.Password)
	assert.Equal(t, added.TimeCreated.UnixMilli(), got.TimeCreated.UnixMilli())
}

func TestCredentialStore_Get_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCredentialStore_List_OrderedByHostname(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, hostname := range []string{"https://zzz.example", "https://aaa.example", "https://mmm.example"} {
		_, err := s.Add(ctx, models.Credential{Hostname: hostname, Username: "u", Password: "p"})
		require.NoError(t, err)
	}

	credentials, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, credentials, 3)
	assert.Equal(t, "https://aaa.example", credentials[0].Hostname)
	assert.Equal(t, "https://mmm.example", credentials[1].Hostname)
	assert.Equal(t, "https://zzz.example", credentials[2].Hostname)
}

func TestCredentialStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{Hostname: "https://example.com", Username: "bob", Password: "old"})
	require.NoError(t, err)

	later := added.TimePasswordChanged.Add(time.Hour)
	s.(*credentialStore).now = func() time.Time { return later }

	added.Password = "new"
	added.Username = "robert"
	require.NoError(t, s.Update(ctx, added))

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Password)
	assert.Equal(t, "robert", got.Username)
	assert.Equal(t, later.UnixMilli(), got.TimePasswordChanged.UnixMilli(),
		"password change must advance the change time")
}

func TestCredentialStore_Update_SamePasswordKeepsChangeTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{Hostname: "https://example.com", Username: "bob", Password: "same"})
	require.NoError(t, err)

	s.(*credentialStore).now = func() time.Time { return added.TimePasswordChanged.Add(time.Hour) }

	added.Username = "robert"
	require.NoError(t, s.Update(ctx, added))

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.TimePasswordChanged.UnixMilli(), got.TimePasswordChanged.UnixMilli())
}

func TestCredentialStore_Update_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(context.Background(), models.Credential{ID: "ghost", Password: "p"})
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCredentialStore_Touch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{Hostname: "https://example.com", Username: "bob", Password: "p"})
	require.NoError(t, err)

	require.NoError(t, s.Touch(ctx, added.ID))
	require.NoError(t, s.Touch(ctx, added.ID))

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TimesUsed)
	assert.False(t, got.TimeLastUsed.IsZero())
}

func TestCredentialStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{Hostname: "https://example.com", Username: "bob", Password: "p"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, added.ID))

	_, err = s.Get(ctx, added.ID)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	credentials, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, credentials)

	assert.ErrorIs(t, s.Delete(ctx, added.ID), ErrCredentialNotFound)
}

// ── changeset surface ──

func TestCredentialStore_ApplyIncoming_MergesRemoteRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	remote := models.Credential{
		ID:       "remote-1",
		Hostname: "https://remote.example",
		Username: "alice",
		Password: "secret",
	}
	record, err := remote.ToRecord(models.ServerTimestamp(1111.11))
	require.NoError(t, err)

	outgoing, err := s.ApplyIncoming(ctx, models.IncomingChangeset{
		Timestamp: models.ServerTimestamp(1234.5),
		Changes:   []models.Record{record},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ServerTimestamp(0), outgoing.Timestamp,
		"the outgoing changeset must echo the committed watermark")
	assert.Empty(t, outgoing.Changes, "a merged remote record is not dirty")

	got, err := s.Get(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestCredentialStore_ApplyIncoming_LocalDirtyRecordWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{ID: "shared", Hostname: "https://example.com", Username: "bob", Password: "local"})
	require.NoError(t, err)

	remote := added
	remote.Password = "remote"
	record, err := remote.ToRecord(0)
	require.NoError(t, err)

	outgoing, err := s.ApplyIncoming(ctx, models.IncomingChangeset{Changes: []models.Record{record}})
	require.NoError(t, err)

	got, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Password, "a pending local change must not be overwritten")

	require.Len(t, outgoing.Changes, 1)
	assert.Equal(t, "shared", outgoing.Changes[0].ID)
}

func TestCredentialStore_ApplyIncoming_RemoteTombstoneDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record, err := models.Credential{ID: "doomed", Hostname: "https://example.com", Password: "p"}.ToRecord(0)
	require.NoError(t, err)
	_, err = s.ApplyIncoming(ctx, models.IncomingChangeset{Changes: []models.Record{record}})
	require.NoError(t, err)

	tombstone := models.Record{ID: "doomed", Payload: json.RawMessage(`{"id":"doomed","deleted":true}`)}
	outgoing, err := s.ApplyIncoming(ctx, models.IncomingChangeset{Changes: []models.Record{tombstone}})
	require.NoError(t, err)
	assert.Empty(t, outgoing.Changes)

	_, err = s.Get(ctx, "doomed")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCredentialStore_ApplyIncoming_LocalTombstoneGoesOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{Hostname: "https://example.com", Username: "bob", Password: "p"})
	require.NoError(t, err)

	// Pretend the addition already synced, then delete locally.
	require.NoError(t, s.SyncFinished(ctx, models.ServerTimestamp(100), []string{added.ID}))
	require.NoError(t, s.Delete(ctx, added.ID))

	outgoing, err := s.ApplyIncoming(ctx, models.IncomingChangeset{})
	require.NoError(t, err)
	assert.Equal(t, models.ServerTimestamp(100), outgoing.Timestamp)

	require.Len(t, outgoing.Changes, 1)
	var payload struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(outgoing.Changes[0].Payload, &payload))
	assert.Equal(t, added.ID, payload.ID)
	assert.True(t, payload.Deleted)
}

func TestCredentialStore_SyncFinished_CommitsCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, models.Credential{Hostname: "https://example.com", Username: "bob", Password: "p"})
	require.NoError(t, err)

	doomed, err := s.Add(ctx, models.Credential{Hostname: "https://other.example", Username: "eve", Password: "p"})
	require.NoError(t, err)
	require.NoError(t, s.SyncFinished(ctx, models.ServerTimestamp(50), []string{doomed.ID}))
	require.NoError(t, s.Delete(ctx, doomed.ID))

	require.NoError(t, s.SyncFinished(ctx, models.ServerTimestamp(200.25), []string{added.ID, doomed.ID}))

	watermark, err := s.LastServerTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ServerTimestamp(200.25), watermark)

	// Both the clean record and the purged tombstone leave the dirty set.
	outgoing, err := s.ApplyIncoming(ctx, models.IncomingChangeset{})
	require.NoError(t, err)
	assert.Empty(t, outgoing.Changes)
	assert.Equal(t, models.ServerTimestamp(200.25), outgoing.Timestamp)
}

func TestCredentialStore_SyncFinished_FailedUploadStaysDirty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	accepted, err := s.Add(ctx, models.Credential{Hostname: "https://a.example", Username: "a", Password: "p"})
	require.NoError(t, err)
	rejected, err := s.Add(ctx, models.Credential{Hostname: "https://b.example", Username: "b", Password: "p"})
	require.NoError(t, err)

	require.NoError(t, s.SyncFinished(ctx, models.ServerTimestamp(300), []string{accepted.ID}))

	outgoing, err := s.ApplyIncoming(ctx, models.IncomingChangeset{})
	require.NoError(t, err)
	require.Len(t, outgoing.Changes, 1)
	assert.Equal(t, rejected.ID, outgoing.Changes[0].ID)
}

func TestCredentialStore_LastServerTimestamp_DefaultsToZero(t *testing.T) {
	s := newTestStore(t)

	watermark, err := s.LastServerTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ServerTimestamp(0), watermark)
}

// ── error paths ──

func TestCredentialStore_List_QueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	s := NewCredentialStore(&DB{DB: mockDB, logger: logger.Nop()}, "passwords", logger.Nop())

	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, ErrExecutingQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}
