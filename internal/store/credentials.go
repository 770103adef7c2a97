// Package store implements the local credentials database: a SQLite-backed
// repository of saved logins that doubles as the sync engine's record store.
// Local mutations mark rows dirty; a sync cycle drains the dirty set and
// advances the committed server watermark in the same transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/internal/sync15"
	"github.com/mlevitin/go-account-sync/models"
)

// CredentialStore is the local repository of saved logins. It exposes the
// CRUD surface used by the application and the changeset surface used by the
// sync engine.
type CredentialStore interface {
	sync15.Store

	Add(ctx context.Context, credential models.Credential) (models.Credential, error)
	Get(ctx context.Context, id string) (models.Credential, error)
	List(ctx context.Context) ([]models.Credential, error)
	Update(ctx context.Context, credential models.Credential) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	// LastServerTimestamp returns the committed watermark for the store's
	// collection, zero if no sync cycle has finished yet.
	LastServerTimestamp(ctx context.Context) (models.ServerTimestamp, error)
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var credentialColumns = []string{
	"id",
	"hostname",
	"username",
	"password",
	"time_created",
	"time_password_changed",
	"times_used",
	"time_last_used",
}

type credentialStore struct {
	*DB
	collection string
	now        func() time.Time
	logger     *logger.Logger
}

// NewCredentialStore constructs a [CredentialStore] over the given database
// connection, bound to one server collection name.
func NewCredentialStore(db *DB, collection string, log *logger.Logger) CredentialStore {
	return &credentialStore{
		DB:         db,
		collection: collection,
		now:        time.Now,
		logger:     log,
	}
}

// Add persists a new credential and marks it for upload. A missing ID is
// assigned; creation and password-change times are set to now when zero.
func (s *credentialStore) Add(ctx context.Context, credential models.Credential) (models.Credential, error) {
	log := logger.FromContext(ctx)

	if credential.ID == "" {
		credential.ID = uuid.NewString()
	}
	if credential.TimeCreated.IsZero() {
		credential.TimeCreated = s.now()
	}
	if credential.TimePasswordChanged.IsZero() {
		credential.TimePasswordChanged = credential.TimeCreated
	}

	query, args, err := qb.Insert("credentials").
		Columns(append(credentialColumns, "deleted", "modified_local")...).
		Values(
			credential.ID,
			credential.Hostname,
			credential.Username,
			credential.Password,
			toMillis(credential.TimeCreated),
			toMillis(credential.TimePasswordChanged),
			credential.TimesUsed,
			toMillis(credential.TimeLastUsed),
			0,
			1,
		).
		ToSql()
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := s.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "credentialStore.Add").
			Str("credential_id", credential.ID).
			Msg("failed to insert credential")
		return models.Credential{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return models.Credential{}, ErrCredentialNotSaved
	}

	return credential, nil
}

// Get returns the credential with the given ID. Records pending deletion are
// not visible.
func (s *credentialStore) Get(ctx context.Context, id string) (models.Credential, error) {
	query, args, err := qb.Select(credentialColumns...).
		From("credentials").
		Where(sq.Eq{"id": id, "deleted": 0}).
		ToSql()
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	credential, err := scanCredential(s.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return models.Credential{}, err
	}

	return credential, nil
}

// List returns all credentials ordered by hostname, excluding records pending
// deletion.
func (s *credentialStore) List(ctx context.Context) ([]models.Credential, error) {
	log := logger.FromContext(ctx)

	query, args, err := qb.Select(credentialColumns...).
		From("credentials").
		Where(sq.Eq{"deleted": 0}).
		OrderBy("hostname", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "credentialStore.List").
			Msg("failed to execute query for listing credentials")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	credentials := make([]models.Credential, 0, 50)
	for rows.Next() {
		credential, scanErr := scanCredential(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		credentials = append(credentials, credential)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return credentials, nil
}

// Update replaces the stored hostname, username, and password of an existing
// credential and marks it for upload. The password-change time advances only
// when the password actually differs.
func (s *credentialStore) Update(ctx context.Context, credential models.Credential) error {
	log := logger.FromContext(ctx)

	existing, err := s.Get(ctx, credential.ID)
	if err != nil {
		return err
	}

	passwordChanged := toMillis(existing.TimePasswordChanged)
	if existing.Password != credential.Password {
		passwordChanged = toMillis(s.now())
	}

	query, args, err := qb.Update("credentials").
		Set("hostname", credential.Hostname).
		Set("username", credential.Username).
		Set("password", credential.Password).
		Set("time_password_changed", passwordChanged).
		Set("modified_local", 1).
		Where(sq.Eq{"id": credential.ID, "deleted": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := s.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "credentialStore.Update").
			Str("credential_id", credential.ID).
			Msg("failed to update credential")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

// Touch bumps the usage counter and last-used time of a credential, marking
// it for upload.
func (s *credentialStore) Touch(ctx context.Context, id string) error {
	query, args, err := qb.Update("credentials").
		Set("times_used", sq.Expr("times_used + 1")).
		Set("time_last_used", toMillis(s.now())).
		Set("modified_local", 1).
		Where(sq.Eq{"id": id, "deleted": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := s.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

// Delete marks a credential as deleted. The row survives as a tombstone until
// the deletion has been uploaded, then is purged by SyncFinished.
func (s *credentialStore) Delete(ctx context.Context, id string) error {
	query, args, err := qb.Update("credentials").
		Set("deleted", 1).
		Set("modified_local", 1).
		Where(sq.Eq{"id": id, "deleted": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := s.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrCredentialNotFound
	}

	return nil
}

// LastServerTimestamp returns the committed watermark for the store's
// collection.
func (s *credentialStore) LastServerTimestamp(ctx context.Context) (models.ServerTimestamp, error) {
	query, args, err := qb.Select("last_server_timestamp").
		From("sync_meta").
		Where(sq.Eq{"collection": s.collection}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var watermark float64
	err = s.QueryRowContext(ctx, query, args...).Scan(&watermark)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return models.ServerTimestamp(watermark), nil
}

// ApplyIncoming merges remote changes into the local table and returns the
// dirty records to upload. A locally modified record always wins over the
// remote copy; it stays dirty and rides out with the returned changeset. The
// changeset echoes the committed watermark unchanged.
func (s *credentialStore) ApplyIncoming(ctx context.Context, incoming models.IncomingChangeset) (models.OutgoingChangeset, error) {
	log := logger.FromContext(ctx)

	watermark, err := s.LastServerTimestamp(ctx)
	if err != nil {
		return models.OutgoingChangeset{}, err
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return models.OutgoingChangeset{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, record := range incoming.Changes {
		if err = s.mergeRemoteRecord(ctx, tx, record); err != nil {
			log.Err(err).
				Str("func", "credentialStore.ApplyIncoming").
				Str("record_id", record.ID).
				Msg("failed to merge remote record")
			return models.OutgoingChangeset{}, err
		}
	}

	changes, err := s.collectDirtyRecords(ctx, tx)
	if err != nil {
		return models.OutgoingChangeset{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.OutgoingChangeset{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return models.OutgoingChangeset{Timestamp: watermark, Changes: changes}, nil
}

// SyncFinished commits one sync cycle: uploaded tombstones are purged,
// uploaded records are marked clean, and the collection watermark advances.
// All of it happens in one transaction so a crash leaves the store either
// before or after the cycle, never in between.
func (s *credentialStore) SyncFinished(ctx context.Context, newTimestamp models.ServerTimestamp, succeededIDs []string) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if len(succeededIDs) > 0 {
		query, args, buildErr := qb.Delete("credentials").
			Where(sq.Eq{"deleted": 1, "id": succeededIDs}).
			ToSql()
		if buildErr != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		query, args, buildErr = qb.Update("credentials").
			Set("modified_local", 0).
			Where(sq.Eq{"id": succeededIDs}).
			ToSql()
		if buildErr != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	query, args, err := qb.Insert("sync_meta").
		Columns("collection", "last_server_timestamp").
		Values(s.collection, float64(newTimestamp)).
		Suffix("ON CONFLICT(collection) DO UPDATE SET last_server_timestamp = excluded.last_server_timestamp").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}

	return nil
}

func (s *credentialStore) mergeRemoteRecord(ctx context.Context, tx *sql.Tx, record models.Record) error {
	var probe struct {
		ID      string `json:"id"`
		Deleted bool   `json:"deleted"`
	}
	if err := json.Unmarshal(record.Payload, &probe); err != nil {
		return fmt.Errorf("decode remote record %s: %w", record.ID, err)
	}

	id := record.ID
	if id == "" {
		id = probe.ID
	}

	var dirty int
	err := tx.QueryRowContext(ctx, "SELECT modified_local FROM credentials WHERE id = ?", id).Scan(&dirty)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if dirty == 1 {
		// Local change pending upload wins over the remote copy.
		return nil
	}

	if probe.Deleted {
		if _, err = tx.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	}

	credential, err := models.CredentialFromRecord(record)
	if err != nil {
		return fmt.Errorf("decode remote record %s: %w", record.ID, err)
	}

	query, args, err := qb.Insert("credentials").
		Columns(append(credentialColumns, "deleted", "modified_local")...).
		Values(
			id,
			credential.Hostname,
			credential.Username,
			credential.Password,
			toMillis(credential.TimeCreated),
			toMillis(credential.TimePasswordChanged),
			credential.TimesUsed,
			toMillis(credential.TimeLastUsed),
			0,
			0,
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			hostname = excluded.hostname,
			username = excluded.username,
			password = excluded.password,
			time_created = excluded.time_created,
			time_password_changed = excluded.time_password_changed,
			times_used = excluded.times_used,
			time_last_used = excluded.time_last_used,
			deleted = 0,
			modified_local = 0`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (s *credentialStore) collectDirtyRecords(ctx context.Context, tx *sql.Tx) ([]models.Record, error) {
	query, args, err := qb.Select(append(credentialColumns, "deleted")...).
		From("credentials").
		Where(sq.Eq{"modified_local": 1}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var (
			credential                         models.Credential
			created, passwordChanged, lastUsed int64
			deleted                            int
		)
		scanErr := rows.Scan(
			&credential.ID,
			&credential.Hostname,
			&credential.Username,
			&credential.Password,
			&created,
			&passwordChanged,
			&credential.TimesUsed,
			&lastUsed,
			&deleted,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		if deleted == 1 {
			payload, marshalErr := json.Marshal(map[string]any{"id": credential.ID, "deleted": true})
			if marshalErr != nil {
				return nil, marshalErr
			}
			records = append(records, models.Record{ID: credential.ID, Payload: payload})
			continue
		}

		credential.TimeCreated = fromMillis(created)
		credential.TimePasswordChanged = fromMillis(passwordChanged)
		credential.TimeLastUsed = fromMillis(lastUsed)

		record, recErr := credential.ToRecord(0)
		if recErr != nil {
			return nil, recErr
		}
		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (models.Credential, error) {
	var (
		credential                         models.Credential
		created, passwordChanged, lastUsed int64
	)
	err := row.Scan(
		&credential.ID,
		&credential.Hostname,
		&credential.Username,
		&credential.Password,
		&created,
		&passwordChanged,
		&credential.TimesUsed,
		&lastUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, err
	}
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	credential.TimeCreated = fromMillis(created)
	credential.TimePasswordChanged = fromMillis(passwordChanged)
	credential.TimeLastUsed = fromMillis(lastUsed)

	return credential, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
