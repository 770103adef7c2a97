// Package adapter provides the transport implementation the sync engine
// rides on: an HTTP client for the remote collection storage service, signed
// with HAWK credentials derived from the account's sync key.
//
// Sentinel errors are mapped from HTTP status codes by mapHTTPError so that
// callers can use errors.Is for transport-agnostic handling.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mlevitin/go-account-sync/internal/hawk"
	"github.com/mlevitin/go-account-sync/internal/logger"
	"github.com/mlevitin/go-account-sync/internal/sync15"
	"github.com/mlevitin/go-account-sync/models"
)

var (
	// ErrUnauthorized reports rejected sync credentials; the caller must
	// re-authenticate and rebuild the transport.
	ErrUnauthorized = errors.New("storage credentials rejected")

	// ErrConcurrentModification reports that the collection changed on the
	// server after the timestamp the upload was checked against.
	ErrConcurrentModification = errors.New("collection modified concurrently")

	// ErrBatchInterrupted reports that a fully-atomic upload was partially
	// rejected, which the atomic contract forbids.
	ErrBatchInterrupted = errors.New("atomic upload partially rejected")
)

// StorageConfig holds the settings of a storage transport.
type StorageConfig struct {
	// BaseURL is the storage service root, including the user path prefix.
	BaseURL string

	// Timeout is the per-request transport timeout.
	Timeout time.Duration
}

type storageTransport struct {
	client *resty.Client
	signer *hawk.Signer
	creds  hawk.Credentials
	log    *logger.Logger
}

// NewStorageTransport builds a sync15.RecordTransport over HTTP. syncKey is
// the 64-byte key derived from the account root key; it becomes the HAWK
// token ID and MAC key for every storage request.
func NewStorageTransport(cfg StorageConfig, syncKey []byte, log *logger.Logger) (sync15.RecordTransport, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("storage base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	creds, err := hawk.CredentialsFromKey(syncKey)
	if err != nil {
		return nil, err
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &storageTransport{client: cli, signer: hawk.NewSigner(), creds: creds, log: log}, nil
}

func (s *storageTransport) FetchSince(ctx context.Context, collection string, since models.ServerTimestamp) (models.IncomingChangeset, error) {
	path := "/storage/" + collection
	query := fmt.Sprintf("newer=%s&full=1", formatTimestamp(since))

	resp, err := s.signedRequest(ctx, http.MethodGet, path+"?"+query, nil)
	if err != nil {
		return models.IncomingChangeset{}, fmt.Errorf("fetch %s request: %w", collection, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.IncomingChangeset{}, err
	}

	var records []models.Record
	if err = json.Unmarshal(resp.Body(), &records); err != nil {
		return models.IncomingChangeset{}, fmt.Errorf("decode %s records: %w", collection, err)
	}

	timestamp, err := parseTimestamp(resp.Header().Get("X-Last-Modified"))
	if err != nil {
		return models.IncomingChangeset{}, fmt.Errorf("parse collection timestamp: %w", err)
	}

	return models.IncomingChangeset{Timestamp: timestamp, Changes: records}, nil
}

func (s *storageTransport) Upload(ctx context.Context, collection string, outgoing models.OutgoingChangeset) (models.UploadResult, error) {
	payload, err := json.Marshal(outgoing.Changes)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("encode %s batch: %w", collection, err)
	}

	path := "/storage/" + collection
	if outgoing.FullyAtomic {
		path += "?atomic=1"
	}

	resp, err := s.signedRequest(ctx, http.MethodPost, path, payload, func(req *resty.Request) {
		// The server rejects the batch when the collection moved past the
		// timestamp the engine retargeted the changeset at.
		req.SetHeader("X-If-Unmodified-Since", formatTimestamp(outgoing.Timestamp))
	})
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("upload %s request: %w", collection, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.UploadResult{}, err
	}

	var result models.UploadResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.UploadResult{}, fmt.Errorf("decode %s upload result: %w", collection, err)
	}

	if outgoing.FullyAtomic && len(result.FailedIDs) > 0 {
		return models.UploadResult{}, fmt.Errorf("%w: %d records failed", ErrBatchInterrupted, len(result.FailedIDs))
	}

	return result, nil
}

func (s *storageTransport) signedRequest(ctx context.Context, method, pathAndQuery string, body []byte, opts ...func(*resty.Request)) (*resty.Response, error) {
	endpoint := s.client.BaseURL + pathAndQuery

	signReq, err := http.NewRequest(method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if body != nil {
		signReq.Header.Set("Content-Type", "application/json")
	}
	if err = s.signer.Sign(signReq, s.creds, body); err != nil {
		return nil, err
	}

	req := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", signReq.Header.Get("Authorization"))
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	return req.Execute(method, endpoint)
}

func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusPreconditionFailed:
		return ErrConcurrentModification
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}
	return fmt.Errorf("http %d: %s", code, body)
}

func formatTimestamp(ts models.ServerTimestamp) string {
	return strconv.FormatFloat(float64(ts), 'f', 2, 64)
}

func parseTimestamp(value string) (models.ServerTimestamp, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	return models.ServerTimestamp(parsed), nil
}
