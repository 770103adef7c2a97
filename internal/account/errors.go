package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/mlevitin/go-account-sync/models"
)

// ErrNotImplemented is returned by operations the account service exposes but
// this client does not support yet.
var ErrNotImplemented = errors.New("not implemented")

// mapRemoteError converts a non-success response into an error. The body is
// first parsed as the structured remote-error envelope; if that parse fails
// the raw transport status is surfaced instead. Errors are never silently
// discarded.
func mapRemoteError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	var remote models.RemoteError
	if err := json.Unmarshal(resp.Body(), &remote); err == nil && remote.Code != 0 {
		return &remote
	}

	return fmt.Errorf("http %d: %s", resp.StatusCode(), http.StatusText(resp.StatusCode()))
}
