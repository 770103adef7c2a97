package models

import "encoding/json"

// ServerTimestamp is an opaque, monotonically nondecreasing marker of "last
// known server state" for one collection. The value is the server's modified
// time in fractional seconds, but callers must treat it as opaque: the only
// meaningful operations are equality and ordering against other timestamps
// from the same collection.
type ServerTimestamp float64

// Before reports whether t is strictly older than other.
func (t ServerTimestamp) Before(other ServerTimestamp) bool {
	return float64(t) < float64(other)
}

// Record is one remote record of a collection: an identifier, the encrypted
// payload as the server stores it, and the server-side modification time.
type Record struct {
	ID       string          `json:"id"`
	Payload  json.RawMessage `json:"payload"`
	Modified ServerTimestamp `json:"modified"`
}

// IncomingChangeset carries the remote records changed since the caller's
// watermark, plus the server's collection timestamp at fetch time.
type IncomingChangeset struct {
	// Timestamp is the server's current timestamp for the collection,
	// captured when the changes were fetched.
	Timestamp ServerTimestamp

	// Changes are the remote records modified strictly after the watermark
	// the fetch was issued with, in server order.
	Changes []Record
}

// OutgoingChangeset carries the locally modified records to upload. Timestamp
// initially echoes the watermark the store was handed; the sync engine
// overwrites it with the remote timestamp before upload so the server can
// detect concurrent modification.
type OutgoingChangeset struct {
	Timestamp ServerTimestamp
	Changes   []Record

	// FullyAtomic requests all-or-nothing semantics for the upload: either
	// every record becomes visible or none does.
	FullyAtomic bool
}

// UploadResult reports the protocol-level outcome of one upload: the
// server-assigned post-upload timestamp and the partition of record IDs into
// accepted and rejected sets.
type UploadResult struct {
	Timestamp    ServerTimestamp `json:"modified"`
	SucceededIDs []string        `json:"success"`
	FailedIDs    []string        `json:"failed"`
}
