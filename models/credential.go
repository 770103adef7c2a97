package models

import (
	"encoding/json"
	"time"
)

// Credential is one saved login: a username/password pair scoped to a
// hostname. It is the domain record of the reference credentials store; the
// sync core itself never inspects these fields.
type Credential struct {
	// ID is the record identifier shared with the server collection.
	ID string `json:"id"`

	// Hostname is the origin the credential belongs to.
	Hostname string `json:"hostname"`

	Username string `json:"username"`
	Password string `json:"password"`

	// TimeCreated and TimePasswordChanged are client-side timestamps kept
	// for reconciliation and display.
	TimeCreated         time.Time `json:"timeCreated"`
	TimePasswordChanged time.Time `json:"timePasswordChanged"`

	// TimesUsed and TimeLastUsed capture usage metadata.
	TimesUsed    int64     `json:"timesUsed"`
	TimeLastUsed time.Time `json:"timeLastUsed"`
}

// ToRecord serializes the credential into a collection record with the given
// server modification time.
func (c Credential) ToRecord(modified ServerTimestamp) (Record, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: c.ID, Payload: payload, Modified: modified}, nil
}

// CredentialFromRecord decodes a collection record's payload into a
// Credential.
func CredentialFromRecord(r Record) (Credential, error) {
	var c Credential
	if err := json.Unmarshal(r.Payload, &c); err != nil {
		return Credential{}, err
	}
	if c.ID == "" {
		c.ID = r.ID
	}
	return c, nil
}
