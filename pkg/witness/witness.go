// Package witness produces tamper-evident attestations for graph events.
//
// A witness is a SHA3-256 fingerprint of an event's canonical JSON form.
// Store the witness next to the event; anyone holding both can later prove
// the event was not rewritten. encoding/json sorts map keys, so the same
// payload always yields the same fingerprint.
package witness

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

// Record is one attestation.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Hash      string    `json:"hash" yaml:"hash"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Fingerprint returns the hex SHA3-256 of the payload's canonical JSON form.
func Fingerprint(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Create attests one payload.
func Create(kind string, payload any) (*Record, error) {
	hash, err := Fingerprint(payload)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:        ArtifactID(hash),
		Kind:      kind,
		Hash:      hash,
		CreatedAt: time.Now(),
	}, nil
}

// Verify reports whether the payload still matches the attestation.
func Verify(rec *Record, payload any) (bool, error) {
	hash, err := Fingerprint(payload)
	if err != nil {
		return false, err
	}
	return hash == rec.Hash, nil
}

// ArtifactID derives the short witness identifier from a fingerprint.
func ArtifactID(hash string) string {
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return "WTN_" + hash
}
