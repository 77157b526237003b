// Package storage persists the event log, tensor records and dialogues that
// accumulate around a living graph.
//
// The graph itself lives in memory; storage is the collaborator that
// remembers what happened to it. Two engines implement the same interface: a
// map-backed store for tests and ephemeral sessions, and a Badger-backed
// store for durable ones.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// Errors returned by storage engines.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownTable is returned by Query for an unrecognized table name.
	ErrUnknownTable = errors.New("unknown table")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Table names accepted by Query.
const (
	TableEvents    = "events"
	TableTensors   = "tensors"
	TableDialogues = "dialogues"
)

// EventRecord is one entry in the append-only event log: a ritual performed,
// a dream accepted, a document exported. The coherence fields bracket the
// event when the writer measured them; zero means unmeasured.
type EventRecord struct {
	ID              string    `json:"id" yaml:"id"`
	Kind            string    `json:"kind" yaml:"kind"`
	Gesture         string    `json:"gesture,omitempty" yaml:"gesture,omitempty"`
	Operator        string    `json:"operator,omitempty" yaml:"operator,omitempty"`
	Source          string    `json:"source,omitempty" yaml:"source,omitempty"`
	Target          string    `json:"target,omitempty" yaml:"target,omitempty"`
	Meaning         string    `json:"meaning,omitempty" yaml:"meaning,omitempty"`
	Context         string    `json:"context,omitempty" yaml:"context,omitempty"`
	Result          string    `json:"result,omitempty" yaml:"result,omitempty"`
	Affected        []string  `json:"affected,omitempty" yaml:"affected,omitempty"`
	BlindSpots      []string  `json:"blind_spots,omitempty" yaml:"blind_spots,omitempty"`
	CoherenceBefore float64   `json:"coherence_before,omitempty" yaml:"coherence_before,omitempty"`
	CoherenceAfter  float64   `json:"coherence_after,omitempty" yaml:"coherence_after,omitempty"`
	Tension         float64   `json:"tension,omitempty" yaml:"tension,omitempty"`
	Significance    float64   `json:"significance,omitempty" yaml:"significance,omitempty"`
	WitnessID       string    `json:"witness_id,omitempty" yaml:"witness_id,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// Turn is one utterance inside a dialogue.
type Turn struct {
	Speaker string    `json:"speaker" yaml:"speaker"`
	Text    string    `json:"text" yaml:"text"`
	At      time.Time `json:"at" yaml:"at"`
}

// Dialogue is a recorded conversation bound to a graph context.
type Dialogue struct {
	ID        string    `json:"id" yaml:"id"`
	Context   string    `json:"context" yaml:"context"`
	Turns     []Turn    `json:"turns" yaml:"turns"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Store is the persistence contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// StoreEvent appends to the event log. A missing ID is generated.
	StoreEvent(ev *EventRecord) error

	// StoreTensor upserts one tensor record by weight-id.
	StoreTensor(r *relation.Record) error

	// LoadTensor returns the stored record or ErrNotFound.
	LoadTensor(id string) (*relation.Record, error)

	// StoreDialogue upserts one dialogue by ID. A missing ID is generated.
	StoreDialogue(d *Dialogue) error

	// Query scans one table, keeping rows whose fields match every filter
	// (string comparison on the JSON representation). limit <= 0 means no
	// limit. Row order is unspecified.
	Query(table string, filters map[string]string, limit int) ([]map[string]any, error)

	// Close releases the engine's resources.
	Close() error
}

// toRow flattens a record to its generic JSON form for Query results.
func toRow(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// rowMatches applies filters against a row's JSON field values.
func rowMatches(row map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := row[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}
