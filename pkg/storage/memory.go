package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// MemoryStore is a map-backed Store for tests and ephemeral sessions.
// Everything is copied through the generic row form on the way in and out,
// so callers never share memory with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	closed    bool
	events    []*EventRecord
	tensors   map[string]*relation.Record
	dialogues map[string]*Dialogue
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tensors:   make(map[string]*relation.Record),
		dialogues: make(map[string]*Dialogue),
	}
}

// StoreEvent appends to the event log.
func (m *MemoryStore) StoreEvent(ev *EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if ev.ID == "" {
		ev.ID = relation.NewWeightID("EV")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	stored := *ev
	m.events = append(m.events, &stored)
	return nil
}

// StoreTensor upserts one tensor record by weight-id.
func (m *MemoryStore) StoreTensor(r *relation.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	stored := *r
	m.tensors[r.ID] = &stored
	return nil
}

// LoadTensor returns the stored record or ErrNotFound.
func (m *MemoryStore) LoadTensor(id string) (*relation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	r, ok := m.tensors[id]
	if !ok {
		return nil, fmt.Errorf("%w: tensor %s", ErrNotFound, id)
	}
	out := *r
	return &out, nil
}

// StoreDialogue upserts one dialogue by ID.
func (m *MemoryStore) StoreDialogue(d *Dialogue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if d.ID == "" {
		d.ID = relation.NewWeightID("DLG")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	stored := *d
	stored.Turns = append([]Turn(nil), d.Turns...)
	m.dialogues[d.ID] = &stored
	return nil
}

// Query scans one table with string filters.
func (m *MemoryStore) Query(table string, filters map[string]string, limit int) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var records []any
	switch table {
	case TableEvents:
		for _, ev := range m.events {
			records = append(records, ev)
		}
	case TableTensors:
		for _, r := range m.tensors {
			records = append(records, r)
		}
	case TableDialogues:
		for _, d := range m.dialogues {
			records = append(records, d)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	var rows []map[string]any
	for _, rec := range records {
		row, err := toRow(rec)
		if err != nil {
			return nil, err
		}
		if !rowMatches(row, filters) {
			continue
		}
		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			break
		}
	}
	return rows, nil
}

// Close marks the store closed; subsequent operations return ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
