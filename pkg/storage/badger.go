package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// Key prefixes. One keyspace, three tables.
const (
	prefixEvent    = "event/"
	prefixTensor   = "tensor/"
	prefixDialogue = "dialogue/"
)

// BadgerStore is the durable Store, backed by BadgerDB with JSON values.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger-backed store at path. Badger's own
// logging is silenced; the database is the record, not the narrator.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
}

// StoreEvent appends to the event log.
func (b *BadgerStore) StoreEvent(ev *EventRecord) error {
	if ev.ID == "" {
		ev.ID = relation.NewWeightID("EV")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	return b.set(prefixEvent+ev.ID, ev)
}

// StoreTensor upserts one tensor record by weight-id.
func (b *BadgerStore) StoreTensor(r *relation.Record) error {
	return b.set(prefixTensor+r.ID, r)
}

// LoadTensor returns the stored record or ErrNotFound.
func (b *BadgerStore) LoadTensor(id string) (*relation.Record, error) {
	var r relation.Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixTensor + id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: tensor %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// StoreDialogue upserts one dialogue by ID.
func (b *BadgerStore) StoreDialogue(d *Dialogue) error {
	if d.ID == "" {
		d.ID = relation.NewWeightID("DLG")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return b.set(prefixDialogue+d.ID, d)
}

// Query scans one table's key prefix with string filters.
func (b *BadgerStore) Query(table string, filters map[string]string, limit int) ([]map[string]any, error) {
	var prefix string
	switch table {
	case TableEvents:
		prefix = prefixEvent
	case TableTensors:
		prefix = prefixTensor
	case TableDialogues:
		prefix = prefixDialogue
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	var rows []map[string]any
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var row map[string]any
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			})
			if err != nil {
				return err
			}
			if !rowMatches(row, filters) {
				continue
			}
			rows = append(rows, row)
			if limit > 0 && len(rows) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close flushes and closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
