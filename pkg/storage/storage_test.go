package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// storeContract exercises the Store interface against any implementation.
func storeContract(t *testing.T, store Store) {
	t.Run("events", func(t *testing.T) {
		ev := &EventRecord{Kind: "ritual", Gesture: "Λ", Source: "a", Target: "b"}
		require.NoError(t, store.StoreEvent(ev))
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.CreatedAt.IsZero())

		require.NoError(t, store.StoreEvent(&EventRecord{Kind: "cycle_export"}))

		rows, err := store.Query(TableEvents, map[string]string{"kind": "ritual"}, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Λ", rows[0]["gesture"])
	})

	t.Run("tensors", func(t *testing.T) {
		tensor := relation.New("a", "b", relation.TypeLambda, "knows")
		require.NoError(t, store.StoreTensor(tensor.Record()))

		loaded, err := store.LoadTensor(tensor.ID)
		require.NoError(t, err)
		assert.Equal(t, "knows", loaded.Meaning)
		assert.InDelta(t, tensor.Certainty, loaded.Certainty, 0.0001)
		assert.Equal(t, tensor.CertaintyByContext, loaded.CertaintyByContext)

		_, err = store.LoadTensor("HW_missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		rec := relation.New("a", "b", relation.TypeLambda, "v1").Record()
		require.NoError(t, store.StoreTensor(rec))

		rec.Meaning = "v2"
		require.NoError(t, store.StoreTensor(rec))

		loaded, err := store.LoadTensor(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "v2", loaded.Meaning)
	})

	t.Run("dialogues", func(t *testing.T) {
		d := &Dialogue{
			Context: "dialogue-1",
			Turns:   []Turn{{Speaker: "alice", Text: "hello"}},
		}
		require.NoError(t, store.StoreDialogue(d))
		assert.NotEmpty(t, d.ID)

		rows, err := store.Query(TableDialogues, map[string]string{"context": "dialogue-1"}, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("query limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.StoreEvent(&EventRecord{Kind: "bulk"}))
		}
		rows, err := store.Query(TableEvents, map[string]string{"kind": "bulk"}, 3)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := store.Query("nope", nil, 0)
		assert.ErrorIs(t, err, ErrUnknownTable)
	})

	t.Run("filter mismatch", func(t *testing.T) {
		rows, err := store.Query(TableEvents, map[string]string{"kind": "never_written"}, 0)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeContract(t, store)
}

func TestMemoryStoreClose(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.StoreEvent(&EventRecord{Kind: "late"}), ErrClosed)
	_, err := store.Query(TableEvents, nil, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	storeContract(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenBadger(dir)
	require.NoError(t, err)
	rec := relation.New("a", "b", relation.TypeLambda, "durable").Record()
	require.NoError(t, store.StoreTensor(rec))
	require.NoError(t, store.Close())

	reopened, err := OpenBadger(dir)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadTensor(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", loaded.Meaning)
}
