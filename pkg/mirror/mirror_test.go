package mirror

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string  `yaml:"name"`
	Score float64 `yaml:"score"`
	Tags  []string `yaml:"tags"`
}

func TestWriteAndReadDocument(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	doc := testDoc{Name: "cycle_0001", Score: 0.82, Tags: []string{"genesis"}}
	path, err := m.WriteDocument("cycle_0001", doc)
	require.NoError(t, err)
	assert.Equal(t, ".yaml", filepath.Ext(path))

	var loaded testDoc
	require.NoError(t, m.ReadDocument("cycle_0001.yaml", &loaded))
	assert.Equal(t, doc, loaded)
}

func TestWriteDocumentKeepsExplicitExtension(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := m.WriteDocument("snapshot.yml", testDoc{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "snapshot.yml", filepath.Base(path))
}

func TestIndexDirectory(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = m.WriteDocument("beta", testDoc{Name: "b"})
	require.NoError(t, err)
	_, err = m.WriteDocument("alpha", testDoc{Name: "a"})
	require.NoError(t, err)

	// Non-YAML files are not part of the mirror.
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("hi"), 0o644))

	indexes, err := m.IndexDirectory()
	require.NoError(t, err)
	require.Len(t, indexes, 2)

	// Sorted by path.
	assert.Equal(t, "alpha.yaml", filepath.Base(indexes[0].Path))
	assert.Equal(t, "beta.yaml", filepath.Base(indexes[1].Path))
	for _, idx := range indexes {
		assert.Len(t, idx.Hash, 64)
		assert.Greater(t, idx.Size, int64(0))
	}
}

func TestVerifyFileIntegrity(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := m.WriteDocument("doc", testDoc{Name: "original"})
	require.NoError(t, err)

	idx, err := IndexFile(path)
	require.NoError(t, err)

	ok, err := VerifyFileIntegrity(idx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Tamper with the file behind the index's back.
	require.NoError(t, os.WriteFile(path, []byte("name: forged\n"), 0o644))

	ok, err = VerifyFileIntegrity(idx)
	require.NoError(t, err)
	assert.False(t, ok)
}
