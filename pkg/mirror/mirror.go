// Package mirror maintains the human-readable reflection of a graph: YAML
// documents on disk, plus a content-hash index that can prove the files have
// not drifted from what was written.
//
// The graph is the truth; the mirror is what a person (or an external tool)
// reads. Integrity checks piggyback on the witness fingerprints so the same
// hash that attests an event also attests its mirrored document.
package mirror

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/A-Universum/SemanticDB/pkg/witness"
)

// FileIndex is one indexed document: path, content fingerprint, size.
type FileIndex struct {
	Path      string    `json:"path" yaml:"path"`
	Hash      string    `json:"hash" yaml:"hash"`
	Size      int64     `json:"size" yaml:"size"`
	IndexedAt time.Time `json:"indexed_at" yaml:"indexed_at"`
}

// Mirror writes and indexes YAML documents under one directory.
type Mirror struct {
	dir     string
	verbose bool
}

// New creates a mirror rooted at dir, creating the directory if needed.
func New(dir string) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}
	return &Mirror{dir: dir}, nil
}

// SetVerbose enables logging of writes and index passes.
func (m *Mirror) SetVerbose(v bool) { m.verbose = v }

// Dir returns the mirror's root directory.
func (m *Mirror) Dir() string { return m.dir }

// WriteDocument marshals the document to YAML under the mirror directory and
// returns the written path. The .yaml extension is appended if missing.
func (m *Mirror) WriteDocument(name string, doc any) (string, error) {
	if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
		name += ".yaml"
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document %s: %w", name, err)
	}
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write document %s: %w", name, err)
	}
	if m.verbose {
		log.Printf("mirror: wrote %s (%d bytes)", path, len(raw))
	}
	return path, nil
}

// ReadDocument unmarshals one YAML document from the mirror.
func (m *Mirror) ReadDocument(name string, out any) error {
	raw, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}

// IndexFile fingerprints one file's contents.
func IndexFile(path string) (*FileIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	hash, err := witness.Fingerprint(string(raw))
	if err != nil {
		return nil, err
	}
	return &FileIndex{
		Path:      path,
		Hash:      hash,
		Size:      int64(len(raw)),
		IndexedAt: time.Now(),
	}, nil
}

// IndexDirectory fingerprints every YAML document under the mirror
// directory, sorted by path.
func (m *Mirror) IndexDirectory() ([]*FileIndex, error) {
	var indexes []*FileIndex
	err := filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		idx, err := IndexFile(path)
		if err != nil {
			return err
		}
		indexes = append(indexes, idx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Path < indexes[j].Path })
	if m.verbose {
		log.Printf("mirror: indexed %d documents under %s", len(indexes), m.dir)
	}
	return indexes, nil
}

// VerifyFileIntegrity reports whether a file still matches its index entry.
func VerifyFileIntegrity(idx *FileIndex) (bool, error) {
	current, err := IndexFile(idx.Path)
	if err != nil {
		return false, err
	}
	return current.Hash == idx.Hash, nil
}
