package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// DocumentMeta identifies an exported graph snapshot.
type DocumentMeta struct {
	Graph       string    `json:"graph" yaml:"graph"`
	Version     string    `json:"version" yaml:"version"`
	ExportedAt  time.Time `json:"exported_at" yaml:"exported_at"`
	NodeCount   int       `json:"node_count" yaml:"node_count"`
	TensorCount int       `json:"tensor_count" yaml:"tensor_count"`
}

// Document is the full serialized graph: every node, every tensor record,
// the per-context statistics and the conflict zone set. Deterministic: nodes
// sort by name, tensors by weight-id, conflict zones lexicographically.
type Document struct {
	Meta          DocumentMeta            `json:"meta" yaml:"meta"`
	Nodes         []Node                  `json:"nodes" yaml:"nodes"`
	Tensors       []*relation.Record      `json:"tensors" yaml:"tensors"`
	Contexts      map[string]ContextStats `json:"contexts" yaml:"contexts"`
	ConflictZones []string                `json:"conflict_zones" yaml:"conflict_zones"`
}

// Export produces a deterministic snapshot of the graph.
func (s *Store) Export() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := &Document{
		Meta: DocumentMeta{
			Graph:       s.name,
			Version:     Version,
			ExportedAt:  time.Now(),
			NodeCount:   len(s.nodes),
			TensorCount: len(s.registry),
		},
		Nodes:         make([]Node, 0, len(s.nodes)),
		Tensors:       make([]*relation.Record, 0, len(s.registry)),
		Contexts:      make(map[string]ContextStats, len(s.contexts)),
		ConflictZones: sortedKeys(s.conflictZones),
	}
	for _, node := range s.nodes {
		doc.Nodes = append(doc.Nodes, *node)
	}
	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].Name < doc.Nodes[j].Name })
	for _, t := range s.registry {
		doc.Tensors = append(doc.Tensors, t.Record())
	}
	sort.Slice(doc.Tensors, func(i, j int) bool { return doc.Tensors[i].ID < doc.Tensors[j].ID })
	for id, cs := range s.contexts {
		doc.Contexts[id] = *cs
	}
	return doc
}

// Import replaces the graph contents with a previously exported document.
// Nodes are restored verbatim; tensors are replayed through the normal insert
// path under the restored context, so conflict zones and the dreaming queue
// rebuild themselves from the replayed data rather than trusting the
// document's derived state. Merge rules apply to restored tensors exactly as
// they do to live inserts.
func (s *Store) Import(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrValidation)
	}

	s.mu.Lock()
	s.nodes = make(map[string]*Node, len(doc.Nodes))
	s.edges = make(map[pairKey][]*relation.Tensor)
	s.registry = make(map[string]*relation.Tensor, len(doc.Tensors))
	s.out = make(map[string]map[string]struct{})
	s.in = make(map[string]map[string]struct{})
	s.conflictZones = make(map[string]struct{})
	s.contexts = make(map[string]*ContextStats)
	s.dreamQueue = &pairQueue{}
	s.stats = Stats{}

	for i := range doc.Nodes {
		node := doc.Nodes[i]
		s.nodes[node.Name] = &node
		s.out[node.Name] = make(map[string]struct{})
		s.in[node.Name] = make(map[string]struct{})
	}
	s.mu.Unlock()

	for _, r := range doc.Tensors {
		if _, err := s.AddTensor(relation.FromRecord(r), ContextRestored, true); err != nil {
			return fmt.Errorf("import tensor %s: %w", r.ID, err)
		}
	}
	return nil
}
