// Package graph implements the tensor semantic graph, the long-lived owner of
// all nodes and relation tensors in SemanticDB.
//
// The graph is a directed multi-graph: every (source, target) pair may carry
// several tensors, one active slot per (source, target, type, meaning). New
// tensors that exactly repeat an existing (type, meaning) slot merge into it;
// tensors of the same type with a different meaning at high certainty are
// flagged as a conflict zone and coexist with the original.
//
// Ownership: after AddTensor the store is the sole owner of the tensor.
// Callers keep the returned weight-id and mutate through store operations.
//
// Concurrency: the store is guarded by a RWMutex like any storage engine in
// this codebase. Mutations take the write lock; diagnostics, queries and link
// prediction go through the read API and may run concurrently with each
// other.
//
// Example Usage:
//
//	g := graph.NewStore("living-graph")
//
//	t := relation.New("question", "answer", relation.TypeLambda, "leads to")
//	id, _ := g.AddTensor(t, "dialogue-1", true)
//
//	if found := g.GetTensor("question", "answer", relation.TypeLambda); found != nil {
//		fmt.Println(found.ID == id) // true
//	}
package graph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// Errors returned by store operations.
var (
	// ErrValidation is returned for malformed node or tensor input.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound is returned when a node or tensor does not exist.
	ErrNotFound = errors.New("not found")
)

// Version identifies the graph data model generation in exports.
const Version = "2.0-genesis"

// ContextRestored marks tensors replayed from an imported document.
const ContextRestored = "restored_from_document"

// ContextDreamAccepted marks tensors integrated from accepted suggestions.
const ContextDreamAccepted = "dream_accepted"

// Node is an entity in the graph. Entities exist through their relations;
// the node record carries identity and lifecycle metadata only.
type Node struct {
	Name            string    `json:"name" yaml:"name"`
	WeightID        string    `json:"weight_id" yaml:"weight_id"`
	Type            string    `json:"type" yaml:"type"`
	Creator         string    `json:"creator" yaml:"creator"`
	Domain          string    `json:"domain" yaml:"domain"`
	Meaning         string    `json:"meaning" yaml:"meaning"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	Lifespan        time.Time `json:"lifespan" yaml:"lifespan"`
	ActivationCount int       `json:"activation_count" yaml:"activation_count"`
	Status          relation.Status `json:"status" yaml:"status"`
}

// NodeAttrs are the caller-supplied attributes for AddNode. Zero values get
// the required defaults.
type NodeAttrs struct {
	WeightID string
	Type     string
	Creator  string
	Domain   string
	Meaning  string
}

// ContextStats aggregates per-context activity.
type ContextStats struct {
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	TensorCount  int       `json:"tensor_count" yaml:"tensor_count"`
	AvgCertainty float64   `json:"avg_certainty" yaml:"avg_certainty"`
}

// Stats are graph-level counters.
type Stats struct {
	TotalActivations int
	LastDreaming     time.Time
}

// pairKey addresses the multi-edge slot list for one ordered node pair.
type pairKey struct {
	Source string
	Target string
}

// Store is the tensor semantic graph: node table, multi-edge adjacency,
// flat tensor registry, conflict zones, per-context statistics and the
// dreaming priority queue.
type Store struct {
	mu        sync.RWMutex
	name      string
	createdAt time.Time

	nodes    map[string]*Node
	edges    map[pairKey][]*relation.Tensor
	registry map[string]*relation.Tensor

	// Neighbor indexes over distinct endpoints (multi-edges share one entry).
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}

	conflictZones map[string]struct{}
	contexts      map[string]*ContextStats

	dreamQueue *pairQueue
	stats      Stats
}

// NewStore creates an empty graph store.
func NewStore(name string) *Store {
	return &Store{
		name:          name,
		createdAt:     time.Now(),
		nodes:         make(map[string]*Node),
		edges:         make(map[pairKey][]*relation.Tensor),
		registry:      make(map[string]*relation.Tensor),
		out:           make(map[string]map[string]struct{}),
		in:            make(map[string]map[string]struct{}),
		conflictZones: make(map[string]struct{}),
		contexts:      make(map[string]*ContextStats),
		dreamQueue:    &pairQueue{},
	}
}

// AddNode inserts or updates an entity. A node cannot be anonymous: a
// missing weight-id is generated, and required defaults (type, creator,
// domain, one-year lifespan, active status) are filled in. Idempotent on
// name, but repeated calls overwrite the attributes. Returns the weight-id.
func (s *Store) AddNode(name string, attrs NodeAttrs) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: node name must not be empty", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNodeLocked(name, attrs), nil
}

func (s *Store) addNodeLocked(name string, attrs NodeAttrs) string {
	weightID := attrs.WeightID
	if weightID == "" {
		weightID = relation.NewWeightID("N_" + name)
	}
	now := time.Now()
	node := &Node{
		Name:      name,
		WeightID:  weightID,
		Type:      attrs.Type,
		Creator:   attrs.Creator,
		Domain:    attrs.Domain,
		Meaning:   attrs.Meaning,
		CreatedAt: now,
		Lifespan:  now.Add(365 * 24 * time.Hour),
		Status:    relation.StatusActive,
	}
	if node.Type == "" {
		node.Type = "entity"
	}
	if node.Creator == "" {
		node.Creator = "system"
	}
	if node.Domain == "" {
		node.Domain = "general"
	}
	s.nodes[name] = node
	if s.out[name] == nil {
		s.out[name] = make(map[string]struct{})
	}
	if s.in[name] == nil {
		s.in[name] = make(map[string]struct{})
	}
	return weightID
}

// AddTensor inserts a tensor into the graph under the given context.
//
// The store guarantees both endpoints exist, auto-creating bare entity nodes.
// Conflict detection runs first, across all existing tensors on the same
// (source, target): a same-type tensor with a different meaning, when the
// incoming certainty exceeds 0.5, puts both weight-ids into the conflict
// zone set without rejecting the insertion. Merge is then attempted only
// against an exact (type, meaning) match: if autoMerge is set and a match
// exists, the incoming certainty folds into the existing tensor, the longer
// meaning string wins, and the existing weight-id is returned. Otherwise the
// tensor is inserted as a new slot, registered by id, and its node pair is
// pushed onto the dreaming queue keyed by certainty × (1 − tension).
func (s *Store) AddTensor(t *relation.Tensor, contextID string, autoMerge bool) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: nil tensor", ErrValidation)
	}
	if t.Source == "" || t.Target == "" {
		return "", fmt.Errorf("%w: tensor requires source and target", ErrValidation)
	}
	if contextID == "" {
		contextID = "global"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[t.Source]; !ok {
		s.addNodeLocked(t.Source, NodeAttrs{})
	}
	if _, ok := s.nodes[t.Target]; !ok {
		s.addNodeLocked(t.Target, NodeAttrs{})
	}

	key := pairKey{t.Source, t.Target}

	// Conflict detection over every existing same-type slot, before any
	// merge attempt. Deterministic regardless of insertion order.
	if t.Certainty > 0.5 {
		for _, existing := range s.edges[key] {
			if existing.Type == t.Type && !SameMeaning(existing.Meaning, t.Meaning) {
				s.conflictZones[existing.ID] = struct{}{}
				s.conflictZones[t.ID] = struct{}{}
			}
		}
	}

	if _, ok := s.contexts[contextID]; !ok {
		s.contexts[contextID] = &ContextStats{CreatedAt: time.Now()}
	}

	t.UpdateFromContext(contextID, t.Certainty, 0)

	if autoMerge {
		for _, existing := range s.edges[key] {
			if existing.Type == t.Type && SameMeaning(existing.Meaning, t.Meaning) {
				existing.UpdateFromContext(contextID, t.Certainty, 0)
				if len(t.Meaning) > len(existing.Meaning) {
					existing.Meaning = t.Meaning
				}
				s.stats.TotalActivations++
				return existing.ID, nil
			}
		}
	}

	s.edges[key] = append(s.edges[key], t)
	s.registry[t.ID] = t
	s.out[t.Source][t.Target] = struct{}{}
	s.in[t.Target][t.Source] = struct{}{}
	s.dreamQueue.push(t.Priority(), t.Source, t.Target)

	s.stats.TotalActivations++
	ctx := s.contexts[contextID]
	ctx.TensorCount++
	ctx.AvgCertainty += (t.Certainty - ctx.AvgCertainty) / float64(ctx.TensorCount)

	return t.ID, nil
}

// SameMeaning compares meanings up to case and surrounding whitespace, so a
// restated fact folds into the original instead of spawning a duplicate. It
// is the single notion of meaning equality across the store and the layers
// reading from it.
func SameMeaning(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// GetTensor returns the first tensor of the given type between two entities,
// or nil if none exists.
func (s *Store) GetTensor(source, target string, typ relation.Type) *relation.Tensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.edges[pairKey{source, target}] {
		if t.Type == typ {
			return t
		}
	}
	return nil
}

// GetTensorByID resolves a weight-id through the flat registry, O(1) and
// independent of endpoints.
func (s *Store) GetTensorByID(id string) *relation.Tensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

// GetNode returns the node record for an entity, or nil.
func (s *Store) GetNode(name string) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[name]
}

// ActivateTensor fires a tensor by weight-id in the given context.
func (s *Store) ActivateTensor(id, contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.registry[id]
	if !ok {
		return fmt.Errorf("%w: tensor %s", ErrNotFound, id)
	}
	t.Activate(contextID)
	s.stats.TotalActivations++
	return nil
}

// ResolveTension is the explicit resolution action for one tensor in one
// context. If the tensor leaves the conflicted band it is also removed from
// the conflict zone set.
func (s *Store) ResolveTension(id, contextID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.registry[id]
	if !ok {
		return fmt.Errorf("%w: tensor %s", ErrNotFound, id)
	}
	t.Resolve(contextID)
	if t.Tension <= 0.8 {
		delete(s.conflictZones, id)
	}
	return nil
}

// AcceptDream integrates a suggested tensor into the graph: the suggested
// flag is cleared, the meaning prefix is rewritten from hypothesis wording
// to accepted-hypothesis wording, and the tensor is inserted under the
// given context (the dream-accepted context when empty). Returns
// relation.ErrInvalidAcceptance for tensors that were not suggestions.
func (s *Store) AcceptDream(t *relation.Tensor, contextID string) (string, error) {
	if t == nil || !t.Suggested {
		return "", relation.ErrInvalidAcceptance
	}
	if contextID == "" {
		contextID = ContextDreamAccepted
	}
	relation.AcceptHypothesis(t)
	return s.AddTensor(t, contextID, true)
}

// ConflictZones returns the weight-ids currently flagged as semantically
// contradictory at high certainty, sorted.
func (s *Store) ConflictZones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.conflictZones)
}

// Contexts returns a snapshot of the per-context statistics.
func (s *Store) Contexts() map[string]ContextStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]ContextStats, len(s.contexts))
	for id, cs := range s.contexts {
		snapshot[id] = *cs
	}
	return snapshot
}

// Stats returns graph-level counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Name returns the graph's name.
func (s *Store) Name() string { return s.name }
