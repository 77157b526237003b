package graph

import (
	"sort"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// DefaultCycleBudget bounds simple-cycle enumeration. Enumeration is
// exponential in the worst case; past the budget the search abandons and
// returns whatever cycles it found.
const DefaultCycleBudget = 10000

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Nodes returns all entity names, sorted.
func (s *Store) Nodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NodeCount returns the number of entities.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the total number of tensors, counting multi-edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

// HasNode reports whether an entity exists.
func (s *Store) HasNode(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[name]
	return ok
}

// HasEdge reports whether any tensor runs from source to target.
func (s *Store) HasEdge(source, target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges[pairKey{source, target}]) > 0
}

// HasEdgeEither reports whether the two entities are connected in either
// direction.
func (s *Store) HasEdgeEither(a, b string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges[pairKey{a, b}]) > 0 || len(s.edges[pairKey{b, a}]) > 0
}

// TensorsBetween returns the tensors on the ordered pair, in insertion
// order. The tensors are live; callers must treat them as read-only.
func (s *Store) TensorsBetween(source, target string) []*relation.Tensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot := s.edges[pairKey{source, target}]
	out := make([]*relation.Tensor, len(slot))
	copy(out, slot)
	return out
}

// AllTensors returns every tensor in the graph, sorted by weight-id.
func (s *Store) AllTensors() []*relation.Tensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*relation.Tensor, 0, len(s.registry))
	for _, t := range s.registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pairs returns the distinct connected (source, target) pairs, sorted.
func (s *Store) Pairs() [][2]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][2]string, 0, len(s.edges))
	for key := range s.edges {
		out = append(out, [2]string{key.Source, key.Target})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// Successors returns the distinct direct targets of a node, sorted.
func (s *Store) Successors(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.out[name])
}

// Predecessors returns the distinct direct sources pointing at a node,
// sorted.
func (s *Store) Predecessors(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.in[name])
}

// Neighbors returns the union of predecessors and successors, sorted.
func (s *Store) Neighbors(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.neighborSetLocked(name))
}

func (s *Store) neighborSetLocked(name string) map[string]struct{} {
	set := make(map[string]struct{}, len(s.out[name])+len(s.in[name]))
	for n := range s.out[name] {
		set[n] = struct{}{}
	}
	for n := range s.in[name] {
		set[n] = struct{}{}
	}
	return set
}

// Degree returns the number of distinct neighbors counting direction, the
// quantity isolation is judged by.
func (s *Store) Degree(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.out[name]) + len(s.in[name])
}

// IsolatedCount returns the number of entities with no relations at all.
func (s *Store) IsolatedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for name := range s.nodes {
		if len(s.out[name]) == 0 && len(s.in[name]) == 0 {
			count++
		}
	}
	return count
}

// Density returns edges / (n × (n−1)) over the directed simple view:
// multi-edges collapse to their distinct endpoint pair.
func (s *Store) Density() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.nodes)
	if n <= 1 {
		return 0.0
	}
	return float64(len(s.edges)) / float64(n*(n-1))
}

// WeakComponents returns the number of weakly connected components:
// union-find over the underlying undirected view.
func (s *Store) WeakComponents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent := make(map[string]string, len(s.nodes))
	for name := range s.nodes {
		parent[name] = name
	}
	var find func(string) string
	find = func(x string) string {
		for parent[x] != x {
			parent[x] = parent[parent[x]] // path halving
			x = parent[x]
		}
		return x
	}
	for key := range s.edges {
		ra, rb := find(key.Source), find(key.Target)
		if ra != rb {
			parent[ra] = rb
		}
	}

	roots := make(map[string]struct{})
	for name := range s.nodes {
		roots[find(name)] = struct{}{}
	}
	return len(roots)
}

// Jaccard returns the neighbor-set similarity of two entities, computed
// over the union of predecessors and successors. Symmetric by construction.
func (s *Store) Jaccard(a, b string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.jaccardLocked(a, b)
}

// HopCertainty returns the strongest certainty among tensors on the ordered
// pair, or the 0.7 prior when the pair carries no tensor.
func (s *Store) HopCertainty(source, target string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot := s.edges[pairKey{source, target}]
	if len(slot) == 0 {
		return 0.7
	}
	best := 0.0
	for _, t := range slot {
		if t.Certainty > best {
			best = t.Certainty
		}
	}
	return best
}

// SimplePaths enumerates simple paths from source to target with at most
// maxLength hops, depth-limited DFS in discovery order (successors visited
// in sorted order).
func (s *Store) SimplePaths(source, target string, maxLength int) [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[source]; !ok {
		return nil
	}
	if _, ok := s.nodes[target]; !ok {
		return nil
	}

	var paths [][]string
	onPath := map[string]struct{}{source: {}}
	path := []string{source}

	var dfs func(current string)
	dfs = func(current string) {
		if len(path)-1 >= maxLength {
			return
		}
		for _, next := range sortedKeys(s.out[current]) {
			if _, visiting := onPath[next]; visiting {
				continue
			}
			path = append(path, next)
			if next == target {
				paths = append(paths, append([]string(nil), path...))
			} else {
				onPath[next] = struct{}{}
				dfs(next)
				delete(onPath, next)
			}
			path = path[:len(path)-1]
		}
	}
	dfs(source)
	return paths
}

// SimpleCycles enumerates simple cycles over the directed simple view.
// Each cycle is reported once, rooted at its smallest node. The budget
// bounds DFS expansions; when exhausted the cycles found so far are
// returned, never an error - partial diagnostics beat none.
func (s *Store) SimpleCycles(budget int) [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if budget <= 0 {
		budget = DefaultCycleBudget
	}

	names := make([]string, 0, len(s.nodes))
	for name := range s.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	var cycles [][]string
	steps := 0

	for startIdx, start := range names {
		if steps >= budget {
			break
		}
		onStack := map[string]struct{}{start: {}}
		path := []string{start}

		var dfs func(current string) bool
		dfs = func(current string) bool {
			steps++
			if steps >= budget {
				return false
			}
			for _, next := range sortedKeys(s.out[current]) {
				if index[next] < startIdx {
					continue // cycles through smaller nodes were already rooted there
				}
				if next == start {
					cycles = append(cycles, append([]string(nil), path...))
					continue
				}
				if _, visiting := onStack[next]; visiting {
					continue
				}
				onStack[next] = struct{}{}
				path = append(path, next)
				ok := dfs(next)
				path = path[:len(path)-1]
				delete(onStack, next)
				if !ok {
					return false
				}
			}
			return true
		}
		dfs(start)
	}
	return cycles
}
