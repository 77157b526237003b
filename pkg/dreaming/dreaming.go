// Package dreaming implements link prediction over a tensor graph: the
// offline pass that proposes relations the graph does not know yet.
//
// Three heuristics run in a fixed order, strongest signal first:
//
//  1. Structural holes - a broker whose neighborhood is sparsely connected
//     sits on gaps; each unconnected neighbor pair is a candidate link.
//  2. Neighborhood similarity - Jaccard overlap of the full neighbor sets.
//  3. Path completion - a two-hop path A→M→B with no direct A→B shortcut.
//
// Every proposal is a suggested tensor carrying the hypothesis meaning
// prefix. Nothing enters the graph until a caller accepts it.
//
// Example Usage:
//
//	eng := dreaming.NewEngine(g)
//	for _, hyp := range eng.Dream(10) {
//		fmt.Println(hyp.Source, "→", hyp.Target, hyp.Meaning, hyp.Certainty)
//	}
package dreaming

import (
	"fmt"
	"sync"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/graph"
	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// Heuristic thresholds. The engine runs looser than the in-store dreaming
// cycle: it is a review queue, not an auto-integration path.
const (
	holeMinScore = 0.4
	holeTension  = 0.1

	similarityMin     = 0.3
	similarityTension = 0.05

	pathMinCertainty = 0.5
	pathTension      = 0.05
)

// Stats are the engine's lifetime counters.
type Stats struct {
	TotalSuggestions int       `json:"total_suggestions" yaml:"total_suggestions"`
	LastRun          time.Time `json:"last_run" yaml:"last_run"`
}

// Engine predicts missing links over one graph.
type Engine struct {
	mu    sync.Mutex
	graph *graph.Store
	stats Stats
}

// NewEngine creates a prediction engine bound to one graph.
func NewEngine(g *graph.Store) *Engine {
	return &Engine{graph: g}
}

// Dream runs all three heuristics and returns up to maxSuggestions
// hypothetical tensors, deduplicated per unordered pair across strategies.
// Deterministic: nodes are visited in sorted order, strategies in fixed
// order, so the same graph always dreams the same dreams.
func (e *Engine) Dream(maxSuggestions int) []*relation.Tensor {
	if maxSuggestions <= 0 {
		maxSuggestions = 10
	}

	nodes := e.graph.Nodes()
	seen := make(map[[2]string]struct{})
	var out []*relation.Tensor

	add := func(t *relation.Tensor) bool {
		pair := orderedPair(t.Source, t.Target)
		if _, dup := seen[pair]; dup {
			return len(out) < maxSuggestions
		}
		seen[pair] = struct{}{}
		out = append(out, t)
		return len(out) < maxSuggestions
	}

	e.structuralHoles(nodes, add)
	if len(out) < maxSuggestions {
		e.neighborhoodSimilarity(nodes, add)
	}
	if len(out) < maxSuggestions {
		e.pathCompletion(nodes, add)
	}

	e.mu.Lock()
	e.stats.TotalSuggestions += len(out)
	e.stats.LastRun = time.Now()
	e.mu.Unlock()

	return out
}

func orderedPair(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// structuralHoles proposes links across the gaps around each broker: a node
// with two or more neighbors whose neighborhood is sparsely interconnected.
// The hole score 1 − connectedPairs/totalPairs is the certainty; a tightly
// knit neighborhood scores near zero and proposes nothing.
func (e *Engine) structuralHoles(nodes []string, add func(*relation.Tensor) bool) {
	for _, broker := range nodes {
		neighbors := e.graph.Neighbors(broker)
		if len(neighbors) < 2 {
			continue
		}

		totalPairs := len(neighbors) * (len(neighbors) - 1) / 2
		connected := 0
		var gaps [][2]string
		for i, a := range neighbors {
			for _, b := range neighbors[i+1:] {
				if e.graph.HasEdgeEither(a, b) {
					connected++
				} else {
					gaps = append(gaps, [2]string{a, b})
				}
			}
		}

		score := 1.0 - float64(connected)/float64(totalPairs)
		if score <= holeMinScore {
			continue
		}
		for _, gap := range gaps {
			t := relation.NewSuggestion(gap[0], gap[1],
				"structural hole via "+broker,
				score, holeTension)
			if !add(t) {
				return
			}
		}
	}
}

// neighborhoodSimilarity proposes links between pairs whose neighbor sets
// overlap strongly by Jaccard similarity. The similarity is the certainty.
func (e *Engine) neighborhoodSimilarity(nodes []string, add func(*relation.Tensor) bool) {
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			if e.graph.HasEdgeEither(a, b) {
				continue
			}
			sim := e.graph.Jaccard(a, b)
			if sim <= similarityMin {
				continue
			}
			t := relation.NewSuggestion(a, b,
				fmt.Sprintf("neighborhood similarity %.2f", sim),
				sim, similarityTension)
			if !add(t) {
				return
			}
		}
	}
}

// pathCompletion proposes the direct shortcut for two-hop paths A→M→B. The
// certainty is the mean of the hop certainties; only shortcuts above 0.5
// are worth suggesting.
func (e *Engine) pathCompletion(nodes []string, add func(*relation.Tensor) bool) {
	for _, a := range nodes {
		for _, m := range e.graph.Successors(a) {
			for _, b := range e.graph.Successors(m) {
				if b == a || e.graph.HasEdgeEither(a, b) {
					continue
				}
				certainty := (e.graph.HopCertainty(a, m) + e.graph.HopCertainty(m, b)) / 2
				if certainty <= pathMinCertainty {
					continue
				}
				t := relation.NewSuggestion(a, b,
					"path completion via "+m,
					certainty, pathTension)
				if !add(t) {
					return
				}
			}
		}
	}
}

// AcceptSuggestion integrates one hypothesis into the graph under the given
// context. Returns relation.ErrInvalidAcceptance for tensors not produced
// as suggestions.
func (e *Engine) AcceptSuggestion(t *relation.Tensor, contextID string) (string, error) {
	return e.graph.AcceptDream(t, contextID)
}

// Stats returns the engine's lifetime counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
