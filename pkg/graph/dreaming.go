package graph

import (
	"time"

	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// Graph-level dreaming thresholds. The standalone prediction engine runs a
// looser pass; the in-store cycle only surfaces strong candidates.
const (
	dreamJaccardThreshold = 0.35
	dreamTension          = 0.1
)

// DreamingCycle walks the dreaming priority queue and proposes hypothetical
// tensors between structurally similar neighborhoods. Pairs are taken in
// priority order (certainty × (1 − tension) at insertion time); for each, the
// neighbor-set Jaccard similarity must exceed 0.35 and no direct edge may
// already connect the pair in either direction. Suggestions are returned,
// never inserted; AcceptDream integrates the ones a caller approves.
//
// A graph with fewer than three nodes has no structural holes to dream
// about and returns nil.
func (s *Store) DreamingCycle(maxSuggestions int) []*relation.Tensor {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.LastDreaming = time.Now()
	if len(s.nodes) < 3 {
		return nil
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 5
	}

	var suggestions []*relation.Tensor
	processed := make(map[pairKey]struct{})

	for _, item := range s.dreamQueue.drain() {
		if len(suggestions) >= maxSuggestions {
			break
		}
		key := pairKey{item.source, item.target}
		if _, done := processed[key]; done {
			continue
		}
		processed[key] = struct{}{}
		processed[pairKey{item.target, item.source}] = struct{}{}

		// The queued pair itself is already connected; dream about the
		// neighbors it shares structure with instead.
		for _, a := range []string{item.source, item.target} {
			if len(suggestions) >= maxSuggestions {
				break
			}
			for b := range s.nodes {
				if b == a || b == item.source || b == item.target {
					continue
				}
				if len(s.edges[pairKey{a, b}]) > 0 || len(s.edges[pairKey{b, a}]) > 0 {
					continue
				}
				sim := s.jaccardLocked(a, b)
				if sim <= dreamJaccardThreshold {
					continue
				}
				suggestions = append(suggestions, relation.NewSuggestion(
					a, b,
					"possible connection via shared neighborhood",
					sim, dreamTension,
				))
				if len(suggestions) >= maxSuggestions {
					break
				}
			}
		}
	}
	return suggestions
}

func (s *Store) jaccardLocked(a, b string) float64 {
	na := s.neighborSetLocked(a)
	nb := s.neighborSetLocked(b)
	intersection := 0
	for n := range na {
		if _, ok := nb[n]; ok {
			intersection++
		}
	}
	union := len(na) + len(nb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
