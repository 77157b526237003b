package rql

import (
	"sort"
	"strconv"
	"strings"

	"github.com/A-Universum/SemanticDB/pkg/coherence"
	"github.com/A-Universum/SemanticDB/pkg/graph"
)

// Execution defaults and caps.
const (
	defaultMinCoherence = 0.5
	defaultMaxPathLen   = 3
	defaultDepth        = 2
	maxPaths            = 5
	maxDepth            = 2
	maxContextResults   = 10
	minKeywordLen       = 4
)

// stopWords are intention words carrying no resonance of their own.
var stopWords = map[string]struct{}{
	"what": {}, "where": {}, "when": {}, "which": {}, "whom": {},
	"this": {}, "that": {}, "these": {}, "those": {},
	"with": {}, "from": {}, "into": {}, "about": {},
	"does": {}, "have": {}, "will": {}, "would": {}, "could": {},
	"there": {}, "their": {}, "then": {}, "than": {},
}

// NodeMatch is one Φ resonance hit: an entity whose name matched an
// intention keyword, scored by the mean coherence contribution of its
// tensors.
type NodeMatch struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

// PathResult is one QUERY answer: an entity path and the mean certainty of
// its hops.
type PathResult struct {
	Nodes      []string `json:"nodes" yaml:"nodes"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// Result is the answer to one executed query. Only the fields of the
// query's kind are populated.
type Result struct {
	Kind       string       `json:"kind" yaml:"kind"`
	Matches    []NodeMatch  `json:"matches,omitempty" yaml:"matches,omitempty"`
	Coherence  float64      `json:"coherence,omitempty" yaml:"coherence,omitempty"`
	Context    string       `json:"context,omitempty" yaml:"context,omitempty"`
	BlindSpots []string     `json:"blind_spots,omitempty" yaml:"blind_spots,omitempty"`
	Meta       []string     `json:"meta,omitempty" yaml:"meta,omitempty"`
	Paths      []PathResult `json:"paths,omitempty" yaml:"paths,omitempty"`
	Nodes      []string     `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Facts      []string     `json:"facts,omitempty" yaml:"facts,omitempty"`
}

// Engine executes parsed queries against one graph. The coherence engine is
// consulted for Φ resonance scoring; a nil engine simply leaves the score
// at zero.
type Engine struct {
	graph     *graph.Store
	coherence *coherence.Engine
}

// NewEngine creates a query engine bound to one graph.
func NewEngine(g *graph.Store, c *coherence.Engine) *Engine {
	return &Engine{graph: g, coherence: c}
}

// Execute parses and runs one RQL form.
func (e *Engine) Execute(input string) (*Result, error) {
	q, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return e.Run(q)
}

// Run executes an already-parsed query.
func (e *Engine) Run(q *Query) (*Result, error) {
	switch q.Kind {
	case KindPhi:
		return e.runPhi(q)
	case KindQuery:
		return e.runQuery(q)
	case KindExplore:
		return e.runExplore(q)
	case KindContext:
		return e.runContext(q)
	default:
		return nil, ErrUnknownQueryType
	}
}

// runPhi resolves an intention by keyword resonance: intention words longer
// than three characters (minus stop words) match node names
// case-insensitively by substring in either direction. Hits are scored by
// the mean coherence contribution of the node's tensors and returned
// strongest first, alongside the graph's current global coherence and the
// dialogue context the intention was spoken in, when one was named.
func (e *Engine) runPhi(q *Query) (*Result, error) {
	intention, err := q.Param("intention")
	if err != nil {
		return nil, err
	}
	keywords := extractKeywords(intention)

	scores := e.nodeCoherence()
	var matches []NodeMatch
	for _, name := range e.graph.Nodes() {
		lower := strings.ToLower(name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) || strings.Contains(kw, lower) {
				matches = append(matches, NodeMatch{Name: name, Score: scores[name]})
				break
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	res := &Result{
		Kind:       KindPhi,
		Matches:    matches,
		Context:    q.Params["context"],
		BlindSpots: commaList(q.Params["blind_spots"]),
		Meta:       commaList(q.Params["meta"]),
	}
	if e.coherence != nil {
		res.Coherence = e.coherence.CalculateGlobalCoherence().Score
	}
	return res, nil
}

// commaList splits an optional comma-separated parameter into trimmed items.
func commaList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func extractKeywords(intention string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(intention)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		})
		if len(word) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// nodeCoherence computes the mean coherence contribution of each entity's
// incident tensors. Entities without tensors score zero.
func (e *Engine) nodeCoherence() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, t := range e.graph.AllTensors() {
		for _, name := range []string{t.Source, t.Target} {
			sums[name] += t.CoherenceContribution
			counts[name]++
		}
	}
	scores := make(map[string]float64, len(sums))
	for name, sum := range sums {
		scores[name] = sum / float64(counts[name])
	}
	return scores
}

// runQuery finds simple paths between two entities whose mean hop certainty
// meets the coherence floor. At most five paths, in discovery order.
func (e *Engine) runQuery(q *Query) (*Result, error) {
	from, err := q.Param("from")
	if err != nil {
		return nil, err
	}
	to, err := q.Param("to")
	if err != nil {
		return nil, err
	}
	minCoherence := paramFloat(q, "min_coherence", defaultMinCoherence)
	maxLen := paramInt(q, "max_length", defaultMaxPathLen)

	var paths []PathResult
	for _, nodes := range e.graph.SimplePaths(from, to, maxLen) {
		confidence := 0.0
		for i := 0; i+1 < len(nodes); i++ {
			confidence += e.graph.HopCertainty(nodes[i], nodes[i+1])
		}
		confidence /= float64(len(nodes) - 1)
		if confidence < minCoherence {
			continue
		}
		paths = append(paths, PathResult{Nodes: nodes, Confidence: confidence})
		if len(paths) >= maxPaths {
			break
		}
	}
	return &Result{Kind: KindQuery, Paths: paths}, nil
}

// runExplore returns the entities within depth hops of an entity (either
// direction), excluding the entity itself, as a flat sorted set. Depth is
// clamped to 2; :max_length is accepted as an alias for :depth.
func (e *Engine) runExplore(q *Query) (*Result, error) {
	entity, err := q.Param("entity")
	if err != nil {
		return nil, err
	}
	depth := defaultDepth
	if _, ok := q.Params["depth"]; ok {
		depth = paramInt(q, "depth", defaultDepth)
	} else if _, ok := q.Params["max_length"]; ok {
		depth = paramInt(q, "max_length", defaultDepth)
	}
	if depth < 1 {
		depth = 1
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	reached := make(map[string]struct{})
	frontier := []string{entity}
	for hop := 0; hop < depth; hop++ {
		var next []string
		for _, current := range frontier {
			for _, n := range e.graph.Neighbors(current) {
				if n == entity {
					continue
				}
				if _, seen := reached[n]; seen {
					continue
				}
				reached[n] = struct{}{}
				next = append(next, n)
			}
		}
		frontier = next
	}

	nodes := make([]string, 0, len(reached))
	for n := range reached {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return &Result{Kind: KindExplore, Nodes: nodes}, nil
}

// runContext searches node identifiers and tensor meanings for a keyword,
// case-insensitive by substring. Matching entities land in Nodes, matching
// tensors become facts; at most ten results in total.
func (e *Engine) runContext(q *Query) (*Result, error) {
	keyword, err := q.Param("keyword")
	if err != nil {
		if keyword, err = q.Param("context"); err != nil {
			return nil, err
		}
	}
	needle := strings.ToLower(keyword)

	res := &Result{Kind: KindContext}
	total := 0
	for _, name := range e.graph.Nodes() {
		if total >= maxContextResults {
			break
		}
		if strings.Contains(strings.ToLower(name), needle) {
			res.Nodes = append(res.Nodes, name)
			total++
		}
	}
	for _, t := range e.graph.AllTensors() {
		if total >= maxContextResults {
			break
		}
		if strings.Contains(strings.ToLower(t.Meaning), needle) {
			res.Facts = append(res.Facts, t.Source+" ["+t.Meaning+"] "+t.Target)
			total++
		}
	}
	return res, nil
}

func paramFloat(q *Query, key string, fallback float64) float64 {
	if raw, ok := q.Params[key]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

func paramInt(q *Query, key string, fallback int) int {
	if raw, ok := q.Params[key]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
