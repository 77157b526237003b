// Package coherence measures how internally consistent a tensor graph is and
// diagnoses the concrete sources of strain.
//
// The global coherence score blends three signals:
//   - structural (30%): how connected the graph is - density and the inverse
//     of the weak-component count.
//   - semantic (50%): the mean certainty across all tensors. A graph with no
//     tensors yet is semantically unblemished (1.0).
//   - tension penalty (20%): a logarithmic penalty for the number of
//     high-tension tensors, so one bad tensor never dominates but a pile of
//     them does.
//
// ELI12:
//
// Imagine your room. Structural coherence asks "is everything reachable, or
// are there piles you can't get to?". Semantic coherence asks "how sure are
// you about where each thing belongs?". The tension penalty counts how many
// things are actively on fire. The engine keeps a history of scores so you
// can tell whether the room is getting cleaner or messier.
package coherence

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/graph"
	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// Score weighting and thresholds.
const (
	structuralWeight = 0.3
	semanticWeight   = 0.5
	tensionWeight    = 0.2

	highTensionBar = 0.7
	conflictBar    = 0.6
	tenseCycleBar  = 0.6

	historyCap  = 1000
	historyTrim = 500

	trendDelta = 0.05
)

// Status bands for the global score.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCrisis   = "crisis"
	StatusCollapse = "collapse"
	StatusEmpty    = "empty"
)

// Trend values returned by GetCoherenceTrend.
const (
	TrendImproving        = "improving"
	TrendDegrading        = "degrading"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// Report is one coherence measurement.
type Report struct {
	Score          float64   `json:"score" yaml:"score"`
	Status         string    `json:"status" yaml:"status"`
	Structural     float64   `json:"structural" yaml:"structural"`
	Semantic       float64   `json:"semantic" yaml:"semantic"`
	TensionPenalty float64   `json:"tension_penalty" yaml:"tension_penalty"`
	NodeCount      int       `json:"node_count" yaml:"node_count"`
	TensorCount    int       `json:"tensor_count" yaml:"tensor_count"`
	MeasuredAt     time.Time `json:"measured_at" yaml:"measured_at"`
}

// Finding is one detected source of strain.
type Finding struct {
	Kind       string    `json:"kind" yaml:"kind"`
	Severity   string    `json:"severity" yaml:"severity"`
	Detail     string    `json:"detail" yaml:"detail"`
	Tensors    []string  `json:"tensors,omitempty" yaml:"tensors,omitempty"`
	Nodes      []string  `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	DetectedAt time.Time `json:"detected_at" yaml:"detected_at"`
}

// Finding kinds.
const (
	FindingMeaningConflict = "meaning_conflict"
	FindingTenseCycle      = "tense_cycle"
	FindingIsolation       = "isolation"
)

// Diagnosis bundles a measurement with its findings, trend and the
// recommended next actions.
type Diagnosis struct {
	Report          Report    `json:"report" yaml:"report"`
	Findings        []Finding `json:"findings" yaml:"findings"`
	Trend           string    `json:"trend" yaml:"trend"`
	Recommendations []string  `json:"recommendations" yaml:"recommendations"`
}

// Engine measures one graph over time. Safe for concurrent use; the history
// has its own lock and graph reads go through the store's read API.
type Engine struct {
	mu          sync.Mutex
	graph       *graph.Store
	history     []Report
	tensionLog  []Finding
	cycleBudget int
}

// NewEngine creates a coherence engine bound to one graph.
func NewEngine(g *graph.Store) *Engine {
	return &Engine{graph: g, cycleBudget: graph.DefaultCycleBudget}
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// CalculateGlobalCoherence measures the graph now and appends the report to
// the engine's history. An empty graph is perfectly coherent by convention -
// absence is not incoherence - and leaves no history entry.
func (e *Engine) CalculateGlobalCoherence() Report {
	nodeCount := e.graph.NodeCount()
	tensors := e.graph.AllTensors()

	if nodeCount == 0 && len(tensors) == 0 {
		return Report{
			Score: 1.0, Structural: 1.0, Semantic: 1.0,
			Status: StatusEmpty, MeasuredAt: time.Now(),
		}
	}

	components := e.graph.WeakComponents()
	if components < 1 {
		components = 1
	}
	structural := clamp01(e.graph.Density()*0.4 + (1.0/float64(components))*0.6)

	semantic := 1.0
	highTension := 0
	if len(tensors) > 0 {
		sum := 0.0
		for _, t := range tensors {
			sum += t.Certainty
			if t.Tension > highTensionBar {
				highTension++
			}
		}
		semantic = sum / float64(len(tensors))
	}

	penalty := math.Min(1.0, math.Log(1.0+float64(highTension))/10.0)

	report := Report{
		Score: clamp01(structural*structuralWeight +
			semantic*semanticWeight +
			(1.0-penalty)*tensionWeight),
		Structural:     structural,
		Semantic:       semantic,
		TensionPenalty: penalty,
		NodeCount:      nodeCount,
		TensorCount:    len(tensors),
		MeasuredAt:     time.Now(),
	}
	report.Status = statusFor(report.Score)

	e.mu.Lock()
	e.history = appendBounded(e.history, report)
	e.mu.Unlock()

	return report
}

func statusFor(score float64) string {
	switch {
	case score >= 0.7:
		return StatusHealthy
	case score >= 0.4:
		return StatusWarning
	case score >= 0.2:
		return StatusCrisis
	default:
		return StatusCollapse
	}
}

// appendBounded enforces the 1000-entry cap, trimming to the newest 500.
func appendBounded[T any](log []T, entry T) []T {
	log = append(log, entry)
	if len(log) > historyCap {
		log = append([]T(nil), log[len(log)-historyTrim:]...)
	}
	return log
}

// DetectTensions scans the graph for the three strain patterns and appends
// the findings to the bounded tension log:
//
//   - meaning_conflict (high): two same-type tensors on one node pair whose
//     meanings differ while both hold certainty above 0.6.
//   - tense_cycle (medium): a simple cycle longer than two nodes whose hops
//     average tension above 0.6. Cycle enumeration is budgeted; when the
//     graph is too tangled to enumerate fully the findings simply cover
//     less ground.
//   - isolation (low): entities with no relations at all, reported once.
func (e *Engine) DetectTensions() []Finding {
	now := time.Now()
	var findings []Finding

	for _, pair := range e.graph.Pairs() {
		slot := e.graph.TensorsBetween(pair[0], pair[1])
		for i := 0; i < len(slot); i++ {
			for j := i + 1; j < len(slot); j++ {
				a, b := slot[i], slot[j]
				if a.Type != b.Type || graph.SameMeaning(a.Meaning, b.Meaning) {
					continue
				}
				if a.Certainty <= conflictBar || b.Certainty <= conflictBar {
					continue
				}
				findings = append(findings, Finding{
					Kind:     FindingMeaningConflict,
					Severity: "high",
					Detail: fmt.Sprintf("%s→%s asserts both %q and %q at high certainty",
						pair[0], pair[1], a.Meaning, b.Meaning),
					Tensors:    []string{a.ID, b.ID},
					DetectedAt: now,
				})
			}
		}
	}

	for _, cycle := range e.graph.SimpleCycles(e.cycleBudget) {
		if len(cycle) <= 2 {
			continue
		}
		if avg, ids := e.cycleTension(cycle); avg > tenseCycleBar {
			findings = append(findings, Finding{
				Kind:     FindingTenseCycle,
				Severity: "medium",
				Detail: fmt.Sprintf("cycle of %d entities averages tension %.2f",
					len(cycle), avg),
				Tensors:    ids,
				Nodes:      append([]string(nil), cycle...),
				DetectedAt: now,
			})
		}
	}

	var isolated []string
	for _, name := range e.graph.Nodes() {
		if e.graph.Degree(name) == 0 {
			isolated = append(isolated, name)
		}
	}
	if len(isolated) > 0 {
		sort.Strings(isolated)
		findings = append(findings, Finding{
			Kind:       FindingIsolation,
			Severity:   "low",
			Detail:     fmt.Sprintf("%d entities have no relations", len(isolated)),
			Nodes:      isolated,
			DetectedAt: now,
		})
	}

	e.mu.Lock()
	for _, f := range findings {
		e.tensionLog = appendBounded(e.tensionLog, f)
	}
	e.mu.Unlock()

	return findings
}

// cycleTension averages the per-hop tension over a cycle. Each hop counts
// its most tense tensor; the ids of tense tensors are collected for the
// finding.
func (e *Engine) cycleTension(cycle []string) (float64, []string) {
	var ids []string
	total := 0.0
	for i := range cycle {
		from := cycle[i]
		to := cycle[(i+1)%len(cycle)]
		hop := 0.0
		var hopID string
		for _, t := range e.graph.TensorsBetween(from, to) {
			if t.Tension >= hop {
				hop = t.Tension
				hopID = t.ID
			}
		}
		total += hop
		if hop > tenseCycleBar && hopID != "" {
			ids = append(ids, hopID)
		}
	}
	return total / float64(len(cycle)), ids
}

// GetCoherenceTrend compares the oldest and newest measurements inside the
// window: a swing beyond ±0.05 reads as improving or degrading, anything
// else as stable. Fewer than two samples in the window is insufficient data.
func (e *Engine) GetCoherenceTrend(window time.Duration) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-window)
	var inWindow []Report
	for _, r := range e.history {
		if r.MeasuredAt.After(cutoff) {
			inWindow = append(inWindow, r)
		}
	}
	if len(inWindow) < 2 {
		return TrendInsufficientData
	}
	delta := inWindow[len(inWindow)-1].Score - inWindow[0].Score
	switch {
	case delta > trendDelta:
		return TrendImproving
	case delta < -trendDelta:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// History returns a copy of the recorded measurements, oldest first.
func (e *Engine) History() []Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Report(nil), e.history...)
}

// TensionLog returns a copy of the recorded findings, oldest first.
func (e *Engine) TensionLog() []Finding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Finding(nil), e.tensionLog...)
}

// Diagnose runs a full checkup: fresh measurement, tension scan, 24-hour
// trend and the fixed recommendation policy. Recommendations are advisory
// strings, never actions.
func (e *Engine) Diagnose() Diagnosis {
	report := e.CalculateGlobalCoherence()
	findings := e.DetectTensions()
	trend := e.GetCoherenceTrend(24 * time.Hour)

	var recs []string
	if report.Status == StatusCrisis || report.Status == StatusCollapse {
		recs = append(recs, "acknowledge a boundary with an "+string(relation.TypeOmega)+" gesture before adding anything new")
	}
	if e.graph.IsolatedCount() > 5 {
		recs = append(recs, "create connections: too many entities stand alone")
	}
	for _, f := range findings {
		if f.Severity == "high" {
			recs = append(recs, "resolve the meaning conflicts via dialogue")
			break
		}
	}
	if trend == TrendDegrading {
		recs = append(recs, "enrich the graph with an invariant ("+string(relation.TypeNabla)+") to anchor it")
	}
	if len(recs) == 0 {
		recs = append(recs, "no action required")
	}

	return Diagnosis{
		Report:          report,
		Findings:        findings,
		Trend:           trend,
		Recommendations: recs,
	}
}
