// Package relation implements the relation tensor, the atomic unit of meaning
// in SemanticDB.
//
// A Tensor is not a passive edge. It is a stateful record between two entities
// that remembers every context it was active in, accumulates tension when it
// conflicts with other tensors, and carries its own lineage (parents and
// children from splits and merges).
//
// The two core scalars:
//   - Certainty: belief strength in the tensor's meaning (0.0-1.0). The global
//     value is always the arithmetic mean of the per-context certainties.
//   - Tension: unresolved conflict (0.0-1.0). The global value is always the
//     maximum of the per-context tensions. Tension never decreases on its own;
//     only an explicit resolution lowers it.
//
// Example Usage:
//
//	t := relation.New("question", "answer", relation.TypeLambda, "leads to")
//	t.Certainty = 0.8
//
//	// Reinforce on use
//	t.Activate("dialogue-42")
//
//	// Fold in an observation from another context
//	t.UpdateFromContext("review", 0.9, 0.0)
//
//	fmt.Printf("certainty=%.2f tension=%.2f\n", t.Certainty, t.Tension)
//
// ELI12:
//
// Think of a Tensor like a friendship bracelet between two people. Every time
// they hang out (Activate), the bracelet gets a little stronger. If they argue
// (tension), the knot stays tight until someone actually apologizes (explicit
// resolution) - it never loosens by itself. And the bracelet remembers every
// place it has been worn.
package relation

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned by tensor operations.
var (
	// ErrIncompatibleMerge is returned when merging tensors whose source,
	// target or type differ.
	ErrIncompatibleMerge = errors.New("can only merge tensors with identical source, target and type")

	// ErrInvalidAcceptance is returned when accepting a tensor that was not
	// produced as a suggestion.
	ErrInvalidAcceptance = errors.New("only suggested tensors can be accepted")
)

// Type is the relation kind of a tensor. The set is closed: six gestures.
type Type string

const (
	// TypeAlpha marks creation relations (entity genesis).
	TypeAlpha Type = "Α"
	// TypeLambda marks ordinary semantic links, the default kind.
	TypeLambda Type = "Λ"
	// TypeSigma marks synthesis relations produced by merges.
	TypeSigma Type = "Σ"
	// TypeOmega marks boundary or resolution relations.
	TypeOmega Type = "Ω"
	// TypeNabla marks enrichment relations (invariants).
	TypeNabla Type = "∇"
	// TypePhi marks intention relations produced by dialogue.
	TypePhi Type = "Φ"
)

// Status is the lifecycle status of a tensor or node.
type Status string

const (
	StatusActive     Status = "active"
	StatusSleeping   Status = "sleeping"
	StatusConflicted Status = "conflicted"
	StatusArchived   Status = "archived"
)

const (
	// GenesisContext is the context recorded at tensor creation.
	GenesisContext = "genesis"

	// certaintyCap bounds Hebbian reinforcement.
	certaintyCap = 0.95

	// decayInactivity is how long a tensor must stay inactive past its
	// lifespan before ShouldDecay can report true.
	decayInactivity = 90 * 24 * time.Hour

	// defaultLifespan is granted to every new tensor.
	defaultLifespan = 365 * 24 * time.Hour
)

// Tensor is a stateful, mergeable relation between two entities.
//
// All fields are exported for serialization, but after a tensor has been
// handed to a graph store the store is its sole owner; callers keep only the
// ID and mutate through store operations.
type Tensor struct {
	Source    string
	Target    string
	Type      Type
	Meaning   string
	Intention string

	// Derived metrics, recomputed from the context maps.
	Certainty             float64
	Tension               float64
	CoherenceContribution float64

	// Contextual memory.
	CertaintyByContext map[string]float64
	TensionByContext   map[string]float64

	// Identity and lifecycle.
	ID       string
	Status   Status
	Lifespan time.Time

	// Activity and lineage.
	ActivationCount int
	LastActivated   time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ParentTensors   []string
	ChildTensors    []string

	// Suggested marks hypothetical tensors produced by link prediction.
	// A suggested tensor is never inserted into a graph automatically.
	Suggested bool
}

// New creates a tensor with default dynamics: certainty 0.7, zero tension,
// a one-year lifespan and the genesis context seeded with the certainty.
func New(source, target string, typ Type, meaning string) *Tensor {
	now := time.Now()
	t := &Tensor{
		Source:             source,
		Target:             target,
		Type:               typ,
		Meaning:            meaning,
		Certainty:          0.7,
		CertaintyByContext: map[string]float64{},
		TensionByContext:   map[string]float64{},
		ID:                 NewWeightID("HW"),
		Status:             StatusActive,
		Lifespan:           now.Add(defaultLifespan),
		LastActivated:      now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	t.CertaintyByContext[GenesisContext] = t.Certainty
	t.recalculate()
	return t
}

// NewWeightID generates a unique weight-id with the given prefix.
func NewWeightID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Activate fires the tensor like a neuron: the activation count increments,
// certainty is nudged up by 2% (capped at 0.95), and the new certainty is
// folded into the context's running average.
func (t *Tensor) Activate(contextID string) {
	t.ActivationCount++
	t.LastActivated = time.Now()
	if t.Certainty < certaintyCap {
		t.Certainty = min(certaintyCap, t.Certainty*1.02)
	}
	if old, ok := t.CertaintyByContext[contextID]; ok {
		t.CertaintyByContext[contextID] = (old + t.Certainty) / 2.0
	} else {
		t.CertaintyByContext[contextID] = t.Certainty
	}
	t.UpdatedAt = time.Now()
	t.recalculate()
}

// UpdateFromContext folds an observation from one context into the tensor.
// Certainty is averaged with the context's previous value; tension is
// monotonic non-decreasing per context and only falls via an explicit
// Resolve. The update counts as an activation.
func (t *Tensor) UpdateFromContext(contextID string, newCertainty, newTension float64) {
	current, ok := t.CertaintyByContext[contextID]
	if !ok {
		current = newCertainty
	}
	t.CertaintyByContext[contextID] = (current + newCertainty) / 2.0
	t.TensionByContext[contextID] = max(t.TensionByContext[contextID], newTension)
	t.recalculate()
	t.Activate(contextID)
}

// Resolve is the explicit resolution action: it clears the tension recorded
// for one context. This is the only path by which tension decreases.
func (t *Tensor) Resolve(contextID string) {
	delete(t.TensionByContext, contextID)
	t.UpdatedAt = time.Now()
	t.recalculate()
}

// recalculate rebuilds the derived metrics from the context maps and updates
// the lifecycle status.
func (t *Tensor) recalculate() {
	if len(t.CertaintyByContext) > 0 {
		sum := 0.0
		for _, c := range t.CertaintyByContext {
			sum += c
		}
		t.Certainty = sum / float64(len(t.CertaintyByContext))
	}
	t.Tension = 0.0
	for _, ten := range t.TensionByContext {
		t.Tension = max(t.Tension, ten)
	}
	t.CoherenceContribution = t.Certainty * (1.0 - t.Tension)

	// Archival is terminal; metric churn never reactivates an archived tensor.
	if t.Status == StatusArchived {
		return
	}
	switch {
	case t.Tension > 0.8:
		t.Status = StatusConflicted
	case t.ActivationCount == 0 && time.Since(t.CreatedAt) > 30*24*time.Hour:
		t.Status = StatusSleeping
	default:
		t.Status = StatusActive
	}
}

// Split produces a child variant sharing source and target. The child starts
// with 80% of the parent's certainty (globally and per context), inherits the
// tension, and both records gain lineage pointers.
func (t *Tensor) Split(variantMeaning string, newType Type) *Tensor {
	typ := t.Type
	if newType != "" {
		typ = newType
	}
	child := New(t.Source, t.Target, typ, "Variant: "+variantMeaning)
	child.Intention = "Split from " + t.ID
	child.Certainty = t.Certainty * 0.8
	child.Tension = t.Tension
	child.CertaintyByContext = map[string]float64{}
	for ctx, cert := range t.CertaintyByContext {
		child.CertaintyByContext[ctx] = cert * 0.8
	}
	child.TensionByContext = map[string]float64{}
	for ctx, ten := range t.TensionByContext {
		child.TensionByContext[ctx] = ten
	}
	child.ParentTensors = []string{t.ID}
	child.recalculate()
	t.ChildTensors = append(t.ChildTensors, child.ID)
	return child
}

// MergeWith synthesizes a new tensor from two homogeneous ones: averaged
// certainty, maximum tension, union of contexts (a missing side counts as 0
// and is averaged in), and both originals as parents. Returns
// ErrIncompatibleMerge if source, target or type differ.
func (t *Tensor) MergeWith(other *Tensor) (*Tensor, error) {
	if t.Source != other.Source || t.Target != other.Target || t.Type != other.Type {
		return nil, ErrIncompatibleMerge
	}
	merged := New(t.Source, t.Target, t.Type, "Σ("+t.Meaning+", "+other.Meaning+")")
	merged.Certainty = (t.Certainty + other.Certainty) / 2.0
	merged.Tension = max(t.Tension, other.Tension)
	merged.CertaintyByContext = map[string]float64{}
	for ctx := range t.CertaintyByContext {
		merged.CertaintyByContext[ctx] = (t.CertaintyByContext[ctx] + other.CertaintyByContext[ctx]) / 2.0
	}
	for ctx := range other.CertaintyByContext {
		if _, seen := t.CertaintyByContext[ctx]; !seen {
			merged.CertaintyByContext[ctx] = other.CertaintyByContext[ctx] / 2.0
		}
	}
	merged.TensionByContext = map[string]float64{}
	for ctx, ten := range t.TensionByContext {
		merged.TensionByContext[ctx] = ten
	}
	for ctx, ten := range other.TensionByContext {
		merged.TensionByContext[ctx] = max(merged.TensionByContext[ctx], ten)
	}
	merged.ParentTensors = []string{t.ID, other.ID}
	merged.recalculate()
	return merged, nil
}

// ShouldDecay reports whether the tensor is eligible for decay: lifespan
// expired, no activation for 90+ days, and tension above 0.9. Advisory only;
// nothing removes a tensor automatically.
func (t *Tensor) ShouldDecay() bool {
	now := time.Now()
	return now.After(t.Lifespan) &&
		now.Sub(t.LastActivated) > decayInactivity &&
		t.Tension > 0.9
}

// Priority is the dreaming-queue key: certainty weighted by calm.
func (t *Tensor) Priority() float64 {
	return t.Certainty * (1.0 - t.Tension)
}

// Meaning prefixes used by link prediction. A fresh suggestion carries
// HypothesisPrefix; acceptance rewrites it to AcceptedPrefix.
const (
	HypothesisPrefix = "Dream:"
	AcceptedPrefix   = "Accepted hypothesis:"
)

// NewSuggestion creates a hypothetical tensor as produced by link
// prediction: suggested, never auto-inserted.
func NewSuggestion(source, target string, meaning string, certainty, tension float64) *Tensor {
	t := New(source, target, TypeLambda, HypothesisPrefix+" "+meaning)
	t.Certainty = certainty
	t.CertaintyByContext[GenesisContext] = certainty
	t.Tension = tension
	t.TensionByContext[GenesisContext] = tension
	t.Suggested = true
	t.recalculate()
	return t
}

// AcceptHypothesis flips a suggestion to an active tensor and rewrites its
// meaning prefix. The caller is responsible for inserting it into a graph.
func AcceptHypothesis(t *Tensor) {
	t.Suggested = false
	t.Status = StatusActive
	t.Meaning = strings.Replace(t.Meaning, HypothesisPrefix, AcceptedPrefix, 1)
	t.UpdatedAt = time.Now()
}
