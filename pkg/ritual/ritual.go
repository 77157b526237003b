// Package ritual dispatches the six gestures through which a graph is
// changed. Every mutation of the living graph is a ritual: it touches the
// graph, leaves a witnessed event in storage, and for dialogue gestures
// records the utterance itself.
//
// The gestures:
//
//	Α  creation    - bring an entity into the graph
//	Λ  link        - relate two entities
//	Σ  synthesis   - merge two relations into one
//	Ω  resolution  - release the tension held by a relation
//	∇  enrichment  - assert an invariant relation
//	Φ  intention   - record a dialogue-born intention
package ritual

import (
	"errors"
	"fmt"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/graph"
	"github.com/A-Universum/SemanticDB/pkg/relation"
	"github.com/A-Universum/SemanticDB/pkg/storage"
	"github.com/A-Universum/SemanticDB/pkg/witness"
)

// ErrUnknownGesture is returned for a gesture outside the closed set.
var ErrUnknownGesture = errors.New("unknown gesture")

// Request describes one ritual.
type Request struct {
	Gesture   relation.Type
	Source    string
	Target    string
	Meaning   string
	Intention string
	Context   string
	Certainty float64 // 0 keeps the tensor default
	Speaker   string  // dialogue speaker for Φ
}

// Outcome reports what the ritual changed and where it was witnessed.
type Outcome struct {
	TensorID  string `json:"tensor_id,omitempty" yaml:"tensor_id,omitempty"`
	NodeID    string `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	EventID   string `json:"event_id" yaml:"event_id"`
	WitnessID string `json:"witness_id" yaml:"witness_id"`
}

// Engine performs rituals against one graph, journaling into one store.
type Engine struct {
	graph    *graph.Store
	store    storage.Store
	operator string
}

// NewEngine creates a ritual engine. The operator names who journals the
// rituals when a request carries no speaker; empty defaults to "system".
func NewEngine(g *graph.Store, st storage.Store, operator string) *Engine {
	if operator == "" {
		operator = "system"
	}
	return &Engine{graph: g, store: st, operator: operator}
}

// Perform dispatches one ritual. The graph mutation happens first; the
// witnessed event record follows, so a storage failure never leaves the
// event journaled without its graph effect.
func (e *Engine) Perform(req Request) (*Outcome, error) {
	if req.Context == "" {
		req.Context = "ritual"
	}

	out := &Outcome{}
	var err error
	switch req.Gesture {
	case relation.TypeAlpha:
		err = e.creation(req, out)
	case relation.TypeLambda:
		err = e.link(req, relation.TypeLambda, out)
	case relation.TypeSigma:
		err = e.synthesis(req, out)
	case relation.TypeOmega:
		err = e.resolution(req, out)
	case relation.TypeNabla:
		err = e.link(req, relation.TypeNabla, out)
	case relation.TypePhi:
		err = e.intention(req, out)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGesture, req.Gesture)
	}
	if err != nil {
		return nil, err
	}

	if err := e.journal(req, out); err != nil {
		return nil, fmt.Errorf("journal ritual: %w", err)
	}
	return out, nil
}

// creation brings the source entity into the graph. With a target it also
// asserts the creation relation.
func (e *Engine) creation(req Request, out *Outcome) error {
	nodeID, err := e.graph.AddNode(req.Source, graph.NodeAttrs{
		Creator: req.Speaker,
		Meaning: req.Meaning,
	})
	if err != nil {
		return err
	}
	out.NodeID = nodeID
	if req.Target != "" {
		return e.link(req, relation.TypeAlpha, out)
	}
	return nil
}

// link asserts a tensor of the given type between source and target.
func (e *Engine) link(req Request, typ relation.Type, out *Outcome) error {
	meaning := req.Meaning
	if meaning == "" {
		meaning = "relates to"
	}
	t := relation.New(req.Source, req.Target, typ, meaning)
	t.Intention = req.Intention
	if req.Certainty > 0 {
		t.Certainty = req.Certainty
		t.CertaintyByContext[relation.GenesisContext] = req.Certainty
	}
	id, err := e.graph.AddTensor(t, req.Context, true)
	if err != nil {
		return err
	}
	out.TensorID = id
	if stored := e.graph.GetTensorByID(id); stored != nil {
		if err := e.store.StoreTensor(stored.Record()); err != nil {
			return err
		}
	}
	return nil
}

// synthesis merges the two oldest tensors of one type on the pair into a
// single Σ record and inserts it alongside them.
func (e *Engine) synthesis(req Request, out *Outcome) error {
	slot := e.graph.TensorsBetween(req.Source, req.Target)
	if len(slot) < 2 {
		return fmt.Errorf("%w: synthesis needs two tensors between %s and %s",
			graph.ErrValidation, req.Source, req.Target)
	}
	merged, err := slot[0].MergeWith(slot[1])
	if err != nil {
		return err
	}
	id, err := e.graph.AddTensor(merged, req.Context, false)
	if err != nil {
		return err
	}
	out.TensorID = id
	return e.store.StoreTensor(merged.Record())
}

// resolution releases the tension the pair's first tensor holds in the
// ritual's context.
func (e *Engine) resolution(req Request, out *Outcome) error {
	slot := e.graph.TensorsBetween(req.Source, req.Target)
	if len(slot) == 0 {
		return fmt.Errorf("%w: no tensor between %s and %s",
			graph.ErrNotFound, req.Source, req.Target)
	}
	if err := e.graph.ResolveTension(slot[0].ID, req.Context); err != nil {
		return err
	}
	out.TensorID = slot[0].ID
	return e.store.StoreTensor(slot[0].Record())
}

// intention asserts a Φ tensor and records the utterance as a dialogue.
func (e *Engine) intention(req Request, out *Outcome) error {
	if err := e.link(req, relation.TypePhi, out); err != nil {
		return err
	}
	speaker := req.Speaker
	if speaker == "" {
		speaker = "system"
	}
	return e.store.StoreDialogue(&storage.Dialogue{
		Context: req.Context,
		Turns: []storage.Turn{{
			Speaker: speaker,
			Text:    req.Intention,
			At:      time.Now(),
		}},
	})
}

// journal attests the ritual and appends it to the event log. Tension and
// significance come from the touched tensor when the gesture produced one.
func (e *Engine) journal(req Request, out *Outcome) error {
	operator := req.Speaker
	if operator == "" {
		operator = e.operator
	}
	var affected []string
	for _, name := range []string{req.Source, req.Target} {
		if name != "" {
			affected = append(affected, name)
		}
	}
	result := out.TensorID
	if result == "" {
		result = out.NodeID
	}
	ev := &storage.EventRecord{
		Kind:      "ritual",
		Gesture:   string(req.Gesture),
		Operator:  operator,
		Source:    req.Source,
		Target:    req.Target,
		Meaning:   req.Meaning,
		Context:   req.Context,
		Result:    result,
		Affected:  affected,
		CreatedAt: time.Now(),
	}
	if t := e.graph.GetTensorByID(out.TensorID); t != nil {
		ev.Tension = t.Tension
		ev.Significance = t.CoherenceContribution
	}
	w, err := witness.Create("ritual", map[string]string{
		"gesture": string(req.Gesture),
		"source":  req.Source,
		"target":  req.Target,
		"meaning": req.Meaning,
		"context": req.Context,
		"tensor":  out.TensorID,
	})
	if err != nil {
		return err
	}
	ev.WitnessID = w.ID
	if err := e.store.StoreEvent(ev); err != nil {
		return err
	}
	out.EventID = ev.ID
	out.WitnessID = w.ID
	return nil
}
