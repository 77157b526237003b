package relation

import "time"

// Record is the flat serialized form of a Tensor, shared by the persistence
// collaborator, the document mirror and graph export.
type Record struct {
	ID        string `json:"id" yaml:"id"`
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Type      string `json:"type" yaml:"type"`
	Meaning   string `json:"meaning" yaml:"meaning"`
	Intention string `json:"intention,omitempty" yaml:"intention,omitempty"`

	Certainty             float64 `json:"certainty" yaml:"certainty"`
	Tension               float64 `json:"tension" yaml:"tension"`
	CoherenceContribution float64 `json:"coherence_contribution" yaml:"coherence_contribution"`

	CertaintyByContext map[string]float64 `json:"certainty_by_context" yaml:"certainty_by_context"`
	TensionByContext   map[string]float64 `json:"tension_by_context" yaml:"tension_by_context"`

	Status   string    `json:"status" yaml:"status"`
	Lifespan time.Time `json:"lifespan" yaml:"lifespan"`

	ActivationCount int       `json:"activation_count" yaml:"activation_count"`
	LastActivated   time.Time `json:"last_activated" yaml:"last_activated"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`

	ParentTensors []string `json:"parent_tensors,omitempty" yaml:"parent_tensors,omitempty"`
	ChildTensors  []string `json:"child_tensors,omitempty" yaml:"child_tensors,omitempty"`
	Suggested     bool     `json:"suggested" yaml:"suggested"`
}

// Record returns the serialized form of the tensor. Maps and slices are
// copied so the record can outlive the tensor.
func (t *Tensor) Record() *Record {
	r := &Record{
		ID:                    t.ID,
		Source:                t.Source,
		Target:                t.Target,
		Type:                  string(t.Type),
		Meaning:               t.Meaning,
		Intention:             t.Intention,
		Certainty:             t.Certainty,
		Tension:               t.Tension,
		CoherenceContribution: t.CoherenceContribution,
		CertaintyByContext:    make(map[string]float64, len(t.CertaintyByContext)),
		TensionByContext:      make(map[string]float64, len(t.TensionByContext)),
		Status:                string(t.Status),
		Lifespan:              t.Lifespan,
		ActivationCount:       t.ActivationCount,
		LastActivated:         t.LastActivated,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		ParentTensors:         append([]string(nil), t.ParentTensors...),
		ChildTensors:          append([]string(nil), t.ChildTensors...),
		Suggested:             t.Suggested,
	}
	for k, v := range t.CertaintyByContext {
		r.CertaintyByContext[k] = v
	}
	for k, v := range t.TensionByContext {
		r.TensionByContext[k] = v
	}
	return r
}

// FromRecord restores a tensor from its serialized form.
func FromRecord(r *Record) *Tensor {
	t := &Tensor{
		ID:                 r.ID,
		Source:             r.Source,
		Target:             r.Target,
		Type:               Type(r.Type),
		Meaning:            r.Meaning,
		Intention:          r.Intention,
		Certainty:          r.Certainty,
		Tension:            r.Tension,
		CertaintyByContext: make(map[string]float64, len(r.CertaintyByContext)),
		TensionByContext:   make(map[string]float64, len(r.TensionByContext)),
		Status:             Status(r.Status),
		Lifespan:           r.Lifespan,
		ActivationCount:    r.ActivationCount,
		LastActivated:      r.LastActivated,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ParentTensors:      append([]string(nil), r.ParentTensors...),
		ChildTensors:       append([]string(nil), r.ChildTensors...),
		Suggested:          r.Suggested,
	}
	if t.ID == "" {
		t.ID = NewWeightID("HW")
	}
	if len(t.CertaintyByContext) == 0 {
		t.CertaintyByContext[GenesisContext] = t.Certainty
	}
	for k, v := range r.CertaintyByContext {
		t.CertaintyByContext[k] = v
	}
	for k, v := range r.TensionByContext {
		t.TensionByContext[k] = v
	}
	t.recalculate()
	return t
}
