// Package semanticdb is the front door: one handle owning the living graph,
// its persistence collaborator, the coherence and dreaming engines, the
// ritual dispatcher and the query engine.
//
// Example Usage:
//
//	db, err := semanticdb.Open(semanticdb.Config{GraphName: "genesis"})
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	db.PerformRitual(ritual.Request{
//		Gesture: relation.TypeLambda,
//		Source:  "question",
//		Target:  "answer",
//		Meaning: "leads to",
//	})
//
//	result, _ := db.Query(`(EXPLORE :entity question :depth 1)`)
//	fmt.Println(result.Nodes)
package semanticdb

import (
	"fmt"
	"sync"
	"time"

	"github.com/A-Universum/SemanticDB/pkg/coherence"
	"github.com/A-Universum/SemanticDB/pkg/dreaming"
	"github.com/A-Universum/SemanticDB/pkg/graph"
	"github.com/A-Universum/SemanticDB/pkg/mirror"
	"github.com/A-Universum/SemanticDB/pkg/relation"
	"github.com/A-Universum/SemanticDB/pkg/ritual"
	"github.com/A-Universum/SemanticDB/pkg/rql"
	"github.com/A-Universum/SemanticDB/pkg/storage"
	"github.com/A-Universum/SemanticDB/pkg/witness"
)

// Config selects the database's collaborators. The zero value is a fully
// in-memory database named "semanticdb" with no mirror.
type Config struct {
	// GraphName names the living graph in exports.
	GraphName string
	// DataDir, when set, backs the event log and tensor records with a
	// Badger database at this path. Empty keeps everything in memory.
	DataDir string
	// MirrorDir, when set, writes cycle documents as YAML under this path.
	MirrorDir string
	// MirrorVerbose logs mirror writes.
	MirrorVerbose bool
	// Operator identifies who drives this database in exports and events.
	// Defaults to "system".
	Operator string
}

// DB is one open semantic database.
type DB struct {
	mu     sync.Mutex
	cfg    Config
	cycles int

	graph     *graph.Store
	store     storage.Store
	mirror    *mirror.Mirror
	coherence *coherence.Engine
	dreaming  *dreaming.Engine
	rituals   *ritual.Engine
	queries   *rql.Engine
}

// CycleDocument is one exported development cycle: the operator and the
// caller's summary, the full graph snapshot, the coherence measurement that
// closed the cycle, the dreaming counters and an attestation over the
// snapshot.
type CycleDocument struct {
	Cycle     int              `json:"cycle" yaml:"cycle"`
	Operator  string           `json:"operator" yaml:"operator"`
	Summary   string           `json:"summary,omitempty" yaml:"summary,omitempty"`
	Graph     *graph.Document  `json:"graph" yaml:"graph"`
	Coherence coherence.Report `json:"coherence" yaml:"coherence"`
	Dreaming  dreaming.Stats   `json:"dreaming" yaml:"dreaming"`
	Witness   *witness.Record  `json:"witness" yaml:"witness"`
}

// Statistics is the live summary of one database.
type Statistics struct {
	GraphName        string    `json:"graph_name" yaml:"graph_name"`
	Nodes            int       `json:"nodes" yaml:"nodes"`
	Tensors          int       `json:"tensors" yaml:"tensors"`
	Contexts         int       `json:"contexts" yaml:"contexts"`
	ConflictZones    int       `json:"conflict_zones" yaml:"conflict_zones"`
	TotalActivations int       `json:"total_activations" yaml:"total_activations"`
	Coherence        float64   `json:"coherence" yaml:"coherence"`
	CoherenceStatus  string    `json:"coherence_status" yaml:"coherence_status"`
	LastDreaming     time.Time `json:"last_dreaming" yaml:"last_dreaming"`
	ExportedCycles   int       `json:"exported_cycles" yaml:"exported_cycles"`
}

// Open creates a database from the config.
func Open(cfg Config) (*DB, error) {
	if cfg.GraphName == "" {
		cfg.GraphName = "semanticdb"
	}
	if cfg.Operator == "" {
		cfg.Operator = "system"
	}

	var store storage.Store
	if cfg.DataDir != "" {
		bs, err := storage.OpenBadger(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store = bs
	} else {
		store = storage.NewMemoryStore()
	}

	var mir *mirror.Mirror
	if cfg.MirrorDir != "" {
		m, err := mirror.New(cfg.MirrorDir)
		if err != nil {
			store.Close()
			return nil, err
		}
		m.SetVerbose(cfg.MirrorVerbose)
		mir = m
	}

	g := graph.NewStore(cfg.GraphName)
	ce := coherence.NewEngine(g)
	return &DB{
		cfg:       cfg,
		graph:     g,
		store:     store,
		mirror:    mir,
		coherence: ce,
		dreaming:  dreaming.NewEngine(g),
		rituals:   ritual.NewEngine(g, store, cfg.Operator),
		queries:   rql.NewEngine(g, ce),
	}, nil
}

// Graph exposes the living graph for direct reads.
func (db *DB) Graph() *graph.Store { return db.graph }

// PerformRitual dispatches one gesture through the ritual engine.
func (db *DB) PerformRitual(req ritual.Request) (*ritual.Outcome, error) {
	return db.rituals.Perform(req)
}

// Query parses and executes one RQL form.
func (db *DB) Query(input string) (*rql.Result, error) {
	return db.queries.Execute(input)
}

// DreamingSession runs link prediction and returns the hypotheses. Nothing
// is integrated; pass accepted hypotheses to AcceptSuggestion.
func (db *DB) DreamingSession(maxSuggestions int) []*relation.Tensor {
	return db.dreaming.Dream(maxSuggestions)
}

// AcceptSuggestion integrates one hypothesis into the graph under the given
// context (the dream-accepted context when empty), persists its record and
// journals the acceptance.
func (db *DB) AcceptSuggestion(t *relation.Tensor, contextID string) (string, error) {
	id, err := db.dreaming.AcceptSuggestion(t, contextID)
	if err != nil {
		return "", err
	}
	if contextID == "" {
		contextID = graph.ContextDreamAccepted
	}
	if stored := db.graph.GetTensorByID(id); stored != nil {
		if err := db.store.StoreTensor(stored.Record()); err != nil {
			return id, err
		}
	}
	err = db.store.StoreEvent(&storage.EventRecord{
		Kind:     "dream_accepted",
		Operator: db.cfg.Operator,
		Source:   t.Source,
		Target:   t.Target,
		Meaning:  t.Meaning,
		Context:  contextID,
	})
	return id, err
}

// Diagnose runs the full coherence checkup.
func (db *DB) Diagnose() coherence.Diagnosis {
	return db.coherence.Diagnose()
}

// Coherence exposes the coherence engine for trend queries.
func (db *DB) Coherence() *coherence.Engine { return db.coherence }

// ExportCycle closes one development cycle: snapshot the graph, measure
// coherence, attest the snapshot, journal the export and - when a mirror is
// configured - write the document as YAML. The summary is the caller's own
// account of the cycle, carried opaquely. Returns the document and the
// mirror path ("" without a mirror).
func (db *DB) ExportCycle(summary string) (*CycleDocument, string, error) {
	db.mu.Lock()
	db.cycles++
	cycle := db.cycles
	db.mu.Unlock()

	doc := &CycleDocument{
		Cycle:     cycle,
		Operator:  db.cfg.Operator,
		Summary:   summary,
		Graph:     db.graph.Export(),
		Coherence: db.coherence.CalculateGlobalCoherence(),
		Dreaming:  db.dreaming.Stats(),
	}
	w, err := witness.Create("cycle_export", doc.Graph)
	if err != nil {
		return nil, "", err
	}
	doc.Witness = w

	if err := db.store.StoreEvent(&storage.EventRecord{
		Kind:      "cycle_export",
		Operator:  db.cfg.Operator,
		Meaning:   fmt.Sprintf("cycle %d: %d nodes, %d tensors", cycle, doc.Graph.Meta.NodeCount, doc.Graph.Meta.TensorCount),
		WitnessID: w.ID,
	}); err != nil {
		return nil, "", err
	}

	path := ""
	if db.mirror != nil {
		path, err = db.mirror.WriteDocument(fmt.Sprintf("cycle_%04d", cycle), doc)
		if err != nil {
			return nil, "", err
		}
	}
	return doc, path, nil
}

// ImportFromDocument replaces the graph with a previously exported cycle.
// The document's attestation is verified before anything is touched.
func (db *DB) ImportFromDocument(doc *CycleDocument) error {
	if doc == nil || doc.Graph == nil {
		return fmt.Errorf("%w: nil cycle document", graph.ErrValidation)
	}
	if doc.Witness != nil {
		ok, err := witness.Verify(doc.Witness, doc.Graph)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: cycle document failed witness verification", graph.ErrValidation)
		}
	}
	if err := db.graph.Import(doc.Graph); err != nil {
		return err
	}
	return db.store.StoreEvent(&storage.EventRecord{
		Kind:     "cycle_import",
		Operator: db.cfg.Operator,
		Meaning:  fmt.Sprintf("restored cycle %d", doc.Cycle),
	})
}

// Statistics summarizes the database now. The coherence figure is a fresh
// measurement.
func (db *DB) Statistics() Statistics {
	report := db.coherence.CalculateGlobalCoherence()
	gstats := db.graph.Stats()

	db.mu.Lock()
	cycles := db.cycles
	db.mu.Unlock()

	return Statistics{
		GraphName:        db.graph.Name(),
		Nodes:            db.graph.NodeCount(),
		Tensors:          db.graph.EdgeCount(),
		Contexts:         len(db.graph.Contexts()),
		ConflictZones:    len(db.graph.ConflictZones()),
		TotalActivations: gstats.TotalActivations,
		Coherence:        report.Score,
		CoherenceStatus:  report.Status,
		LastDreaming:     db.dreaming.Stats().LastRun,
		ExportedCycles:   cycles,
	}
}

// Close releases the storage engine. The in-memory graph simply goes out of
// scope with the handle.
func (db *DB) Close() error {
	return db.store.Close()
}
