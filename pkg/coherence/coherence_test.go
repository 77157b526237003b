package coherence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-Universum/SemanticDB/pkg/graph"
	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// weakLink inserts a tensor with a chosen starting certainty.
func weakLink(t *testing.T, g *graph.Store, source, target, meaning string, certainty float64) string {
	t.Helper()
	tensor := relation.New(source, target, relation.TypeLambda, meaning)
	tensor.Certainty = certainty
	tensor.CertaintyByContext[relation.GenesisContext] = certainty
	id, err := g.AddTensor(tensor, "c", true)
	require.NoError(t, err)
	return id
}

func TestCalculateGlobalCoherence(t *testing.T) {
	t.Run("empty graph is perfectly coherent", func(t *testing.T) {
		e := NewEngine(graph.NewStore("empty"))
		report := e.CalculateGlobalCoherence()

		assert.Equal(t, 1.0, report.Score)
		assert.Equal(t, 1.0, report.Structural)
		assert.Equal(t, 1.0, report.Semantic)
		assert.Equal(t, StatusEmpty, report.Status)

		// An empty measurement leaves no history.
		assert.Empty(t, e.History())
	})

	t.Run("edgeless graph is semantically unblemished", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddNode("alone", graph.NodeAttrs{})

		report := NewEngine(g).CalculateGlobalCoherence()
		assert.Equal(t, 1.0, report.Semantic)
	})

	t.Run("healthy connected graph", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)

		report := NewEngine(g).CalculateGlobalCoherence()

		assert.Greater(t, report.Score, 0.7)
		assert.Equal(t, StatusHealthy, report.Status)
		assert.Equal(t, 2, report.NodeCount)
		assert.Equal(t, 1, report.TensorCount)
		assert.Zero(t, report.TensionPenalty)
	})

	t.Run("fragmentation and tension drag the score down", func(t *testing.T) {
		g := graph.NewStore("test")
		id, _ := g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		for i := 0; i < 5; i++ {
			g.AddNode(string(rune('p'+i)), graph.NodeAttrs{})
		}
		g.GetTensorByID(id).UpdateFromContext("clash", 0.5, 0.95)

		report := NewEngine(g).CalculateGlobalCoherence()

		assert.Less(t, report.Score, 0.6)
		assert.Greater(t, report.TensionPenalty, 0.0)
	})

	t.Run("all values stay in range", func(t *testing.T) {
		g := graph.NewStore("test")
		id := weakLink(t, g, "a", "b", "ab", 0.1)
		g.GetTensorByID(id).UpdateFromContext("clash", 0.1, 0.95)
		for i := 0; i < 10; i++ {
			g.AddNode(string(rune('p'+i)), graph.NodeAttrs{})
		}

		report := NewEngine(g).CalculateGlobalCoherence()
		for name, v := range map[string]float64{
			"score":      report.Score,
			"structural": report.Structural,
			"semantic":   report.Semantic,
			"penalty":    report.TensionPenalty,
		} {
			assert.GreaterOrEqual(t, v, 0.0, name)
			assert.LessOrEqual(t, v, 1.0, name)
		}
	})

	t.Run("measurements accumulate in history", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		e := NewEngine(g)

		e.CalculateGlobalCoherence()
		e.CalculateGlobalCoherence()

		assert.Len(t, e.History(), 2)
	})
}

func TestStatusBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.9, StatusHealthy},
		{0.7, StatusHealthy},
		{0.5, StatusWarning},
		{0.4, StatusWarning},
		{0.3, StatusCrisis},
		{0.2, StatusCrisis},
		{0.1, StatusCollapse},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.score), "score %.2f", tt.score)
	}
}

func TestDetectTensions(t *testing.T) {
	t.Run("quiet graph has no findings", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)

		assert.Empty(t, NewEngine(g).DetectTensions())
	})

	t.Run("meaning conflict", func(t *testing.T) {
		g := graph.NewStore("test")
		id1, _ := g.AddTensor(relation.New("cat", "dog", relation.TypeLambda, "loves"), "c", true)
		id2, _ := g.AddTensor(relation.New("cat", "dog", relation.TypeLambda, "hates"), "c", true)

		findings := NewEngine(g).DetectTensions()
		require.Len(t, findings, 1)
		assert.Equal(t, FindingMeaningConflict, findings[0].Kind)
		assert.Equal(t, "high", findings[0].Severity)
		assert.ElementsMatch(t, []string{id1, id2}, findings[0].Tensors)
	})

	t.Run("low-certainty disagreement is not a conflict", func(t *testing.T) {
		g := graph.NewStore("test")
		weakLink(t, g, "cat", "dog", "loves", 0.4)
		weakLink(t, g, "cat", "dog", "hates", 0.4)

		for _, f := range NewEngine(g).DetectTensions() {
			assert.NotEqual(t, FindingMeaningConflict, f.Kind)
		}
	})

	t.Run("restated meaning is not a conflict", func(t *testing.T) {
		g := graph.NewStore("test")
		// Case and whitespace variants the store would fold together; here
		// they are stored side by side without merging.
		g.AddTensor(relation.New("cat", "dog", relation.TypeLambda, "loves"), "c", false)
		g.AddTensor(relation.New("cat", "dog", relation.TypeLambda, " Loves "), "c", false)

		for _, f := range NewEngine(g).DetectTensions() {
			assert.NotEqual(t, FindingMeaningConflict, f.Kind)
		}
	})

	t.Run("tense cycle", func(t *testing.T) {
		g := graph.NewStore("test")
		var ids []string
		for _, hop := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}} {
			id, _ := g.AddTensor(relation.New(hop[0], hop[1], relation.TypeLambda, hop[0]+hop[1]), "c", true)
			g.GetTensorByID(id).UpdateFromContext("clash", 0.5, 0.8)
			ids = append(ids, id)
		}

		findings := NewEngine(g).DetectTensions()
		require.Len(t, findings, 1)
		assert.Equal(t, FindingTenseCycle, findings[0].Kind)
		assert.Equal(t, "medium", findings[0].Severity)
		assert.ElementsMatch(t, ids, findings[0].Tensors)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, findings[0].Nodes)
	})

	t.Run("two-node cycles are never tense cycles", func(t *testing.T) {
		g := graph.NewStore("test")
		id, _ := g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		g.AddTensor(relation.New("b", "a", relation.TypeLambda, "ba"), "c", true)
		g.GetTensorByID(id).UpdateFromContext("clash", 0.5, 0.95)

		for _, f := range NewEngine(g).DetectTensions() {
			assert.NotEqual(t, FindingTenseCycle, f.Kind)
		}
	})

	t.Run("calm cycles are not findings", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		g.AddTensor(relation.New("b", "c", relation.TypeLambda, "bc"), "c", true)
		g.AddTensor(relation.New("c", "a", relation.TypeLambda, "ca"), "c", true)

		assert.Empty(t, NewEngine(g).DetectTensions())
	})

	t.Run("isolation", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		g.AddNode("hermit", graph.NodeAttrs{})
		g.AddNode("ghost", graph.NodeAttrs{})

		findings := NewEngine(g).DetectTensions()
		require.Len(t, findings, 1)
		assert.Equal(t, FindingIsolation, findings[0].Kind)
		assert.Equal(t, "low", findings[0].Severity)
		assert.Equal(t, []string{"ghost", "hermit"}, findings[0].Nodes)
	})

	t.Run("findings land in the tension log", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		g.AddNode("hermit", graph.NodeAttrs{})
		e := NewEngine(g)

		e.DetectTensions()
		e.DetectTensions()

		assert.Len(t, e.TensionLog(), 2)
	})
}

func TestGetCoherenceTrend(t *testing.T) {
	t.Run("too few samples", func(t *testing.T) {
		g := graph.NewStore("test")
		e := NewEngine(g)
		assert.Equal(t, TrendInsufficientData, e.GetCoherenceTrend(time.Hour))

		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		e.CalculateGlobalCoherence()
		assert.Equal(t, TrendInsufficientData, e.GetCoherenceTrend(time.Hour))
	})

	t.Run("stable when nothing changes", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		e := NewEngine(g)

		e.CalculateGlobalCoherence()
		e.CalculateGlobalCoherence()

		assert.Equal(t, TrendStable, e.GetCoherenceTrend(time.Hour))
	})

	t.Run("improving after repair", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		g.AddTensor(relation.New("c", "d", relation.TypeLambda, "cd"), "c", true)
		e := NewEngine(g)
		e.CalculateGlobalCoherence()

		// Bridging the two components lifts the structural score.
		g.AddTensor(relation.New("b", "c", relation.TypeLambda, "bc"), "c", true)
		e.CalculateGlobalCoherence()

		assert.Equal(t, TrendImproving, e.GetCoherenceTrend(time.Hour))
	})

	t.Run("degrading under strain", func(t *testing.T) {
		g := graph.NewStore("test")
		id, _ := g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		e := NewEngine(g)
		e.CalculateGlobalCoherence()

		g.GetTensorByID(id).UpdateFromContext("clash", 0.5, 0.95)
		for i := 0; i < 5; i++ {
			g.AddNode(string(rune('p'+i)), graph.NodeAttrs{})
		}
		e.CalculateGlobalCoherence()

		assert.Equal(t, TrendDegrading, e.GetCoherenceTrend(time.Hour))
	})
}

func TestDiagnose(t *testing.T) {
	t.Run("healthy graph needs nothing", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)

		diag := NewEngine(g).Diagnose()

		assert.Equal(t, StatusHealthy, diag.Report.Status)
		assert.Empty(t, diag.Findings)
		assert.Equal(t, []string{"no action required"}, diag.Recommendations)
	})

	t.Run("conflicted graph is sent to dialogue", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("cat", "dog", relation.TypeLambda, "loves"), "c", true)
		g.AddTensor(relation.New("cat", "dog", relation.TypeLambda, "hates"), "c", true)

		diag := NewEngine(g).Diagnose()

		require.NotEmpty(t, diag.Findings)
		assert.Contains(t, diag.Recommendations, "resolve the meaning conflicts via dialogue")
	})

	t.Run("fragmented graph is told to reconnect", func(t *testing.T) {
		g := graph.NewStore("test")
		g.AddTensor(relation.New("a", "b", relation.TypeLambda, "ab"), "c", true)
		for i := 0; i < 6; i++ {
			g.AddNode(string(rune('p'+i)), graph.NodeAttrs{})
		}

		diag := NewEngine(g).Diagnose()

		assert.Contains(t, diag.Recommendations, "create connections: too many entities stand alone")
	})

	t.Run("crisis asks for a boundary", func(t *testing.T) {
		g := graph.NewStore("test")
		id := weakLink(t, g, "a", "b", "ab", 0.1)
		g.GetTensorByID(id).UpdateFromContext("clash", 0.1, 0.95)
		for i := 0; i < 10; i++ {
			g.AddNode(string(rune('p'+i)), graph.NodeAttrs{})
		}

		diag := NewEngine(g).Diagnose()

		require.Equal(t, StatusCrisis, diag.Report.Status)
		found := false
		for _, rec := range diag.Recommendations {
			if strings.HasPrefix(rec, "acknowledge a boundary") {
				found = true
			}
		}
		assert.True(t, found, "recommendations: %v", diag.Recommendations)
	})
}
