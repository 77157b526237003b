package rql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-Universum/SemanticDB/pkg/coherence"
	"github.com/A-Universum/SemanticDB/pkg/graph"
	"github.com/A-Universum/SemanticDB/pkg/relation"
)

// testGraph builds a small knowledge graph:
//
//	question → answer → insight, question → insight, question → doubt
func testGraph(t *testing.T) *graph.Store {
	t.Helper()
	g := graph.NewStore("test")
	for _, edge := range [][3]string{
		{"question", "answer", "leads to"},
		{"answer", "insight", "crystallizes into"},
		{"question", "insight", "sometimes jumps to"},
		{"question", "doubt", "breeds"},
	} {
		tensor := relation.New(edge[0], edge[1], relation.TypeLambda, edge[2])
		tensor.Certainty = 0.85
		tensor.CertaintyByContext[relation.GenesisContext] = 0.85
		_, err := g.AddTensor(tensor, "seed", true)
		require.NoError(t, err)
	}
	return g
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	g := testGraph(t)
	return NewEngine(g, coherence.NewEngine(g))
}

func TestRunPhi(t *testing.T) {
	e := testEngine(t)

	t.Run("matches nodes by intention keywords", func(t *testing.T) {
		res, err := e.Execute(`(Φ :intention "where does an ANSWER become insight")`)
		require.NoError(t, err)

		require.Equal(t, KindPhi, res.Kind)
		names := matchNames(res.Matches)
		assert.Contains(t, names, "answer")
		assert.Contains(t, names, "insight")
		assert.NotContains(t, names, "doubt")
		assert.Greater(t, res.Coherence, 0.0)
	})

	t.Run("stop words and short words carry no resonance", func(t *testing.T) {
		res, err := e.Execute(`(Φ :intention "what does this do")`)
		require.NoError(t, err)
		assert.Empty(t, res.Matches)
	})

	t.Run("matches are scored and ordered", func(t *testing.T) {
		res, err := e.Execute(`(Φ :intention "question answer insight doubt")`)
		require.NoError(t, err)
		require.NotEmpty(t, res.Matches)
		for i := 1; i < len(res.Matches); i++ {
			assert.GreaterOrEqual(t, res.Matches[i-1].Score, res.Matches[i].Score)
		}
	})

	t.Run("blind spots and meta are carried through", func(t *testing.T) {
		res, err := e.Execute(`(Φ :intention "answer" :blind_spots "time, causality" :meta reflective)`)
		require.NoError(t, err)
		assert.Equal(t, []string{"time", "causality"}, res.BlindSpots)
		assert.Equal(t, []string{"reflective"}, res.Meta)
	})

	t.Run("dialogue context is echoed back", func(t *testing.T) {
		res, err := e.Execute(`(Φ :intention "answer" :context dialogue-1)`)
		require.NoError(t, err)
		assert.Equal(t, "dialogue-1", res.Context)

		res, err = e.Execute(`(Φ :intention "answer")`)
		require.NoError(t, err)
		assert.Empty(t, res.Context)
	})

	t.Run("requires the intention parameter", func(t *testing.T) {
		_, err := e.Execute(`(Φ :context dialogue-1)`)
		assert.ErrorIs(t, err, ErrMissingParameter)
	})
}

func TestRunQuery(t *testing.T) {
	e := testEngine(t)

	t.Run("finds coherent paths", func(t *testing.T) {
		res, err := e.Execute(`(QUERY :from question :to insight)`)
		require.NoError(t, err)

		require.Equal(t, KindQuery, res.Kind)
		require.Len(t, res.Paths, 2)

		// Discovery order: the two-hop path through answer comes first.
		assert.Equal(t, []string{"question", "answer", "insight"}, res.Paths[0].Nodes)
		assert.Equal(t, []string{"question", "insight"}, res.Paths[1].Nodes)
		for _, p := range res.Paths {
			assert.Greater(t, p.Confidence, 0.5)
		}
	})

	t.Run("coherence floor filters paths", func(t *testing.T) {
		res, err := e.Execute(`(QUERY :from question :to insight :min_coherence 0.99)`)
		require.NoError(t, err)
		assert.Empty(t, res.Paths)
	})

	t.Run("max length bounds the search", func(t *testing.T) {
		res, err := e.Execute(`(QUERY :from question :to insight :max_length 1)`)
		require.NoError(t, err)
		require.Len(t, res.Paths, 1)
		assert.Equal(t, []string{"question", "insight"}, res.Paths[0].Nodes)
	})

	t.Run("requires both endpoints", func(t *testing.T) {
		_, err := e.Execute(`(QUERY :from question)`)
		assert.ErrorIs(t, err, ErrMissingParameter)
	})
}

func TestRunExplore(t *testing.T) {
	e := testEngine(t)

	t.Run("one hop", func(t *testing.T) {
		res, err := e.Execute(`(EXPLORE :entity answer :depth 1)`)
		require.NoError(t, err)

		assert.Equal(t, KindExplore, res.Kind)
		assert.Equal(t, []string{"insight", "question"}, res.Nodes)
	})

	t.Run("default depth reaches the second hop", func(t *testing.T) {
		res, err := e.Execute(`(EXPLORE :entity doubt)`)
		require.NoError(t, err)
		assert.Equal(t, []string{"answer", "insight", "question"}, res.Nodes)
	})

	t.Run("max_length is an alias for depth", func(t *testing.T) {
		res, err := e.Execute(`(EXPLORE :entity doubt :max_length 1)`)
		require.NoError(t, err)
		assert.Equal(t, []string{"question"}, res.Nodes)
	})

	t.Run("depth is clamped", func(t *testing.T) {
		res, err := e.Execute(`(EXPLORE :entity doubt :depth 99)`)
		require.NoError(t, err)
		assert.Equal(t, []string{"answer", "insight", "question"}, res.Nodes)
	})

	t.Run("unknown entity explores nothing", func(t *testing.T) {
		res, err := e.Execute(`(EXPLORE :entity ghost)`)
		require.NoError(t, err)
		assert.Empty(t, res.Nodes)
	})
}

func TestRunContext(t *testing.T) {
	e := testEngine(t)

	t.Run("matches node identifiers", func(t *testing.T) {
		res, err := e.Execute(`(CONTEXT :keyword QUEST)`)
		require.NoError(t, err)

		assert.Equal(t, KindContext, res.Kind)
		assert.Equal(t, []string{"question"}, res.Nodes)
	})

	t.Run("matches tensor meanings", func(t *testing.T) {
		res, err := e.Execute(`(CONTEXT :keyword leads)`)
		require.NoError(t, err)

		assert.Empty(t, res.Nodes)
		assert.Equal(t, []string{"question [leads to] answer"}, res.Facts)
	})

	t.Run("context is an alias for keyword", func(t *testing.T) {
		res, err := e.Execute(`(CONTEXT :context doubt)`)
		require.NoError(t, err)
		assert.Equal(t, []string{"doubt"}, res.Nodes)
	})

	t.Run("caps the combined results", func(t *testing.T) {
		g := graph.NewStore("busy")
		for i := 0; i < 15; i++ {
			name := string(rune('a' + i))
			_, err := g.AddTensor(relation.New("hub", name, relation.TypeLambda, "spokes to "+name), "c", true)
			require.NoError(t, err)
		}

		res, err := NewEngine(g, nil).Execute(`(CONTEXT :keyword spokes)`)
		require.NoError(t, err)
		assert.Empty(t, res.Nodes)
		assert.Len(t, res.Facts, 10)
	})

	t.Run("requires a keyword", func(t *testing.T) {
		_, err := e.Execute(`(CONTEXT :depth 2)`)
		assert.ErrorIs(t, err, ErrMissingParameter)
	})
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords("Where does the Answer, come from?")
	assert.Equal(t, []string{"answer", "come"}, keywords)
}

func matchNames(matches []NodeMatch) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	return names
}
