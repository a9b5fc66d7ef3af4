package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindarch-ai/mindarch/pkg/types"
)

func TestFinalConfidenceBounds(t *testing.T) {
	e := NewEvaluator(DefaultConfig().Evaluator)

	cases := []struct {
		model float64
		sig   TripleSignals
	}{
		{0, TripleSignals{}},
		{1, TripleSignals{Lexical: 1, Overlap: 1, Segments: 10}},
		{0.5, TripleSignals{Lexical: 0.3, Overlap: 0.7, Segments: 2}},
		{2, TripleSignals{Lexical: -1, Overlap: 5, Segments: 1}}, // out-of-range inputs clamp
	}
	for _, c := range cases {
		got := e.FinalConfidence(c.model, c.sig)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestCorroborationRaisesConfidenceMonotonically(t *testing.T) {
	e := NewEvaluator(DefaultConfig().Evaluator)

	sig := TripleSignals{Lexical: 0.5, Overlap: 0.5}
	prev := e.FinalConfidence(0.6, sig)
	for n := 2; n <= 6; n++ {
		sig.Segments = n
		got := e.FinalConfidence(0.6, sig)
		assert.Greater(t, got, prev, "segments=%d", n)
		assert.LessOrEqual(t, got, 1.0)
		prev = got
	}
}

func TestDisposition(t *testing.T) {
	e := NewEvaluator(EvaluatorConfig{AcceptThreshold: 0.7, DiscardThreshold: 0.4})

	assert.Equal(t, DISPOSITION_ACCEPT, e.Disposition(0.7))
	assert.Equal(t, DISPOSITION_ACCEPT, e.Disposition(0.95))
	assert.Equal(t, DISPOSITION_FLAG, e.Disposition(0.5))
	assert.Equal(t, DISPOSITION_FLAG, e.Disposition(0.4))
	assert.Equal(t, DISPOSITION_DISCARD, e.Disposition(0.39))
}

func TestContextOverlap(t *testing.T) {
	segment := "Alice founded Acme in 2019. Acme is a company."

	assert.Equal(t, 1.0, ContextOverlap("Alice founded Acme", segment))
	assert.Equal(t, 0.0, ContextOverlap("", segment))
	assert.Greater(t, ContextOverlap("Acme was started by Alice", segment), 0.0)
}

func TestUnitQuality(t *testing.T) {
	e := NewEvaluator(DefaultConfig().Evaluator)

	full := &types.KnowledgeUnit{
		Title:         "Acme",
		Content:       "a company founded by Alice",
		UnitType:      types.UNIT_TYPE_ENTITY,
		CanonicalName: "Acme",
		Tags:          []string{"company"},
		Knowledge:     types.Metadata(`{"domain":"business"}`),
	}
	sparse := &types.KnowledgeUnit{Title: "x", Content: "y"}

	qFull := e.UnitQuality(full, 0.9)
	qSparse := e.UnitQuality(sparse, 0.9)
	assert.Greater(t, qFull, qSparse)
	assert.LessOrEqual(t, qFull, 1.0)
	assert.GreaterOrEqual(t, qSparse, 0.0)
}

func TestGraphReport(t *testing.T) {
	e := NewEvaluator(DefaultConfig().Evaluator)
	graph := &types.KnowledgeGraph{ID: "g1", Name: "test"}

	t.Run("empty graph", func(t *testing.T) {
		report := e.GraphReport(graph, nil, nil)
		assert.Equal(t, 0.0, report.QualityScore)
		assert.NotEmpty(t, report.Suggestions)
	})

	t.Run("connected graph", func(t *testing.T) {
		units := []types.KnowledgeUnit{
			{ID: "u1", QualityScore: 0.8, Tags: []string{"people"}},
			{ID: "u2", QualityScore: 0.9, Tags: []string{"business"}},
		}
		triples := []types.SemanticTriple{
			{SubjectID: "u1", ObjectID: "u2", Confidence: 0.85},
		}
		report := e.GraphReport(graph, units, triples)
		assert.Greater(t, report.QualityScore, 0.0)
		assert.LessOrEqual(t, report.QualityScore, 100.0)
		assert.Equal(t, 1.0, report.Connectivity)
		assert.Len(t, report.Domains, 2)
	})

	t.Run("disconnected units produce a suggestion", func(t *testing.T) {
		units := []types.KnowledgeUnit{
			{ID: "u1", QualityScore: 0.8},
			{ID: "u2", QualityScore: 0.9},
			{ID: "u3", QualityScore: 0.7},
		}
		report := e.GraphReport(graph, units, nil)
		assert.NotEmpty(t, report.Suggestions)
		assert.Equal(t, 0.0, report.Connectivity)
	})
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.Resolver.EscalateThreshold = 0.9 // above auto-merge
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Evaluator.DiscardThreshold = 0.8 // above accept
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Resolver.AutoMergeThreshold = 1.5
	assert.Error(t, bad.Validate())
}
