package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func seedUnit(s *fakeStorage, graphID, canonical string, unitType types.UnitType, aliases ...string) *types.KnowledgeUnit {
	u := &types.KnowledgeUnit{
		ID:            "u-" + canonical,
		GraphID:       graphID,
		Title:         canonical,
		Content:       canonical + " content",
		UnitType:      unitType,
		CanonicalName: canonical,
		Aliases:       aliases,
		Status:        types.UNIT_STATUS_CONFIRMED,
	}
	s.units[u.ID] = u
	return u
}

func failingGateway() *fakeGateway {
	return &fakeGateway{complete: func(prompt string) (string, error) {
		return "", ai.ErrModelUnavailable
	}}
}

func TestResolveExactCanonicalAlwaysMerges(t *testing.T) {
	storage := newFakeStorage()
	seedUnit(storage, "g1", "Acme", types.UNIT_TYPE_ENTITY)

	// even with a dead gateway the exact match never escalates
	r := NewEntityResolver(storage, failingGateway(), nil, DefaultConfig().Resolver)

	job := testJob("g1", "text")
	resolved, warnings, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Acme", Content: "a company", UnitType: types.UNIT_TYPE_ENTITY, CanonicalName: "Acme"},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, types.RESOLUTION_MERGE, resolved[0].Resolution.Decision)
	assert.Equal(t, "u-Acme", resolved[0].Resolution.TargetID)
	assert.Equal(t, 1.0, resolved[0].Resolution.Score)
}

func TestResolveSharedAliasAutoMerges(t *testing.T) {
	storage := newFakeStorage()
	seedUnit(storage, "g1", "Acme", types.UNIT_TYPE_ENTITY)

	r := NewEntityResolver(storage, failingGateway(), nil, DefaultConfig().Resolver)

	job := testJob("g1", "text")
	resolved, _, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Acme Corp", Content: "a company", UnitType: types.UNIT_TYPE_ENTITY, CanonicalName: "Acme Corp", Aliases: []string{"Acme"}},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, types.RESOLUTION_MERGE, resolved[0].Resolution.Decision)
	assert.Equal(t, "u-Acme", resolved[0].Resolution.TargetID)

	// the target absorbed the candidate's naming surface
	assert.Contains(t, []string(resolved[0].Unit.Aliases), "Acme Corp")
	assert.NotEmpty(t, resolved[0].Unit.MergedUnits)
}

func TestResolveDistinctNameIsNew(t *testing.T) {
	storage := newFakeStorage()
	seedUnit(storage, "g1", "Acme", types.UNIT_TYPE_ENTITY)

	r := NewEntityResolver(storage, failingGateway(), nil, DefaultConfig().Resolver)

	job := testJob("g1", "text")
	resolved, _, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Globex", Content: "another company", UnitType: types.UNIT_TYPE_ENTITY, CanonicalName: "Globex"},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, types.RESOLUTION_NEW, resolved[0].Resolution.Decision)
	require.NotNil(t, resolved[0].Unit)
	assert.Equal(t, "Globex", resolved[0].Unit.CanonicalName)
	assert.Equal(t, types.UNIT_STATUS_DRAFT, resolved[0].Unit.Status)
}

func TestResolveBatchCollapsesDuplicateCandidates(t *testing.T) {
	storage := newFakeStorage()
	r := NewEntityResolver(storage, failingGateway(), nil, DefaultConfig().Resolver)

	job := testJob("g1", "text")
	resolved, _, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Alice", Content: "founder", UnitType: types.UNIT_TYPE_ENTITY, CanonicalName: "Alice"},
		{Title: "Alice", Content: "founder again", UnitType: types.UNIT_TYPE_ENTITY, CanonicalName: "Alice"},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, types.RESOLUTION_NEW, resolved[0].Resolution.Decision)
	assert.Equal(t, types.RESOLUTION_MERGE, resolved[1].Resolution.Decision)
	assert.Equal(t, resolved[0].Unit.ID, resolved[1].Unit.ID)
}

func TestResolveEscalationConsultsModel(t *testing.T) {
	storage := newFakeStorage()
	seedUnit(storage, "g1", "Kafka Streams", types.UNIT_TYPE_CONCEPT)

	gateway := &fakeGateway{complete: func(prompt string) (string, error) {
		if isDisambiguationPrompt(prompt) {
			return `{"decision":"merge","target_id":"u-Kafka Streams","confidence":0.9}`, nil
		}
		return "", ai.ErrModelUnavailable
	}}

	cfg := DefaultConfig().Resolver
	r := NewEntityResolver(storage, gateway, nil, cfg)

	job := testJob("g1", "text")
	resolved, warnings, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Kafka Stream", Content: "a stream processing library", UnitType: types.UNIT_TYPE_CONCEPT, CanonicalName: "Kafka Stream"},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, types.RESOLUTION_MERGE, resolved[0].Resolution.Decision)
	assert.Equal(t, "u-Kafka Streams", resolved[0].Resolution.TargetID)
	assert.Equal(t, 1, gateway.calls)
}

func TestResolveGatewayFailureDegradesToLexical(t *testing.T) {
	storage := newFakeStorage()
	seedUnit(storage, "g1", "Kafka Streams", types.UNIT_TYPE_CONCEPT)

	r := NewEntityResolver(storage, failingGateway(), nil, DefaultConfig().Resolver)

	job := testJob("g1", "text")
	resolved, warnings, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Kafka Stream", Content: "a stream processing library", UnitType: types.UNIT_TYPE_CONCEPT, CanonicalName: "Kafka Stream"},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	// the ambiguous entity resolved without the model and left a warning
	require.Len(t, warnings, 1)
	assert.Equal(t, types.WARNING_RESOLUTION, warnings[0].Kind)
	assert.Contains(t, []types.ResolutionDecision{types.RESOLUTION_NEW, types.RESOLUTION_MERGE}, resolved[0].Resolution.Decision)
}

func TestResolveTypeMismatchNeverCompetes(t *testing.T) {
	storage := newFakeStorage()
	seedUnit(storage, "g1", "Mercury Prizes", types.UNIT_TYPE_EVENT)

	r := NewEntityResolver(storage, failingGateway(), nil, DefaultConfig().Resolver)

	job := testJob("g1", "text")
	resolved, warnings, err := r.ResolveAll(context.Background(), job, []types.CandidateUnit{
		{Title: "Mercury Prize", Content: "a music award", UnitType: types.UNIT_TYPE_CONCEPT, CanonicalName: "Mercury Prize"},
	})
	require.NoError(t, err)
	// a near-identical name of an incompatible type never escalates
	assert.Empty(t, warnings)
	assert.Equal(t, types.RESOLUTION_NEW, resolved[0].Resolution.Decision)
}

func TestLexicalSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"alice", "alice", 1, 1},
		{"apache kafka", "kafka", 0.3, 0.9},
		{"alice", "zebra", 0, 0.3},
		{"知识图谱", "知识图谱构建", 0.4, 1},
		{"", "anything", 0, 0},
	}
	for _, c := range cases {
		got := lexicalSimilarity(c.a, c.b, 0.5)
		assert.GreaterOrEqual(t, got, c.min, "%s vs %s", c.a, c.b)
		assert.LessOrEqual(t, got, c.max, "%s vs %s", c.a, c.b)
	}
}
