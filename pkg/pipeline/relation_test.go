package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func relationUnits() []*types.KnowledgeUnit {
	return []*types.KnowledgeUnit{
		{ID: "u-alice", CanonicalName: "Alice", UnitType: types.UNIT_TYPE_ENTITY},
		{ID: "u-acme", CanonicalName: "Acme", UnitType: types.UNIT_TYPE_ENTITY},
	}
}

func TestRelationExtractDiscardsBadEndpoints(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[
				{"subject_id":"u-alice","predicate":"founded","object_id":"u-acme","relation_type":"action","confidence":0.9,"context":"Alice founded Acme"},
				{"subject_id":"u-alice","predicate":"knows","object_id":"u-ghost","confidence":0.8},
				{"subject_id":"u-acme","predicate":"is","object_id":"u-acme","confidence":0.8},
				{"subject_id":"u-alice","predicate":"","object_id":"u-acme","confidence":0.8}
			]`, nil
		},
	}
	ext := NewRelationExtractor(gw)

	candidates, warnings, err := ext.Extract(context.Background(), "Alice founded Acme.", relationUnits())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, candidates, 1)
	assert.Equal(t, "u-alice", candidates[0].SubjectID)
	assert.Equal(t, "founded", candidates[0].Predicate)
	assert.Equal(t, types.RELATION_TYPE_ACTION, candidates[0].RelationType)
	assert.Equal(t, 1, candidates[0].Segments)
}

func TestRelationExtractInfersTypeFromPredicate(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[{"subject_id":"u-alice","predicate":"similar to","object_id":"u-acme","relation_type":"nonsense","confidence":0.7}]`, nil
		},
	}
	ext := NewRelationExtractor(gw)

	candidates, _, err := ext.Extract(context.Background(), "some text", relationUnits())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, types.InferRelationType("similar to"), candidates[0].RelationType)
	// 对称关系自动置为双向
	if candidates[0].RelationType.Symmetric() {
		assert.True(t, candidates[0].Bidirectional)
	}
}

func TestRelationExtractMalformedOutputWarnsNotFails(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return "I could not find any relations, sorry.", nil
		},
	}
	ext := NewRelationExtractor(gw)

	candidates, warnings, err := ext.Extract(context.Background(), "some text", relationUnits())
	require.NoError(t, err)
	assert.Empty(t, candidates)
	require.Len(t, warnings, 1)
	assert.Equal(t, types.WARNING_EXTRACTION, warnings[0].Kind)
	assert.Equal(t, types.JOB_STATE_EXTRACTING_RELATIONS, warnings[0].Stage)
}

func TestRelationExtractGatewayErrorIsFatal(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return "", fmt.Errorf("wrap: %w", ai.ErrModelTimeout)
		},
	}
	ext := NewRelationExtractor(gw)

	_, _, err := ext.Extract(context.Background(), "some text", relationUnits())
	assert.ErrorIs(t, err, ai.ErrModelTimeout)
}

func TestRelationExtractSkipsTrivialInput(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			t.Fatal("gateway must not be called")
			return "", nil
		},
	}
	ext := NewRelationExtractor(gw)

	candidates, warnings, err := ext.Extract(context.Background(), "", relationUnits())
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, warnings)

	candidates, _, err = ext.Extract(context.Background(), "text", relationUnits()[:1])
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRelationExtractDedupesWithinSegment(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[
				{"subject_id":"u-alice","predicate":"founded","object_id":"u-acme","relation_type":"action","confidence":0.6,"context":"first"},
				{"subject_id":"u-alice","predicate":"founded","object_id":"u-acme","relation_type":"action","confidence":0.9,"context":"second"}
			]`, nil
		},
	}
	ext := NewRelationExtractor(gw)

	candidates, warnings, err := ext.Extract(context.Background(), "Alice founded Acme. Alice founded Acme.", relationUnits())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	// 同段落内的重复不能攒出跨段落佐证
	require.Len(t, candidates, 1)
	assert.Equal(t, 1, candidates[0].Segments)
	assert.Equal(t, 0.9, candidates[0].Confidence)
	assert.Equal(t, "second", candidates[0].Context)
}

func TestMergeDuplicates(t *testing.T) {
	in := []types.CandidateTriple{
		{SubjectID: "a", Predicate: "founded", ObjectID: "b", Confidence: 0.6, Context: "first", Segments: 1},
		{SubjectID: "a", Predicate: "founded", ObjectID: "b", Confidence: 0.9, Context: "second", Bidirectional: true, Segments: 1},
		{SubjectID: "a", Predicate: "owns", ObjectID: "b", Confidence: 0.5, Segments: 1},
	}

	out := MergeDuplicates(in)
	require.Len(t, out, 2)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, "second", out[0].Context)
	assert.True(t, out[0].Bidirectional)
	assert.Equal(t, 2, out[0].Segments)
	assert.Equal(t, 1, out[1].Segments)
}
