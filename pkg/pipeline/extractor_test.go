package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func TestUnitExtractSalvagesBadRecords(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[
				{"title":"Alice","content":"founder of Acme","unit_type":"entity","canonical_name":"Alice","aliases":["alice","Alice"],"confidence":0.9},
				{"title":"","content":"","unit_type":"entity","confidence":0.8},
				{"title":"Acme","content":"a company","unit_type":"entity","canonical_name":"Acme","confidence":1.7}
			]`, nil
		},
	}
	ext := NewUnitExtractor(gw)

	candidates, warnings, err := ext.Extract(context.Background(), 0, "Alice founded Acme.", nil)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Len(t, warnings, 1)
	assert.Equal(t, types.WARNING_EXTRACTION, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "record 1")

	assert.Equal(t, "Alice", candidates[0].CanonicalName)
	assert.Equal(t, types.UNIT_TYPE_ENTITY, candidates[0].UnitType)
	// canonical 不作为别名保留
	assert.Empty(t, candidates[0].Aliases)
	assert.Equal(t, 1.0, candidates[1].Confidence)
}

func TestUnitExtractAllRecordsBadFailsStage(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[{"title":"x","content":""},{"title":"","content":""}]`, nil
		},
	}
	ext := NewUnitExtractor(gw)

	_, warnings, err := ext.Extract(context.Background(), 0, "some text", nil)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Len(t, warnings, 2)
}

func TestUnitExtractMalformedResponseFailsStage(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return "no structured output here", nil
		},
	}
	ext := NewUnitExtractor(gw)

	_, _, err := ext.Extract(context.Background(), 0, "some text", nil)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestUnitExtractTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("a", 80)
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[{"title":"` + long + `","content":"something","canonical_name":"` + long + `","confidence":0.5}]`, nil
		},
	}
	ext := NewUnitExtractor(gw)

	candidates, _, err := ext.Extract(context.Background(), 0, "text", nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Len(t, []rune(candidates[0].Title), types.TITLE_MAX_RUNES_LATIN)
	// canonical name保持原样, 只截断标题
	assert.Equal(t, long, candidates[0].CanonicalName)
}

func TestUnitExtractPassesKnownNamesHint(t *testing.T) {
	var sawPrompt string
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			sawPrompt = prompt
			return `[{"title":"Acme","content":"a company","canonical_name":"Acme","confidence":0.9}]`, nil
		},
	}
	ext := NewUnitExtractor(gw)

	_, _, err := ext.Extract(context.Background(), 0, "Acme Corp shipped a product.", []string{"Acme", "Alice"})
	require.NoError(t, err)
	assert.Contains(t, sawPrompt, "Already known canonical names")
	assert.Contains(t, sawPrompt, "Acme, Alice")
}

func TestUnitExtractEmptySegmentSkipsGateway(t *testing.T) {
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			t.Fatal("gateway must not be called")
			return "", nil
		},
	}
	ext := NewUnitExtractor(gw)

	candidates, warnings, err := ext.Extract(context.Background(), 0, "   \n ", nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, warnings)
}
