package types

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUnitStatusLive(t *testing.T) {
	assert.True(t, UNIT_STATUS_DRAFT.Live())
	assert.True(t, UNIT_STATUS_CONFIRMED.Live())
	assert.False(t, UNIT_STATUS_MERGED.Live())
	assert.False(t, UNIT_STATUS_ARCHIVED.Live())
}

func TestAbsorbAliases(t *testing.T) {
	unit := &KnowledgeUnit{
		CanonicalName: "Alan Turing",
		Aliases:       pq.StringArray{"Turing"},
	}

	unit.AbsorbAliases("turing", "A. M. Turing", "  ", "alan turing", "A. M. Turing")

	// 大小写不敏感去重, 且不吸收自身标准名
	assert.Equal(t, pq.StringArray{"Turing", "A. M. Turing"}, unit.Aliases)
}

func TestAliasSetIncludesCanonical(t *testing.T) {
	unit := &KnowledgeUnit{
		CanonicalName: "Graph",
		Aliases:       pq.StringArray{"graph", "Network "},
	}

	set := unit.AliasSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "graph")
	assert.Contains(t, set, "network")
}
