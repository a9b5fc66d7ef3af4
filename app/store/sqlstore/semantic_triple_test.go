package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindarch-ai/mindarch/pkg/types"
)

// 合并两个有直接关系的单元时, 改挂前必须清理会变成自环或与目标
// 既有三元组重复的行, 不然唯一索引和自环约束会让整个事务回滚
func TestRepointSelfLoopDelete(t *testing.T) {
	queryString, args, err := repointSelfLoopDelete(string(types.TABLE_SEMANTIC_TRIPLE), "g1", "src", "dst").ToSql()
	assert.NoError(t, err)

	assert.Contains(t, queryString, "DELETE FROM")
	assert.Contains(t, queryString, "subject_id")
	assert.Contains(t, queryString, "object_id")
	// 两个方向的 (src,dst) 端点对都要删
	assert.ElementsMatch(t, []interface{}{"g1", "src", "dst", "src", "dst"}, args)
}

func TestRepointDuplicateDelete(t *testing.T) {
	queryString := repointDuplicateDelete(string(types.TABLE_SEMANTIC_TRIPLE))

	assert.Contains(t, queryString, "USING")
	assert.Contains(t, queryString, "t.predicate = dup.predicate")
	assert.Contains(t, queryString, "t.source_id = dup.source_id")
	assert.Contains(t, queryString, "t.graph_id = $1")
}
