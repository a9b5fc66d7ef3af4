package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "mindarch_"

const (
	TABLE_KNOWLEDGE_UNIT  = TableName("knowledge_unit")
	TABLE_SEMANTIC_TRIPLE = TableName("semantic_triple")
	TABLE_KNOWLEDGE_GRAPH = TableName("knowledge_graph")
	TABLE_IMPORT_JOB      = TableName("import_job")
	TABLE_UNIT_VECTOR     = TableName("unit_vector")
)
