package types

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"
)

// UnitVector 知识单元向量，用于实体消歧时的近邻提示
type UnitVector struct {
	ID        string          `json:"id" db:"id"`
	UnitID    string          `json:"unit_id" db:"unit_id"`
	GraphID   string          `json:"graph_id" db:"graph_id"`
	Embedding pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt int64           `json:"created_at" db:"created_at"`
	UpdatedAt int64           `json:"updated_at" db:"updated_at"`
}

type GetUnitVectorOptions struct {
	GraphID string
	UnitIDs []string
}

func (opts GetUnitVectorOptions) Apply(query *sq.SelectBuilder) {
	if opts.GraphID != "" {
		*query = query.Where(sq.Eq{"graph_id": opts.GraphID})
	}
	if len(opts.UnitIDs) > 0 {
		*query = query.Where(sq.Eq{"unit_id": opts.UnitIDs})
	}
}

// UnitVectorQueryResult carries the similarity score from a nearest-neighbour
// query. Cosine distance, smaller is closer.
type UnitVectorQueryResult struct {
	UnitID   string  `json:"unit_id" db:"unit_id"`
	Distance float64 `json:"distance" db:"distance"`
}

func NewUnitVector(id, unitID, graphID string, embedding []float32, now int64) UnitVector {
	return UnitVector{
		ID:        id,
		UnitID:    unitID,
		GraphID:   graphID,
		Embedding: pgvector.NewVector(embedding),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
