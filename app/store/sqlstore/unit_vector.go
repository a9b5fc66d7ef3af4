package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"

	"github.com/mindarch-ai/mindarch/pkg/register"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.UnitVectorStore = NewUnitVectorStore(provider)
	})
}

// UnitVectorStore 处理知识单元向量表的操作
type UnitVectorStore struct {
	CommonFields
}

func NewUnitVectorStore(provider SqlProviderAchieve) *UnitVectorStore {
	store := &UnitVectorStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_UNIT_VECTOR)
	store.SetAllColumns("id", "unit_id", "graph_id", "embedding", "created_at", "updated_at")
	return store
}

// BatchUpsert 批量写入向量, 同一单元只保留最新一条
func (s *UnitVectorStore) BatchUpsert(ctx context.Context, datas []types.UnitVector) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)
	for i := range datas {
		data := &datas[i]
		if data.CreatedAt == 0 {
			data.CreatedAt = time.Now().Unix()
		}
		if data.UpdatedAt == 0 {
			data.UpdatedAt = time.Now().Unix()
		}
		query = query.Values(data.ID, data.UnitID, data.GraphID, data.Embedding, data.CreatedAt, data.UpdatedAt)
	}
	query = query.Suffix("ON CONFLICT (unit_id) DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at")

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// DeleteByUnit 删除指定单元的向量, 单元归档或被合并后调用
func (s *UnitVectorStore) DeleteByUnit(ctx context.Context, graphID, unitID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"graph_id": graphID, "unit_id": unitID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// DeleteAll 删除图谱下全部向量
func (s *UnitVectorStore) DeleteAll(ctx context.Context, graphID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"graph_id": graphID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Query 余弦距离近邻查询, distance 越小越相似
func (s *UnitVectorStore) Query(ctx context.Context, graphID string, vector pgvector.Vector, limit uint64) ([]types.UnitVectorQueryResult, error) {
	query := sq.Select("unit_id").
		Column(sq.Expr("embedding <=> ? AS distance", vector)).
		From(s.GetTable()).
		Where(sq.Eq{"graph_id": graphID}).
		OrderBy("distance ASC").
		Limit(limit)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.UnitVectorQueryResult
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}
