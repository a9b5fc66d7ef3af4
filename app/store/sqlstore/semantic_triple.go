package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mindarch-ai/mindarch/pkg/register"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.SemanticTripleStore = NewSemanticTripleStore(provider)
	})
}

// SemanticTripleStore 处理语义三元组表的操作
type SemanticTripleStore struct {
	CommonFields
}

func NewSemanticTripleStore(provider SqlProviderAchieve) *SemanticTripleStore {
	store := &SemanticTripleStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_SEMANTIC_TRIPLE)
	store.SetAllColumns("id", "graph_id", "subject_id", "predicate", "object_id", "relation_type",
		"confidence", "bidirectional", "status", "source_id", "context", "metadata", "created_at", "updated_at")
	return store
}

// BatchCreate 批量写入三元组。同一来源的重复三元组被唯一索引挡下并忽略,
// 任务重跑因此幂等; 撞上其他约束仍然报错。
func (s *SemanticTripleStore) BatchCreate(ctx context.Context, datas []types.SemanticTriple) error {
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
		if len(data.Metadata) == 0 {
			data.Metadata = types.Metadata("{}")
		}
		query = query.Values(data.ID, data.GraphID, data.SubjectID, data.Predicate, data.ObjectID,
			data.RelationType, data.Confidence, data.Bidirectional, data.Status, data.SourceID,
			data.Context, string(data.Metadata), data.CreatedAt, data.UpdatedAt)
	}
	query = query.Suffix("ON CONFLICT (graph_id, source_id, subject_id, predicate, object_id) DO NOTHING")

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return convertUniqueViolation(err)
}

// GetTriple 根据ID获取三元组
func (s *SemanticTripleStore) GetTriple(ctx context.Context, graphID, id string) (*types.SemanticTriple, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"graph_id": graphID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.SemanticTriple
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatus 更新三元组状态
func (s *SemanticTripleStore) UpdateStatus(ctx context.Context, graphID, id string, status types.TripleStatus) error {
	query := sq.Update(s.GetTable()).
		Set("status", status).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"graph_id": graphID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// repointSelfLoopDelete 两端点恰为 from/to 的三元组, 改挂后会变成自环
func repointSelfLoopDelete(table, graphID, fromUnitID, toUnitID string) sq.DeleteBuilder {
	return sq.Delete(table).
		Where(sq.Eq{"graph_id": graphID}).
		Where(sq.Or{
			sq.Eq{"subject_id": fromUnitID, "object_id": toUnitID},
			sq.Eq{"subject_id": toUnitID, "object_id": fromUnitID},
		})
}

// repointDuplicateDelete 改挂后与目标单元既有三元组撞唯一索引的行
func repointDuplicateDelete(table string) string {
	return `DELETE FROM ` + table + ` t USING ` + table + ` dup
		WHERE t.graph_id = $1 AND dup.graph_id = t.graph_id
		AND ((t.subject_id = $2 AND dup.subject_id = $3 AND t.object_id = dup.object_id)
		OR (t.object_id = $2 AND dup.object_id = $3 AND t.subject_id = dup.subject_id))
		AND t.predicate = dup.predicate AND t.source_id = dup.source_id`
}

// RepointUnit 手动合并单元时, 把指向被合并单元的三元组改挂到目标单元。
// 会产生自环或与目标单元既有三元组重复的行先行删除, 否则整个合并事务回滚
func (s *SemanticTripleStore) RepointUnit(ctx context.Context, graphID, fromUnitID, toUnitID string) error {
	now := time.Now().Unix()

	queryString, args, err := repointSelfLoopDelete(s.GetTable(), graphID, fromUnitID, toUnitID).ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}
	if _, err = s.GetMaster(ctx).Exec(queryString, args...); err != nil {
		return err
	}

	if _, err = s.GetMaster(ctx).Exec(repointDuplicateDelete(s.GetTable()), graphID, fromUnitID, toUnitID); err != nil {
		return err
	}

	subject := sq.Update(s.GetTable()).
		Set("subject_id", toUnitID).
		Set("updated_at", now).
		Where(sq.Eq{"graph_id": graphID, "subject_id": fromUnitID})
	queryString, args, err = subject.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}
	if _, err = s.GetMaster(ctx).Exec(queryString, args...); err != nil {
		return convertUniqueViolation(err)
	}

	object := sq.Update(s.GetTable()).
		Set("object_id", toUnitID).
		Set("updated_at", now).
		Where(sq.Eq{"graph_id": graphID, "object_id": fromUnitID})
	queryString, args, err = object.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}
	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return convertUniqueViolation(err)
}

// ListTriples 分页获取三元组列表
func (s *SemanticTripleStore) ListTriples(ctx context.Context, opts types.GetTripleOptions, page, pageSize uint64) ([]types.SemanticTriple, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.SemanticTriple
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteAll 删除图谱下全部三元组, 仅在删除图谱时调用
func (s *SemanticTripleStore) DeleteAll(ctx context.Context, graphID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"graph_id": graphID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Total 统计三元组数量
func (s *SemanticTripleStore) Total(ctx context.Context, opts types.GetTripleOptions) (int64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var total int64
	if err = s.GetReplica(ctx).Get(&total, queryString, args...); err != nil {
		return 0, err
	}
	return total, nil
}
