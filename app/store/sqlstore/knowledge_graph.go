package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mindarch-ai/mindarch/pkg/register"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.KnowledgeGraphStore = NewKnowledgeGraphStore(provider)
	})
}

// KnowledgeGraphStore 处理知识图谱表的操作
type KnowledgeGraphStore struct {
	CommonFields
}

func NewKnowledgeGraphStore(provider SqlProviderAchieve) *KnowledgeGraphStore {
	store := &KnowledgeGraphStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_KNOWLEDGE_GRAPH)
	store.SetAllColumns("id", "name", "description", "owner_id", "is_public", "root_units",
		"status", "unit_count", "triple_count", "metadata", "visual_settings", "created_at", "updated_at")
	return store
}

// Create 创建图谱
func (s *KnowledgeGraphStore) Create(ctx context.Context, data types.KnowledgeGraph) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = time.Now().Unix()
	}
	if len(data.Metadata) == 0 {
		data.Metadata = types.Metadata("{}")
	}
	if len(data.VisualSettings) == 0 {
		data.VisualSettings = types.Metadata("{}")
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...).
		Values(data.ID, data.Name, data.Description, data.OwnerID, data.IsPublic, data.RootUnits,
			data.Status, data.UnitCount, data.TripleCount, string(data.Metadata), string(data.VisualSettings),
			data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return convertUniqueViolation(err)
}

// GetGraph 根据ID获取图谱
func (s *KnowledgeGraphStore) GetGraph(ctx context.Context, id string) (*types.KnowledgeGraph, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.KnowledgeGraph
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// Update 更新图谱基础信息
func (s *KnowledgeGraphStore) Update(ctx context.Context, id, name, description string) error {
	query := sq.Update(s.GetTable()).
		Set("name", name).
		Set("description", description).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// UpdateCounters 导入完成后刷新单元与三元组计数
func (s *KnowledgeGraphStore) UpdateCounters(ctx context.Context, id string, unitCount, tripleCount int) error {
	query := sq.Update(s.GetTable()).
		Set("unit_count", unitCount).
		Set("triple_count", tripleCount).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Delete 删除图谱
func (s *KnowledgeGraphStore) Delete(ctx context.Context, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// ListGraphs 分页获取图谱列表
func (s *KnowledgeGraphStore) ListGraphs(ctx context.Context, opts types.GetGraphOptions, page, pageSize uint64) ([]types.KnowledgeGraph, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.KnowledgeGraph
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

// Total 统计图谱数量
func (s *KnowledgeGraphStore) Total(ctx context.Context, opts types.GetGraphOptions) (int64, error) {
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
