package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/mindarch-ai/mindarch/pkg/register"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.KnowledgeUnitStore = NewKnowledgeUnitStore(provider)
	})
}

// KnowledgeUnitStore 处理知识单元表的操作
type KnowledgeUnitStore struct {
	CommonFields
}

func NewKnowledgeUnitStore(provider SqlProviderAchieve) *KnowledgeUnitStore {
	store := &KnowledgeUnitStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_KNOWLEDGE_UNIT)
	store.SetAllColumns("id", "graph_id", "title", "content", "unit_type", "canonical_name", "aliases", "tags",
		"source_id", "source_name", "status", "knowledge", "quality_score", "ref_count", "merged_units",
		"parent_units", "metadata", "created_by", "created_at", "updated_at")
	return store
}

func (s *KnowledgeUnitStore) values(query sq.InsertBuilder, data *types.KnowledgeUnit) sq.InsertBuilder {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = time.Now().Unix()
	}
	if len(data.Knowledge) == 0 {
		data.Knowledge = types.Metadata("{}")
	}
	if len(data.Metadata) == 0 {
		data.Metadata = types.Metadata("{}")
	}

	return query.Values(data.ID, data.GraphID, data.Title, data.Content, data.UnitType, data.CanonicalName,
		pq.Array(data.Aliases), pq.Array(data.Tags), data.SourceID, data.SourceName, data.Status,
		string(data.Knowledge), data.QualityScore, data.RefCount, pq.Array(data.MergedUnits),
		pq.Array(data.ParentUnits), string(data.Metadata), data.CreatedBy, data.CreatedAt, data.UpdatedAt)
}

// Create 创建新的知识单元
func (s *KnowledgeUnitStore) Create(ctx context.Context, data types.KnowledgeUnit) error {
	query := s.values(sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...), &data)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return convertUniqueViolation(err)
}

// BatchUpsert 批量写入, 已存在的单元按 ID 覆盖更新
func (s *KnowledgeUnitStore) BatchUpsert(ctx context.Context, datas []types.KnowledgeUnit) error {
	if len(datas) == 0 {
		return nil
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...)
	for i := range datas {
		query = s.values(query, &datas[i])
	}
	query = query.Suffix(`ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		unit_type = EXCLUDED.unit_type,
		canonical_name = EXCLUDED.canonical_name,
		aliases = EXCLUDED.aliases,
		tags = EXCLUDED.tags,
		status = EXCLUDED.status,
		knowledge = EXCLUDED.knowledge,
		quality_score = EXCLUDED.quality_score,
		ref_count = EXCLUDED.ref_count,
		merged_units = EXCLUDED.merged_units,
		parent_units = EXCLUDED.parent_units,
		updated_at = EXCLUDED.updated_at`)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return convertUniqueViolation(err)
}

// GetUnit 根据ID获取知识单元
func (s *KnowledgeUnitStore) GetUnit(ctx context.Context, graphID, id string) (*types.KnowledgeUnit, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"graph_id": graphID, "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.KnowledgeUnit
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByCanonicalName 在存活单元中按规范名查找
func (s *KnowledgeUnitStore) GetByCanonicalName(ctx context.Context, graphID, name string) (*types.KnowledgeUnit, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"graph_id": graphID}).
		Where("lower(canonical_name) = lower(?)", name).
		Where(sq.NotEq{"status": []types.UnitStatus{types.UNIT_STATUS_MERGED, types.UNIT_STATUS_ARCHIVED}})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.KnowledgeUnit
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// ListByAlias 按别名查找存活单元
func (s *KnowledgeUnitStore) ListByAlias(ctx context.Context, graphID, alias string) ([]types.KnowledgeUnit, error) {
	opts := types.GetUnitOptions{GraphID: graphID, Alias: alias, LiveOnly: true}

	return s.ListUnits(ctx, opts, types.NO_PAGINATION, types.NO_PAGINATION)
}

// Update 更新知识单元
func (s *KnowledgeUnitStore) Update(ctx context.Context, graphID, id string, args types.UpdateUnitArgs) error {
	query := sq.Update(s.GetTable()).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"graph_id": graphID, "id": id})

	if args.Title != "" {
		query = query.Set("title", args.Title)
	}
	if args.Content != "" {
		query = query.Set("content", args.Content)
	}
	if args.UnitType != "" {
		query = query.Set("unit_type", args.UnitType)
	}
	if args.CanonicalName != "" {
		query = query.Set("canonical_name", args.CanonicalName)
	}
	if args.Aliases != nil {
		query = query.Set("aliases", pq.Array(args.Aliases))
	}
	if args.Tags != nil {
		query = query.Set("tags", pq.Array(args.Tags))
	}
	if args.Status != "" {
		query = query.Set("status", args.Status)
	}
	if args.QualityScore != nil {
		query = query.Set("quality_score", *args.QualityScore)
	}
	if args.MergedUnits != nil {
		query = query.Set("merged_units", pq.Array(args.MergedUnits))
	}
	if len(args.Knowledge) != 0 {
		query = query.Set("knowledge", string(args.Knowledge))
	}

	queryString, sqlArgs, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, sqlArgs...)
	return convertUniqueViolation(err)
}

// UpdateStatus 更新单元状态
func (s *KnowledgeUnitStore) UpdateStatus(ctx context.Context, graphID, id string, status types.UnitStatus) error {
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

// ListUnits 分页获取知识单元列表
func (s *KnowledgeUnitStore) ListUnits(ctx context.Context, opts types.GetUnitOptions, page, pageSize uint64) ([]types.KnowledgeUnit, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.KnowledgeUnit
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// Total 统计知识单元数量
func (s *KnowledgeUnitStore) Total(ctx context.Context, opts types.GetUnitOptions) (int64, error) {
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

// DeleteAll 删除图谱下全部知识单元, 仅在删除图谱时调用
func (s *KnowledgeUnitStore) DeleteAll(ctx context.Context, graphID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"graph_id": graphID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
