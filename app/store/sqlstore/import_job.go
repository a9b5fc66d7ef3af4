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
		provider.stores.ImportJobStore = NewImportJobStore(provider)
	})
}

// ImportJobStore 处理导入任务表的操作
type ImportJobStore struct {
	CommonFields
}

func NewImportJobStore(provider SqlProviderAchieve) *ImportJobStore {
	store := &ImportJobStore{}
	store.SetProvider(provider)
	store.SetTable(types.TABLE_IMPORT_JOB)
	store.SetAllColumns("id", "graph_id", "source_name", "source_hash", "content", "state", "progress",
		"retry_times", "error", "cancel_requested", "warnings", "summary", "submitted_by", "created_at", "updated_at")
	return store
}

// Create 创建导入任务
func (s *ImportJobStore) Create(ctx context.Context, data types.ImportJob) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = time.Now().Unix()
	}
	if data.State == "" {
		data.State = types.JOB_STATE_PENDING
	}

	query := sq.Insert(s.GetTable()).Columns(s.GetAllColumns()...).
		Values(data.ID, data.GraphID, data.SourceName, data.SourceHash, data.Content, data.State,
			data.Progress, data.RetryTimes, data.Error, data.CancelRequested, data.Warnings,
			data.Summary, data.SubmittedBy, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return convertUniqueViolation(err)
}

// GetJob 根据ID获取导入任务
func (s *ImportJobStore) GetJob(ctx context.Context, graphID, id string) (*types.ImportJob, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id})
	if graphID != "" {
		query = query.Where(sq.Eq{"graph_id": graphID})
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ImportJob
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetBySourceHash 查找同图谱下相同内容的最近一次任务, 用于去重。没有则返回 nil
func (s *ImportJobStore) GetBySourceHash(ctx context.Context, graphID, hash string) (*types.ImportJob, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"graph_id": graphID, "source_hash": hash}).
		OrderBy("created_at DESC").Limit(1)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.ImportJob
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// UpdateState 推进任务状态
func (s *ImportJobStore) UpdateState(ctx context.Context, id string, state types.JobState, progress int) error {
	query := sq.Update(s.GetTable()).
		Set("state", state).
		Set("progress", progress).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// AppendWarnings 追加告警, 由数据库侧拼接避免读改写竞争
func (s *ImportJobStore) AppendWarnings(ctx context.Context, id string, warnings types.JobWarnings) error {
	if len(warnings) == 0 {
		return nil
	}

	raw, err := warnings.Value()
	if err != nil {
		return err
	}

	query := sq.Update(s.GetTable()).
		Set("warnings", sq.Expr("warnings || ?::jsonb", raw)).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Finish 任务终态落库, 同时写入统计与错误信息
func (s *ImportJobStore) Finish(ctx context.Context, id string, state types.JobState, summary types.JobSummary, errMsg string) error {
	query := sq.Update(s.GetTable()).
		Set("state", state).
		Set("progress", 100).
		Set("summary", summary).
		Set("error", errMsg).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// RequestCancel 标记取消请求, 仅对未结束的任务生效
func (s *ImportJobStore) RequestCancel(ctx context.Context, graphID, id string) error {
	query := sq.Update(s.GetTable()).
		Set("cancel_requested", true).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"graph_id": graphID, "id": id}).
		Where(sq.NotEq{"state": []types.JobState{types.JOB_STATE_DONE, types.JOB_STATE_FAILED, types.JOB_STATE_CANCELLED}})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	result, err := s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsCancelRequested 流水线阶段边界轮询取消标记
func (s *ImportJobStore) IsCancelRequested(ctx context.Context, id string) (bool, error) {
	query := sq.Select("cancel_requested").From(s.GetTable()).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return false, ErrorSqlBuild(err)
	}

	var cancelled bool
	if err = s.GetReplica(ctx).Get(&cancelled, queryString, args...); err != nil {
		return false, err
	}
	return cancelled, nil
}

// SetRetryTimes 更新重试次数, 由过期任务巡检调用
func (s *ImportJobStore) SetRetryTimes(ctx context.Context, id string, retryTimes int) error {
	query := sq.Update(s.GetTable()).
		Set("retry_times", retryTimes).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// ListJobs 分页获取任务列表
func (s *ImportJobStore) ListJobs(ctx context.Context, opts types.GetImportJobOptions, page, pageSize uint64) ([]types.ImportJob, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	opts.Apply(&query)

	if page != types.NO_PAGINATION && pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []types.ImportJob
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteAll 删除图谱下全部导入任务, 仅在删除图谱时调用
func (s *ImportJobStore) DeleteAll(ctx context.Context, graphID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"graph_id": graphID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

// Total 统计任务数量
func (s *ImportJobStore) Total(ctx context.Context, opts types.GetImportJobOptions) (int64, error) {
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
