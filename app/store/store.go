package store

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/mindarch-ai/mindarch/pkg/sqlstore"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

// KnowledgeUnitStore 知识单元存储接口
type KnowledgeUnitStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.KnowledgeUnit) error
	BatchUpsert(ctx context.Context, datas []types.KnowledgeUnit) error
	// GetUnit 根据ID获取知识单元
	GetUnit(ctx context.Context, graphID, id string) (*types.KnowledgeUnit, error)
	GetByCanonicalName(ctx context.Context, graphID, name string) (*types.KnowledgeUnit, error)
	ListByAlias(ctx context.Context, graphID, alias string) ([]types.KnowledgeUnit, error)
	Update(ctx context.Context, graphID, id string, args types.UpdateUnitArgs) error
	UpdateStatus(ctx context.Context, graphID, id string, status types.UnitStatus) error
	// ListUnits 分页获取知识单元列表
	ListUnits(ctx context.Context, opts types.GetUnitOptions, page, pageSize uint64) ([]types.KnowledgeUnit, error)
	Total(ctx context.Context, opts types.GetUnitOptions) (int64, error)
	DeleteAll(ctx context.Context, graphID string) error
}

// SemanticTripleStore 语义三元组存储接口
type SemanticTripleStore interface {
	sqlstore.SqlCommons
	BatchCreate(ctx context.Context, datas []types.SemanticTriple) error
	GetTriple(ctx context.Context, graphID, id string) (*types.SemanticTriple, error)
	UpdateStatus(ctx context.Context, graphID, id string, status types.TripleStatus) error
	RepointUnit(ctx context.Context, graphID, fromUnitID, toUnitID string) error
	ListTriples(ctx context.Context, opts types.GetTripleOptions, page, pageSize uint64) ([]types.SemanticTriple, error)
	Total(ctx context.Context, opts types.GetTripleOptions) (int64, error)
	DeleteAll(ctx context.Context, graphID string) error
}

// KnowledgeGraphStore 知识图谱存储接口
type KnowledgeGraphStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.KnowledgeGraph) error
	GetGraph(ctx context.Context, id string) (*types.KnowledgeGraph, error)
	Update(ctx context.Context, id, name, description string) error
	UpdateCounters(ctx context.Context, id string, unitCount, tripleCount int) error
	Delete(ctx context.Context, id string) error
	ListGraphs(ctx context.Context, opts types.GetGraphOptions, page, pageSize uint64) ([]types.KnowledgeGraph, error)
	Total(ctx context.Context, opts types.GetGraphOptions) (int64, error)
}

// ImportJobStore 导入任务存储接口
type ImportJobStore interface {
	sqlstore.SqlCommons
	Create(ctx context.Context, data types.ImportJob) error
	GetJob(ctx context.Context, graphID, id string) (*types.ImportJob, error)
	GetBySourceHash(ctx context.Context, graphID, hash string) (*types.ImportJob, error)
	UpdateState(ctx context.Context, id string, state types.JobState, progress int) error
	AppendWarnings(ctx context.Context, id string, warnings types.JobWarnings) error
	Finish(ctx context.Context, id string, state types.JobState, summary types.JobSummary, errMsg string) error
	RequestCancel(ctx context.Context, graphID, id string) error
	IsCancelRequested(ctx context.Context, id string) (bool, error)
	SetRetryTimes(ctx context.Context, id string, retryTimes int) error
	ListJobs(ctx context.Context, opts types.GetImportJobOptions, page, pageSize uint64) ([]types.ImportJob, error)
	Total(ctx context.Context, opts types.GetImportJobOptions) (int64, error)
	DeleteAll(ctx context.Context, graphID string) error
}

// UnitVectorStore 向量存储接口, 实体消歧的近邻提示
type UnitVectorStore interface {
	sqlstore.SqlCommons
	BatchUpsert(ctx context.Context, datas []types.UnitVector) error
	DeleteByUnit(ctx context.Context, graphID, unitID string) error
	DeleteAll(ctx context.Context, graphID string) error
	Query(ctx context.Context, graphID string, vector pgvector.Vector, limit uint64) ([]types.UnitVectorQueryResult, error)
}
