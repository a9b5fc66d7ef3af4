package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/app/store/sqlstore"
	"github.com/mindarch-ai/mindarch/pkg/pipeline"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

// PipelineStorage adapts the sql stores to the interfaces the import
// pipeline consumes. Unique violations surface as the pipeline's
// storage conflict so the orchestrator can retry the commit.
type PipelineStorage struct {
	core *core.Core
}

func NewPipelineStorage(core *core.Core) *PipelineStorage {
	return &PipelineStorage{core: core}
}

func (s *PipelineStorage) GetGraph(ctx context.Context, graphID string) (*types.KnowledgeGraph, error) {
	return s.core.Store().KnowledgeGraphStore().GetGraph(ctx, graphID)
}

func (s *PipelineStorage) GetUnitByCanonical(ctx context.Context, graphID, name string) (*types.KnowledgeUnit, error) {
	return s.core.Store().KnowledgeUnitStore().GetByCanonicalName(ctx, graphID, name)
}

func (s *PipelineStorage) GetUnitsByAlias(ctx context.Context, graphID, alias string) ([]types.KnowledgeUnit, error) {
	return s.core.Store().KnowledgeUnitStore().ListByAlias(ctx, graphID, alias)
}

func (s *PipelineStorage) ListLiveUnits(ctx context.Context, graphID string) ([]types.KnowledgeUnit, error) {
	return s.core.Store().KnowledgeUnitStore().ListUnits(ctx, types.GetUnitOptions{
		GraphID:  graphID,
		LiveOnly: true,
	}, types.NO_PAGINATION, types.NO_PAGINATION)
}

func (s *PipelineStorage) GetUnits(ctx context.Context, graphID string, ids []string) ([]types.KnowledgeUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.core.Store().KnowledgeUnitStore().ListUnits(ctx, types.GetUnitOptions{
		GraphID: graphID,
		IDs:     ids,
	}, types.NO_PAGINATION, types.NO_PAGINATION)
}

func (s *PipelineStorage) UpsertUnits(ctx context.Context, graphID string, units []types.KnowledgeUnit) ([]types.KnowledgeUnit, error) {
	if err := s.core.Store().KnowledgeUnitStore().BatchUpsert(ctx, units); err != nil {
		return nil, convertConflict(err)
	}
	return units, nil
}

func (s *PipelineStorage) InsertTriples(ctx context.Context, graphID string, triples []types.SemanticTriple) ([]types.SemanticTriple, error) {
	if err := s.core.Store().SemanticTripleStore().BatchCreate(ctx, triples); err != nil {
		return nil, convertConflict(err)
	}
	return triples, nil
}

func (s *PipelineStorage) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.core.Store().Transaction(ctx, fn)
}

// convertConflict 把存储层的唯一约束冲突翻译为流水线的冲突语义
func convertConflict(err error) error {
	if errors.Is(err, sqlstore.ErrUniqueViolation) {
		return fmt.Errorf("%w: %s", pipeline.ErrStorageConflict, err.Error())
	}
	return err
}

// PipelineJobStore persists job progress for the orchestrator and
// reports per-stage durations.
type PipelineJobStore struct {
	core *core.Core

	mu     sync.Mutex
	stages map[string]stageMark
}

type stageMark struct {
	state types.JobState
	since time.Time
}

func NewPipelineJobStore(core *core.Core) *PipelineJobStore {
	return &PipelineJobStore{
		core:   core,
		stages: make(map[string]stageMark),
	}
}

func (s *PipelineJobStore) UpdateState(ctx context.Context, jobID string, state types.JobState, progress int) error {
	if err := s.core.Store().ImportJobStore().UpdateState(ctx, jobID, state, progress); err != nil {
		return err
	}
	s.observeStage(jobID, state)
	return nil
}

func (s *PipelineJobStore) observeStage(jobID string, state types.JobState) {
	now := time.Now()
	s.mu.Lock()
	prev, ok := s.stages[jobID]
	if state.Terminal() {
		delete(s.stages, jobID)
	} else {
		s.stages[jobID] = stageMark{state: state, since: now}
	}
	s.mu.Unlock()

	if ok {
		s.core.Metrics().StageObserve(prev.state.String(), now.Sub(prev.since))
	}
}

func (s *PipelineJobStore) AppendWarnings(ctx context.Context, jobID string, warnings []types.JobWarning) error {
	return s.core.Store().ImportJobStore().AppendWarnings(ctx, jobID, warnings)
}

func (s *PipelineJobStore) FinishJob(ctx context.Context, jobID string, state types.JobState, summary *types.JobSummary, errMsg string) error {
	var sum types.JobSummary
	if summary != nil {
		sum = *summary
	}
	s.core.Metrics().JobFinishedInc(state.String())
	if state == types.JOB_STATE_DONE {
		s.core.Metrics().UnitResolvedAdd("new", sum.UnitsCreated)
		s.core.Metrics().UnitResolvedAdd("merge", sum.UnitsMerged)
	}
	s.observeStage(jobID, state)
	return s.core.Store().ImportJobStore().Finish(ctx, jobID, state, sum, errMsg)
}

func (s *PipelineJobStore) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	return s.core.Store().ImportJobStore().IsCancelRequested(ctx, jobID)
}

// PipelineVectorStore exposes the pgvector table as the optional
// embedding hint store.
type PipelineVectorStore struct {
	core *core.Core
}

func NewPipelineVectorStore(core *core.Core) *PipelineVectorStore {
	return &PipelineVectorStore{core: core}
}

func (s *PipelineVectorStore) UpsertUnitVectors(ctx context.Context, vectors []types.UnitVector) error {
	return s.core.Store().UnitVectorStore().BatchUpsert(ctx, vectors)
}

func (s *PipelineVectorStore) Nearest(ctx context.Context, graphID string, embedding []float32, limit int) ([]types.UnitVectorQueryResult, error) {
	return s.core.Store().UnitVectorStore().Query(ctx, graphID, pgvector.NewVector(embedding), uint64(limit))
}
