package v1

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/pkg/errors"
	"github.com/mindarch-ai/mindarch/pkg/pipeline"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

type GraphLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewGraphLogic(ctx context.Context, core *core.Core) *GraphLogic {
	return &GraphLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *GraphLogic) CreateGraph(name, description, ownerID string) (*types.KnowledgeGraph, error) {
	if name == "" {
		return nil, errors.New("GraphLogic.CreateGraph.EmptyName", "graph name is required", nil).Code(http.StatusBadRequest)
	}

	now := types.GetCurrentTimestamp()
	graph := types.KnowledgeGraph{
		ID:          utils.GenUniqIDStr(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Status:      types.GRAPH_STATUS_ACTIVE,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.core.Store().KnowledgeGraphStore().Create(l.ctx, graph); err != nil {
		return nil, errors.New("GraphLogic.CreateGraph.KnowledgeGraphStore.Create", "internal error", err)
	}
	return &graph, nil
}

func (l *GraphLogic) GetGraph(id string) (*types.KnowledgeGraph, error) {
	graph, err := l.core.Store().KnowledgeGraphStore().GetGraph(l.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("GraphLogic.GetGraph.KnowledgeGraphStore.GetGraph", "internal error", err)
	}
	if err == sql.ErrNoRows || graph == nil {
		return nil, errors.New("GraphLogic.GetGraph.nil", "graph not found", err).Code(http.StatusNotFound)
	}
	return graph, nil
}

func (l *GraphLogic) UpdateGraph(id, name, description string) error {
	if _, err := l.GetGraph(id); err != nil {
		return err
	}
	if err := l.core.Store().KnowledgeGraphStore().Update(l.ctx, id, name, description); err != nil {
		return errors.New("GraphLogic.UpdateGraph.KnowledgeGraphStore.Update", "internal error", err)
	}
	return nil
}

// DeleteGraph removes the graph and everything hanging off it in one
// transaction.
func (l *GraphLogic) DeleteGraph(id string) error {
	if _, err := l.GetGraph(id); err != nil {
		return err
	}

	err := l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().SemanticTripleStore().DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := l.core.Store().KnowledgeUnitStore().DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := l.core.Store().UnitVectorStore().DeleteAll(ctx, id); err != nil {
			return err
		}
		if err := l.core.Store().ImportJobStore().DeleteAll(ctx, id); err != nil {
			return err
		}
		return l.core.Store().KnowledgeGraphStore().Delete(ctx, id)
	})
	if err != nil {
		return errors.New("GraphLogic.DeleteGraph.Transaction", "internal error", err)
	}
	return nil
}

func (l *GraphLogic) ListGraphs(opts types.GetGraphOptions, page, pageSize uint64) ([]types.KnowledgeGraph, int64, error) {
	list, err := l.core.Store().KnowledgeGraphStore().ListGraphs(l.ctx, opts, page, pageSize)
	if err != nil {
		return nil, 0, errors.New("GraphLogic.ListGraphs.KnowledgeGraphStore.ListGraphs", "internal error", err)
	}
	total, err := l.core.Store().KnowledgeGraphStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("GraphLogic.ListGraphs.KnowledgeGraphStore.Total", "internal error", err)
	}
	return list, total, nil
}

// QualityReport 生成图谱质量报告, 全量读取后在内存中评估
func (l *GraphLogic) QualityReport(id string) (*types.GraphQualityReport, error) {
	graph, err := l.GetGraph(id)
	if err != nil {
		return nil, err
	}

	units, err := l.core.Store().KnowledgeUnitStore().ListUnits(l.ctx, types.GetUnitOptions{
		GraphID:  id,
		LiveOnly: true,
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		return nil, errors.New("GraphLogic.QualityReport.ListUnits", "internal error", err)
	}

	triples, err := l.core.Store().SemanticTripleStore().ListTriples(l.ctx, types.GetTripleOptions{
		GraphID: id,
		Status:  []types.TripleStatus{types.TRIPLE_STATUS_ACCEPTED, types.TRIPLE_STATUS_PENDING_REVIEW},
	}, types.NO_PAGINATION, types.NO_PAGINATION)
	if err != nil {
		return nil, errors.New("GraphLogic.QualityReport.ListTriples", "internal error", err)
	}

	evaluator := pipeline.NewEvaluator(l.core.Cfg().Pipeline.Evaluator)
	report := evaluator.GraphReport(graph, units, triples)
	return &report, nil
}
