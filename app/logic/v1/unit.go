package v1

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/samber/lo"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/pkg/errors"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

type UnitLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewUnitLogic(ctx context.Context, core *core.Core) *UnitLogic {
	return &UnitLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *UnitLogic) GetUnit(graphID, id string) (*types.KnowledgeUnit, error) {
	unit, err := l.core.Store().KnowledgeUnitStore().GetUnit(l.ctx, graphID, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("UnitLogic.GetUnit.KnowledgeUnitStore.GetUnit", "internal error", err)
	}
	if err == sql.ErrNoRows || unit == nil {
		return nil, errors.New("UnitLogic.GetUnit.nil", "knowledge unit not found", err).Code(http.StatusNotFound)
	}
	return unit, nil
}

func (l *UnitLogic) ListUnits(opts types.GetUnitOptions, page, pageSize uint64) ([]types.KnowledgeUnit, int64, error) {
	list, err := l.core.Store().KnowledgeUnitStore().ListUnits(l.ctx, opts, page, pageSize)
	if err != nil {
		return nil, 0, errors.New("UnitLogic.ListUnits.KnowledgeUnitStore.ListUnits", "internal error", err)
	}
	total, err := l.core.Store().KnowledgeUnitStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("UnitLogic.ListUnits.KnowledgeUnitStore.Total", "internal error", err)
	}
	return list, total, nil
}

func (l *UnitLogic) UpdateUnit(graphID, id string, args types.UpdateUnitArgs) error {
	unit, err := l.GetUnit(graphID, id)
	if err != nil {
		return err
	}
	if !unit.Status.Live() {
		return errors.New("UnitLogic.UpdateUnit.NotLive", "merged or archived units cannot be edited", nil).Code(http.StatusConflict)
	}

	if args.CanonicalName != "" && args.CanonicalName != unit.CanonicalName {
		dup, err := l.core.Store().KnowledgeUnitStore().GetByCanonicalName(l.ctx, graphID, args.CanonicalName)
		if err != nil {
			return errors.New("UnitLogic.UpdateUnit.GetByCanonicalName", "internal error", err)
		}
		if dup != nil && dup.ID != id {
			return errors.New("UnitLogic.UpdateUnit.CanonicalTaken", "canonical name already in use", nil).Code(http.StatusConflict)
		}
	}

	if err := l.core.Store().KnowledgeUnitStore().Update(l.ctx, graphID, id, args); err != nil {
		return errors.New("UnitLogic.UpdateUnit.KnowledgeUnitStore.Update", "internal error", err)
	}
	return nil
}

// MergeUnits merges source into target by hand. The target absorbs the
// source's naming surface and merge history, every triple referencing
// the source is repointed, and the source row survives with status
// merged so history stays traceable.
func (l *UnitLogic) MergeUnits(graphID, sourceID, targetID string) (*types.KnowledgeUnit, error) {
	if sourceID == targetID {
		return nil, errors.New("UnitLogic.MergeUnits.SelfMerge", "cannot merge a unit into itself", nil).Code(http.StatusBadRequest)
	}

	source, err := l.GetUnit(graphID, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := l.GetUnit(graphID, targetID)
	if err != nil {
		return nil, err
	}
	if !source.Status.Live() || !target.Status.Live() {
		return nil, errors.New("UnitLogic.MergeUnits.NotLive", "both units must be live to merge", nil).Code(http.StatusConflict)
	}

	target.AbsorbAliases(append([]string{source.CanonicalName}, source.Aliases...)...)
	// 被合并单元自身的合并历史一并继承
	mergedUnits := lo.Uniq(append(append([]string(target.MergedUnits), sourceID), source.MergedUnits...))

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().KnowledgeUnitStore().Update(ctx, graphID, targetID, types.UpdateUnitArgs{
			Aliases:     target.Aliases,
			MergedUnits: mergedUnits,
		}); err != nil {
			return err
		}
		if err := l.core.Store().KnowledgeUnitStore().UpdateStatus(ctx, graphID, sourceID, types.UNIT_STATUS_MERGED); err != nil {
			return err
		}
		if err := l.core.Store().SemanticTripleStore().RepointUnit(ctx, graphID, sourceID, targetID); err != nil {
			return err
		}
		return l.core.Store().UnitVectorStore().DeleteByUnit(ctx, graphID, sourceID)
	})
	if err != nil {
		return nil, errors.New("UnitLogic.MergeUnits.Transaction", "internal error", err)
	}

	return l.GetUnit(graphID, targetID)
}

// ArchiveUnit takes the unit out of the live universe. Its triples are
// archived with it so queries stop surfacing them.
func (l *UnitLogic) ArchiveUnit(graphID, id string) error {
	unit, err := l.GetUnit(graphID, id)
	if err != nil {
		return err
	}
	if unit.Status == types.UNIT_STATUS_ARCHIVED {
		return nil
	}
	if unit.Status == types.UNIT_STATUS_MERGED {
		return errors.New("UnitLogic.ArchiveUnit.Merged", "merged units cannot be archived", nil).Code(http.StatusConflict)
	}

	err = l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		if err := l.core.Store().KnowledgeUnitStore().UpdateStatus(ctx, graphID, id, types.UNIT_STATUS_ARCHIVED); err != nil {
			return err
		}

		triples, err := l.core.Store().SemanticTripleStore().ListTriples(ctx, types.GetTripleOptions{
			GraphID: graphID,
			UnitID:  id,
		}, types.NO_PAGINATION, types.NO_PAGINATION)
		if err != nil {
			return err
		}
		for _, t := range triples {
			if t.Status == types.TRIPLE_STATUS_ARCHIVED {
				continue
			}
			if err := l.core.Store().SemanticTripleStore().UpdateStatus(ctx, graphID, t.ID, types.TRIPLE_STATUS_ARCHIVED); err != nil {
				return err
			}
		}

		return l.core.Store().UnitVectorStore().DeleteByUnit(ctx, graphID, id)
	})
	if err != nil {
		return errors.New("UnitLogic.ArchiveUnit.Transaction", "internal error", err)
	}
	return nil
}
