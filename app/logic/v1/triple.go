package v1

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/pkg/errors"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

type TripleLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewTripleLogic(ctx context.Context, core *core.Core) *TripleLogic {
	return &TripleLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *TripleLogic) GetTriple(graphID, id string) (*types.SemanticTriple, error) {
	triple, err := l.core.Store().SemanticTripleStore().GetTriple(l.ctx, graphID, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("TripleLogic.GetTriple.SemanticTripleStore.GetTriple", "internal error", err)
	}
	if err == sql.ErrNoRows || triple == nil {
		return nil, errors.New("TripleLogic.GetTriple.nil", "triple not found", err).Code(http.StatusNotFound)
	}
	return triple, nil
}

func (l *TripleLogic) ListTriples(opts types.GetTripleOptions, page, pageSize uint64) ([]types.SemanticTriple, int64, error) {
	list, err := l.core.Store().SemanticTripleStore().ListTriples(l.ctx, opts, page, pageSize)
	if err != nil {
		return nil, 0, errors.New("TripleLogic.ListTriples.SemanticTripleStore.ListTriples", "internal error", err)
	}
	total, err := l.core.Store().SemanticTripleStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("TripleLogic.ListTriples.SemanticTripleStore.Total", "internal error", err)
	}
	return list, total, nil
}

// ReviewTriple resolves a pending-review triple: accept keeps it,
// reject archives it.
func (l *TripleLogic) ReviewTriple(graphID, id string, accept bool) error {
	triple, err := l.GetTriple(graphID, id)
	if err != nil {
		return err
	}
	if triple.Status != types.TRIPLE_STATUS_PENDING_REVIEW {
		return errors.New("TripleLogic.ReviewTriple.NotPending", "triple is not pending review", nil).Code(http.StatusConflict)
	}

	status := types.TRIPLE_STATUS_ACCEPTED
	if !accept {
		status = types.TRIPLE_STATUS_ARCHIVED
	}
	if err := l.core.Store().SemanticTripleStore().UpdateStatus(l.ctx, graphID, id, status); err != nil {
		return errors.New("TripleLogic.ReviewTriple.UpdateStatus", "internal error", err)
	}
	return nil
}
