package v1

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/app/logic/v1/process"
	"github.com/mindarch-ai/mindarch/pkg/errors"
	"github.com/mindarch-ai/mindarch/pkg/importer"
	"github.com/mindarch-ai/mindarch/pkg/queue"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

type ImportLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewImportLogic(ctx context.Context, core *core.Core) *ImportLogic {
	return &ImportLogic{
		ctx:  ctx,
		core: core,
	}
}

// SubmitImport normalizes the uploaded document, creates the job record
// and dispatches it to the pipeline. Re-submitting content already
// imported into the same graph returns the existing job instead of
// running the pipeline twice.
func (l *ImportLogic) SubmitImport(graphID, fileName string, content []byte, submittedBy string) (*types.ImportJob, error) {
	if len(content) == 0 {
		return nil, errors.New("ImportLogic.SubmitImport.EmptyContent", "document content is empty", nil).Code(http.StatusBadRequest)
	}

	if _, err := NewGraphLogic(l.ctx, l.core).GetGraph(graphID); err != nil {
		return nil, err
	}

	doc, err := importer.Normalize(fileName, content)
	if err != nil {
		return nil, errors.New("ImportLogic.SubmitImport.Normalize", err.Error(), err).Code(http.StatusBadRequest)
	}

	existing, err := l.core.Store().ImportJobStore().GetBySourceHash(l.ctx, graphID, doc.Hash)
	if err != nil {
		return nil, errors.New("ImportLogic.SubmitImport.GetBySourceHash", "internal error", err)
	}
	if existing != nil && existing.State != types.JOB_STATE_FAILED && existing.State != types.JOB_STATE_CANCELLED {
		// 同内容重复提交直接复用已有任务
		return existing, nil
	}

	now := types.GetCurrentTimestamp()
	job := types.ImportJob{
		ID:          utils.GenUniqIDStr(),
		GraphID:     graphID,
		SourceName:  doc.SourceName,
		SourceHash:  doc.Hash,
		Content:     doc.Text,
		State:       types.JOB_STATE_PENDING,
		SubmittedBy: submittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := l.core.Store().ImportJobStore().Create(l.ctx, job); err != nil {
		return nil, errors.New("ImportLogic.SubmitImport.ImportJobStore.Create", "internal error", err)
	}

	task := queue.ImportJobTask{JobID: job.ID, GraphID: graphID, SourceHash: doc.Hash}
	if err := process.Dispatch(l.ctx, task); err != nil {
		return nil, errors.New("ImportLogic.SubmitImport.Dispatch", "failed to dispatch import job", err)
	}

	return &job, nil
}

func (l *ImportLogic) GetJob(graphID, id string) (*types.ImportJob, error) {
	job, err := l.core.Store().ImportJobStore().GetJob(l.ctx, graphID, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("ImportLogic.GetJob.ImportJobStore.GetJob", "internal error", err)
	}
	if err == sql.ErrNoRows || job == nil {
		return nil, errors.New("ImportLogic.GetJob.nil", "import job not found", err).Code(http.StatusNotFound)
	}
	return job, nil
}

func (l *ImportLogic) ListJobs(graphID string, states []types.JobState, page, pageSize uint64) ([]types.ImportJob, int64, error) {
	opts := types.GetImportJobOptions{
		GraphID: graphID,
		State:   states,
	}
	list, err := l.core.Store().ImportJobStore().ListJobs(l.ctx, opts, page, pageSize)
	if err != nil {
		return nil, 0, errors.New("ImportLogic.ListJobs.ImportJobStore.ListJobs", "internal error", err)
	}
	total, err := l.core.Store().ImportJobStore().Total(l.ctx, opts)
	if err != nil {
		return nil, 0, errors.New("ImportLogic.ListJobs.ImportJobStore.Total", "internal error", err)
	}
	return list, total, nil
}

// CancelJob flags the job for cancellation. The pipeline honors the
// flag at the next stage boundary, so a running stage finishes first.
func (l *ImportLogic) CancelJob(graphID, id string) error {
	job, err := l.GetJob(graphID, id)
	if err != nil {
		return err
	}
	if job.State.Terminal() {
		return errors.New("ImportLogic.CancelJob.Terminal", "job already finished", nil).Code(http.StatusConflict)
	}

	if err := l.core.Store().ImportJobStore().RequestCancel(l.ctx, graphID, id); err != nil {
		if err == sql.ErrNoRows {
			return errors.New("ImportLogic.CancelJob.Raced", "job already finished", err).Code(http.StatusConflict)
		}
		return errors.New("ImportLogic.CancelJob.RequestCancel", "internal error", err)
	}
	return nil
}
