package process

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mindarch-ai/mindarch/app/core"
	"github.com/mindarch-ai/mindarch/pkg/importer"
	"github.com/mindarch-ai/mindarch/pkg/pipeline"
	"github.com/mindarch-ai/mindarch/pkg/queue"
	"github.com/mindarch-ai/mindarch/pkg/safe"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

var importProcess *ImportProcess

// ImportProcess hosts the extraction pipeline. Jobs arrive either from
// the asynq queue or, without redis, from an in-process channel. A cron
// sweep re-dispatches jobs stuck in a non-terminal state.
type ImportProcess struct {
	ctx          context.Context
	core         *core.Core
	orchestrator *pipeline.Orchestrator
	inline       chan queue.ImportJobTask
	cron         *cron.Cron
}

func StartImportProcess(c *core.Core) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())

	chunkRunes := c.Cfg().Import.ChunkRunes
	importProcess = &ImportProcess{
		ctx:  ctx,
		core: c,
		orchestrator: pipeline.NewOrchestrator(
			NewPipelineStorage(c),
			NewPipelineJobStore(c),
			c.Locker(),
			NewPipelineVectorStore(c),
			newObservedGateway(c.Srv().AI(), c.Metrics()),
			func(text string) []string { return importer.Chunk(text, chunkRunes) },
			c.Cfg().Pipeline,
		),
	}

	if q := c.Queue(); q != nil {
		mux := q.SetupHandler(importProcess.Handle)
		go safe.Run(func() {
			if err := q.StartWorker(mux); err != nil {
				slog.Error("import queue worker stopped", slog.String("error", err.Error()))
			}
		})
	} else {
		importProcess.inline = make(chan queue.ImportJobTask, 1000)
		for range c.Cfg().Import.Concurrency {
			go safe.Run(importProcess.runInline)
		}
	}

	importProcess.startStaleSweep()

	return func() {
		if importProcess.cron != nil {
			importProcess.cron.Stop()
		}
		cancel()
	}
}

// Dispatch hands a job to the worker pool. Called by the API layer
// after the job row is created.
func Dispatch(ctx context.Context, task queue.ImportJobTask) error {
	if importProcess == nil || importProcess.ctx.Err() != nil {
		return fmt.Errorf("import process not running")
	}

	if q := importProcess.core.Queue(); q != nil {
		return q.EnqueueJob(ctx, task)
	}

	select {
	case importProcess.inline <- task:
		return nil
	default:
		return fmt.Errorf("import backlog full")
	}
}

func (p *ImportProcess) runInline() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.inline:
			if err := p.Handle(p.ctx, task); err != nil {
				slog.Error("inline import job failed",
					slog.String("job_id", task.JobID),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Handle runs one job to a terminal state and refreshes the graph
// counters afterwards.
func (p *ImportProcess) Handle(ctx context.Context, task queue.ImportJobTask) error {
	job, err := p.core.Store().ImportJobStore().GetJob(ctx, task.GraphID, task.JobID)
	if err != nil {
		return fmt.Errorf("load import job %s: %w", task.JobID, err)
	}
	if job.State.Terminal() {
		return nil
	}

	runErr := p.orchestrator.Run(ctx, job)

	p.refreshGraphCounters(job.GraphID)
	return runErr
}

func (p *ImportProcess) refreshGraphCounters(graphID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	units, err := p.core.Store().KnowledgeUnitStore().Total(ctx, types.GetUnitOptions{GraphID: graphID, LiveOnly: true})
	if err != nil {
		slog.Error("failed to count graph units", slog.String("graph_id", graphID), slog.String("error", err.Error()))
		return
	}
	triples, err := p.core.Store().SemanticTripleStore().Total(ctx, types.GetTripleOptions{GraphID: graphID})
	if err != nil {
		slog.Error("failed to count graph triples", slog.String("graph_id", graphID), slog.String("error", err.Error()))
		return
	}
	if err := p.core.Store().KnowledgeGraphStore().UpdateCounters(ctx, graphID, int(units), int(triples)); err != nil {
		slog.Error("failed to update graph counters", slog.String("graph_id", graphID), slog.String("error", err.Error()))
	}
}

// startStaleSweep re-dispatches jobs whose state stopped moving, which
// happens when a worker died mid-run. Jobs over the retry budget are
// failed instead of looping forever.
func (p *ImportProcess) startStaleSweep() {
	p.cron = cron.New()
	p.cron.AddFunc("@every 1m", func() {
		safe.Run(p.sweepStaleJobs)
	})
	p.cron.Start()
}

func (p *ImportProcess) sweepStaleJobs() {
	ctx, cancel := context.WithTimeout(p.ctx, time.Second*30)
	defer cancel()

	staleBefore := time.Now().Unix() - int64(p.core.Cfg().Import.StaleAfterSeconds)
	jobs, err := p.core.Store().ImportJobStore().ListJobs(ctx, types.GetImportJobOptions{
		Stale: staleBefore,
	}, 1, 50)
	if err != nil {
		slog.Error("stale job sweep query failed", slog.String("error", err.Error()))
		return
	}

	for _, job := range jobs {
		if job.RetryTimes >= p.core.Cfg().Import.MaxRetries {
			slog.Warn("stale job exceeded retry budget",
				slog.String("job_id", job.ID),
				slog.Int("retry_times", job.RetryTimes))
			if err := p.core.Store().ImportJobStore().Finish(ctx, job.ID, types.JOB_STATE_FAILED, job.Summary, "retry budget exhausted"); err != nil {
				slog.Error("failed to fail stale job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
			}
			continue
		}

		if err := p.core.Store().ImportJobStore().SetRetryTimes(ctx, job.ID, job.RetryTimes+1); err != nil {
			slog.Error("failed to bump stale job retry", slog.String("job_id", job.ID), slog.String("error", err.Error()))
			continue
		}

		// reset to pending so the state machine can run from the top
		if err := p.core.Store().ImportJobStore().UpdateState(ctx, job.ID, types.JOB_STATE_PENDING, 0); err != nil {
			slog.Error("failed to reset stale job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
			continue
		}

		task := queue.ImportJobTask{JobID: job.ID, GraphID: job.GraphID, SourceHash: job.SourceHash}
		if err := Dispatch(ctx, task); err != nil {
			slog.Error("failed to re-dispatch stale job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
			continue
		}

		slog.Info("stale import job re-dispatched",
			slog.String("job_id", job.ID),
			slog.Int("retry_times", job.RetryTimes+1))
	}
}
