package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

// Orchestrator runs one import job through the pipeline state machine:
// pending -> extracting_units -> resolving_entities -> extracting_relations
// -> evaluating -> committing -> done, failing to FAILED from any
// non-terminal state. One orchestrator instance is safe for concurrent
// jobs: all mutable state lives on the job.
type Orchestrator struct {
	storage   Storage
	jobs      JobStore
	locker    Locker
	vectors   VectorStore
	gateway   ai.Gateway
	extractor *UnitExtractor
	resolver  *EntityResolver
	relations *RelationExtractor
	evaluator *Evaluator
	segment   func(text string) []string
	cfg       Config
}

func NewOrchestrator(storage Storage, jobs JobStore, locker Locker, vectors VectorStore, gateway ai.Gateway, segment func(string) []string, cfg Config) *Orchestrator {
	return &Orchestrator{
		storage:   storage,
		jobs:      jobs,
		locker:    locker,
		vectors:   vectors,
		gateway:   gateway,
		extractor: NewUnitExtractor(gateway),
		resolver:  NewEntityResolver(storage, gateway, vectors, cfg.Resolver),
		relations: NewRelationExtractor(gateway),
		evaluator: NewEvaluator(cfg.Evaluator),
		segment:   segment,
		cfg:       cfg,
	}
}

var errJobCancelled = errors.New("job cancelled")

// Run executes the job to a terminal state. The returned error is
// non-nil only for FAILED, and carries the stage failure.
func (o *Orchestrator) Run(ctx context.Context, job *types.ImportJob) error {
	if job.State.Terminal() {
		return nil
	}

	log := slog.With(
		slog.String("component", "orchestrator"),
		slog.String("graph_id", job.GraphID),
		slog.String("job_id", job.ID),
	)

	summary := &types.JobSummary{}
	err := o.run(ctx, job, summary, log)
	switch {
	case err == nil:
		if ferr := o.jobs.FinishJob(ctx, job.ID, types.JOB_STATE_DONE, summary, ""); ferr != nil {
			return ferr
		}
		log.Info("import job done",
			slog.Int("units_created", summary.UnitsCreated),
			slog.Int("units_merged", summary.UnitsMerged),
			slog.Int("triples_accepted", summary.TriplesAccepted))
		return nil
	case errors.Is(err, errJobCancelled):
		log.Info("import job cancelled", slog.String("stage", job.State.String()))
		return o.jobs.FinishJob(ctx, job.ID, types.JOB_STATE_CANCELLED, summary, "")
	default:
		log.Error("import job failed", slog.String("stage", job.State.String()), slog.String("error", err.Error()))
		if ferr := o.jobs.FinishJob(ctx, job.ID, types.JOB_STATE_FAILED, summary, err.Error()); ferr != nil {
			log.Error("failed to persist job failure", slog.String("error", ferr.Error()))
		}
		return err
	}
}

func (o *Orchestrator) run(ctx context.Context, job *types.ImportJob, summary *types.JobSummary, log *slog.Logger) error {
	segments := o.segment(job.Content)

	// stage 1: unit extraction
	if err := o.transition(ctx, job, types.JOB_STATE_EXTRACTING_UNITS); err != nil {
		return err
	}
	candidates, err := o.extractUnits(ctx, job, segments)
	if err != nil {
		return err
	}

	// stage 2: entity resolution, serialized per graph
	if err := o.transition(ctx, job, types.JOB_STATE_RESOLVING_ENTITIES); err != nil {
		return err
	}
	resolved, err := o.resolveUnits(ctx, job, candidates, summary)
	if err != nil {
		return err
	}

	// stage 3: relation extraction over the resolved unit set
	if err := o.transition(ctx, job, types.JOB_STATE_EXTRACTING_RELATIONS); err != nil {
		return err
	}
	tripleCandidates, err := o.extractRelations(ctx, job, segments, resolved)
	if err != nil {
		return err
	}

	// stage 4: confidence evaluation
	if err := o.transition(ctx, job, types.JOB_STATE_EVALUATING); err != nil {
		return err
	}
	triples := o.evaluate(job, tripleCandidates, resolved, segments, summary)

	// stage 5: transactional triple commit, optimistic with one retry
	if err := o.transition(ctx, job, types.JOB_STATE_COMMITTING); err != nil {
		return err
	}
	if err := o.commitTriples(ctx, job, triples, log); err != nil {
		return err
	}

	return nil
}

// transition checks cancellation, moves the job forward and persists
// the new state with a progress estimate.
func (o *Orchestrator) transition(ctx context.Context, job *types.ImportJob, state types.JobState) error {
	cancelled, err := o.jobs.IsCancelled(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("cancellation check: %w", err)
	}
	if cancelled {
		return errJobCancelled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !job.State.CanTransition(state) {
		return fmt.Errorf("illegal transition %s -> %s", job.State, state)
	}
	job.State = state
	job.Progress = progressFor(state)

	slog.Debug("job state transition",
		slog.String("job_id", job.ID),
		slog.String("state", state.String()),
		slog.Int("progress", job.Progress))

	return o.jobs.UpdateState(ctx, job.ID, state, job.Progress)
}

var stateProgress = map[types.JobState]int{
	types.JOB_STATE_PENDING:              0,
	types.JOB_STATE_EXTRACTING_UNITS:     10,
	types.JOB_STATE_RESOLVING_ENTITIES:   35,
	types.JOB_STATE_EXTRACTING_RELATIONS: 55,
	types.JOB_STATE_EVALUATING:           75,
	types.JOB_STATE_COMMITTING:           90,
	types.JOB_STATE_DONE:                 100,
}

func progressFor(state types.JobState) int {
	return stateProgress[state]
}

func (o *Orchestrator) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.StageTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.StageTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) extractUnits(ctx context.Context, job *types.ImportJob, segments []string) ([]types.CandidateUnit, error) {
	sctx, cancel := o.stageCtx(ctx)
	defer cancel()

	// known canonical names as a duplicate hint, read outside the lock
	var known []string
	if units, err := o.storage.ListLiveUnits(sctx, job.GraphID); err != nil {
		slog.Warn("duplicate hint read failed, extracting without known names",
			slog.String("graph_id", job.GraphID), slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	} else {
		for _, u := range units {
			known = append(known, u.CanonicalName)
		}
	}

	var (
		candidates []types.CandidateUnit
		warnings   []types.JobWarning
	)
	for i, segment := range segments {
		recs, warns, err := o.extractor.Extract(sctx, i, segment, known)
		if err != nil {
			o.appendWarnings(ctx, job, warnings)
			return nil, err
		}
		candidates = append(candidates, recs...)
		warnings = append(warnings, warns...)
	}
	o.appendWarnings(ctx, job, warnings)

	if len(candidates) == 0 && strings.TrimSpace(job.Content) != "" {
		return nil, fmt.Errorf("%w: no units extracted from %d segments", ErrExtractionFailed, len(segments))
	}
	return candidates, nil
}

// resolveUnits runs entity resolution under the per-graph lock and
// commits the unit delta in one transaction. Units survive a later
// relation stage failure: the graph stays consistent because triples
// only ever reference committed units.
func (o *Orchestrator) resolveUnits(ctx context.Context, job *types.ImportJob, candidates []types.CandidateUnit, summary *types.JobSummary) ([]types.ResolvedUnit, error) {
	release, err := o.locker.Acquire(ctx, resolutionLockKey(job.GraphID), o.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire resolution lock: %w", err)
	}
	defer release()

	sctx, cancel := o.stageCtx(ctx)
	defer cancel()

	resolved, warnings, err := o.resolver.ResolveAll(sctx, job, candidates)
	o.appendWarnings(ctx, job, warnings)
	if err != nil {
		return nil, err
	}

	// delta units: every resolved unit exactly once
	seen := make(map[string]struct{}, len(resolved))
	var delta []types.KnowledgeUnit
	for _, ru := range resolved {
		switch ru.Resolution.Decision {
		case types.RESOLUTION_MERGE:
			summary.UnitsMerged++
		default:
			summary.UnitsCreated++
			ru.Unit.QualityScore = o.evaluator.UnitQuality(ru.Unit, ru.Candidate.Confidence)
		}
		if _, ok := seen[ru.Unit.ID]; ok {
			continue
		}
		seen[ru.Unit.ID] = struct{}{}
		delta = append(delta, *ru.Unit)
	}

	if len(delta) > 0 {
		err = o.storage.Transaction(sctx, func(txCtx context.Context) error {
			_, err := o.storage.UpsertUnits(txCtx, job.GraphID, delta)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("commit unit delta: %w", err)
		}
	}

	o.upsertEmbeddings(ctx, job, resolved)

	return resolved, nil
}

// upsertEmbeddings stores embeddings for newly created units. Best
// effort: failures only log, the embedding is a hint not a record.
func (o *Orchestrator) upsertEmbeddings(ctx context.Context, job *types.ImportJob, resolved []types.ResolvedUnit) {
	if o.vectors == nil || o.gateway == nil {
		return
	}

	var (
		units   []*types.KnowledgeUnit
		content []string
	)
	for _, ru := range resolved {
		if ru.Resolution.Decision == types.RESOLUTION_MERGE {
			continue
		}
		units = append(units, ru.Unit)
		content = append(content, ru.Unit.Content)
	}
	if len(units) == 0 {
		return
	}

	emb, err := o.gateway.EmbeddingForDocument(ctx, job.SourceName, content)
	if err != nil || len(emb.Data) != len(units) {
		slog.Warn("unit embedding skipped", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}

	now := types.GetCurrentTimestamp()
	vectors := make([]types.UnitVector, 0, len(units))
	for i, u := range units {
		vectors = append(vectors, types.NewUnitVector(utils.GenUniqIDStr(), u.ID, job.GraphID, emb.Data[i], now))
	}
	if err := o.vectors.UpsertUnitVectors(ctx, vectors); err != nil {
		slog.Warn("unit embedding upsert failed", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) extractRelations(ctx context.Context, job *types.ImportJob, segments []string, resolved []types.ResolvedUnit) ([]types.CandidateTriple, error) {
	sctx, cancel := o.stageCtx(ctx)
	defer cancel()

	units := uniqueUnits(resolved)

	var (
		all      []types.CandidateTriple
		warnings []types.JobWarning
	)
	for _, segment := range segments {
		recs, warns, err := o.relations.Extract(sctx, segment, units)
		if err != nil {
			o.appendWarnings(ctx, job, warnings)
			return nil, err
		}
		all = append(all, recs...)
		warnings = append(warnings, warns...)
	}
	o.appendWarnings(ctx, job, warnings)

	return MergeDuplicates(all), nil
}

// evaluate scores candidates and materializes accepted and flagged
// triples. Discarded candidates only bump the summary counter.
func (o *Orchestrator) evaluate(job *types.ImportJob, candidates []types.CandidateTriple, resolved []types.ResolvedUnit, segments []string, summary *types.JobSummary) []types.SemanticTriple {
	matchStrength := make(map[string]float64, len(resolved))
	for _, ru := range resolved {
		score := ru.Resolution.Score
		if ru.Resolution.Decision != types.RESOLUTION_MERGE {
			// endpoints resolved NEW carry a neutral lexical signal
			score = 0.5
		}
		if prev, ok := matchStrength[ru.Unit.ID]; !ok || score > prev {
			matchStrength[ru.Unit.ID] = score
		}
	}

	fullText := strings.Join(segments, "\n")
	now := types.GetCurrentTimestamp()

	var out []types.SemanticTriple
	for _, c := range candidates {
		sig := TripleSignals{
			Lexical:  (matchStrength[c.SubjectID] + matchStrength[c.ObjectID]) / 2,
			Overlap:  ContextOverlap(c.Context, fullText),
			Segments: c.Segments,
		}
		confidence := o.evaluator.FinalConfidence(c.Confidence, sig)

		status := types.TRIPLE_STATUS_ACCEPTED
		switch o.evaluator.Disposition(confidence) {
		case DISPOSITION_DISCARD:
			summary.TriplesDiscarded++
			continue
		case DISPOSITION_FLAG:
			status = types.TRIPLE_STATUS_PENDING_REVIEW
			summary.TriplesFlagged++
		default:
			summary.TriplesAccepted++
		}

		out = append(out, types.SemanticTriple{
			ID:            utils.GenUniqIDStr(),
			GraphID:       job.GraphID,
			SubjectID:     c.SubjectID,
			Predicate:     c.Predicate,
			ObjectID:      c.ObjectID,
			RelationType:  c.RelationType,
			Confidence:    confidence,
			Bidirectional: c.Bidirectional,
			Status:        status,
			SourceID:      job.ID,
			Context:       c.Context,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return out
}

// commitTriples validates endpoints against the latest committed unit
// set and inserts in one transaction. A storage conflict is retried
// once with refreshed state, then surfaced.
func (o *Orchestrator) commitTriples(ctx context.Context, job *types.ImportJob, triples []types.SemanticTriple, log *slog.Logger) error {
	if len(triples) == 0 {
		return nil
	}

	commit := func() error {
		valid, err := o.validateEndpoints(ctx, job.GraphID, triples)
		if err != nil {
			return err
		}
		return o.storage.Transaction(ctx, func(txCtx context.Context) error {
			_, err := o.storage.InsertTriples(txCtx, job.GraphID, valid)
			return err
		})
	}

	err := commit()
	if errors.Is(err, ErrStorageConflict) {
		log.Warn("triple commit conflict, retrying with refreshed state")
		err = commit()
	}
	if err != nil {
		return fmt.Errorf("commit triples: %w", err)
	}
	return nil
}

// validateEndpoints drops triples whose endpoints are missing or
// archived at commit time.
func (o *Orchestrator) validateEndpoints(ctx context.Context, graphID string, triples []types.SemanticTriple) ([]types.SemanticTriple, error) {
	idSet := make(map[string]struct{})
	var ids []string
	for _, t := range triples {
		for _, id := range []string{t.SubjectID, t.ObjectID} {
			if _, ok := idSet[id]; !ok {
				idSet[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	units, err := o.storage.GetUnits(ctx, graphID, ids)
	if err != nil {
		return nil, fmt.Errorf("validate triple endpoints: %w", err)
	}

	usable := make(map[string]struct{}, len(units))
	for i := range units {
		if units[i].Status != types.UNIT_STATUS_ARCHIVED {
			usable[units[i].ID] = struct{}{}
		}
	}

	valid := make([]types.SemanticTriple, 0, len(triples))
	for _, t := range triples {
		if _, ok := usable[t.SubjectID]; !ok {
			continue
		}
		if _, ok := usable[t.ObjectID]; !ok {
			continue
		}
		valid = append(valid, t)
	}
	return valid, nil
}

func (o *Orchestrator) appendWarnings(ctx context.Context, job *types.ImportJob, warnings []types.JobWarning) {
	if len(warnings) == 0 {
		return
	}
	job.Warnings = append(job.Warnings, warnings...)
	if err := o.jobs.AppendWarnings(ctx, job.ID, warnings); err != nil {
		slog.Error("failed to persist job warnings", slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}
}

func uniqueUnits(resolved []types.ResolvedUnit) []*types.KnowledgeUnit {
	seen := make(map[string]struct{}, len(resolved))
	var out []*types.KnowledgeUnit
	for _, ru := range resolved {
		if _, ok := seen[ru.Unit.ID]; ok {
			continue
		}
		seen[ru.Unit.ID] = struct{}{}
		out = append(out, ru.Unit)
	}
	return out
}

func resolutionLockKey(graphID string) string {
	return "mindarch:resolver:" + graphID
}
