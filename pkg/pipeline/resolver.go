package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

// EntityResolver decides whether each candidate unit is new, merges into
// an existing unit, or needs a model-assisted disambiguation pass. The
// deterministic lexical decision always comes first; the model is only
// consulted for the escalation band, so outcomes stay reproducible.
type EntityResolver struct {
	storage Storage
	gateway ai.Gateway
	vectors VectorStore
	cfg     ResolverConfig
}

func NewEntityResolver(storage Storage, gateway ai.Gateway, vectors VectorStore, cfg ResolverConfig) *EntityResolver {
	return &EntityResolver{
		storage: storage,
		gateway: gateway,
		vectors: vectors,
		cfg:     cfg,
	}
}

// scoredMatch is one existing unit competing for a candidate.
type scoredMatch struct {
	unit  *types.KnowledgeUnit
	score float64
}

// ResolveAll resolves candidates sequentially against the live unit
// universe of the graph. Units newly created earlier in the same batch
// join the universe immediately, so two candidates for the same entity
// within one job collapse into one unit. The caller holds the per-graph
// resolution lock.
func (r *EntityResolver) ResolveAll(ctx context.Context, job *types.ImportJob, candidates []types.CandidateUnit) ([]types.ResolvedUnit, []types.JobWarning, error) {
	universe, err := r.storage.ListLiveUnits(ctx, job.GraphID)
	if err != nil {
		return nil, nil, fmt.Errorf("load unit universe: %w", err)
	}

	live := make([]*types.KnowledgeUnit, 0, len(universe))
	for i := range universe {
		live = append(live, &universe[i])
	}

	var (
		resolved []types.ResolvedUnit
		warnings []types.JobWarning
	)
	for _, candidate := range candidates {
		res, warning := r.resolve(ctx, job.GraphID, live, candidate)

		ru := types.ResolvedUnit{Candidate: candidate, Resolution: res}
		switch res.Decision {
		case types.RESOLUTION_MERGE:
			target := findUnit(live, res.TargetID)
			if target == nil {
				// target vanished between scoring and apply, treat as new
				res.Decision = types.RESOLUTION_NEW
				ru.Resolution = res
				ru.Unit = r.newUnit(job, candidate)
				live = append(live, ru.Unit)
			} else {
				r.applyMerge(target, candidate, job)
				ru.Unit = target
			}
		default:
			ru.Unit = r.newUnit(job, candidate)
			live = append(live, ru.Unit)
		}

		if warning != nil {
			warnings = append(warnings, *warning)
		}
		resolved = append(resolved, ru)
	}

	return resolved, warnings, nil
}

// resolve produces the decision for one candidate. The returned warning
// is non-nil when the disambiguation pass degraded to the lexical
// fallback.
func (r *EntityResolver) resolve(ctx context.Context, graphID string, universe []*types.KnowledgeUnit, candidate types.CandidateUnit) (types.Resolution, *types.JobWarning) {
	// exact canonical match is always a deterministic merge
	canonical := strings.ToLower(strings.TrimSpace(candidate.CanonicalName))
	for _, unit := range universe {
		if strings.ToLower(unit.CanonicalName) == canonical {
			return types.Resolution{Decision: types.RESOLUTION_MERGE, TargetID: unit.ID, Score: 1}, nil
		}
	}

	matches := r.score(ctx, graphID, universe, candidate)
	if len(matches) == 0 || matches[0].score < r.cfg.EscalateThreshold {
		return types.Resolution{Decision: types.RESOLUTION_NEW}, nil
	}

	best := matches[0]
	if best.score >= r.cfg.AutoMergeThreshold {
		return types.Resolution{Decision: types.RESOLUTION_MERGE, TargetID: best.unit.ID, Score: best.score}, nil
	}

	// mid band: ask the model to disambiguate
	res, err := r.disambiguate(ctx, candidate, matches)
	if err == nil {
		return res, nil
	}

	// graceful degradation to the lexical decision, one ambiguous entity
	// never blocks the whole import
	slog.Warn("disambiguation degraded to lexical decision",
		slog.String("candidate", candidate.CanonicalName),
		slog.String("error", err.Error()))

	warning := &types.JobWarning{
		Kind:    types.WARNING_RESOLUTION,
		Stage:   types.JOB_STATE_RESOLVING_ENTITIES,
		Message: fmt.Sprintf("disambiguation of %q fell back to lexical match: %s", candidate.CanonicalName, err.Error()),
	}

	midpoint := (r.cfg.AutoMergeThreshold + r.cfg.EscalateThreshold) / 2
	if best.score >= midpoint {
		return types.Resolution{Decision: types.RESOLUTION_MERGE, TargetID: best.unit.ID, Score: best.score}, warning
	}
	return types.Resolution{Decision: types.RESOLUTION_NEW, Score: best.score}, warning
}

// score ranks existing units against the candidate using the alias
// surface plus lexical similarity, optionally widened by embedding
// neighbours. Only units of a compatible type compete.
func (r *EntityResolver) score(ctx context.Context, graphID string, universe []*types.KnowledgeUnit, candidate types.CandidateUnit) []scoredMatch {
	candidateNames := append([]string{candidate.CanonicalName}, candidate.Aliases...)
	candidateSet := make(map[string]struct{}, len(candidateNames))
	for _, n := range candidateNames {
		candidateSet[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}

	hint := r.embeddingHint(ctx, graphID, candidate)

	var matches []scoredMatch
	for _, unit := range universe {
		if !compatibleTypes(unit.UnitType, candidate.UnitType) {
			continue
		}

		var score float64
		// shared alias is a near-certain signal
		for alias := range unit.AliasSet() {
			if _, ok := candidateSet[alias]; ok {
				score = 0.95
				break
			}
		}

		if score == 0 {
			for _, cn := range candidateNames {
				if s := lexicalSimilarity(cn, unit.CanonicalName, r.cfg.TokenWeight); s > score {
					score = s
				}
				for _, ua := range unit.Aliases {
					if s := lexicalSimilarity(cn, ua, r.cfg.TokenWeight); s > score {
						score = s
					}
				}
			}
		}

		if boost, ok := hint[unit.ID]; ok && score < r.cfg.AutoMergeThreshold {
			// cosine neighbours nudge borderline lexical scores upward
			score += boost * 0.1
			if score > 1 {
				score = 1
			}
		}

		if score >= r.cfg.EscalateThreshold {
			matches = append(matches, scoredMatch{unit: unit, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > r.cfg.MaxCandidates {
		matches = matches[:r.cfg.MaxCandidates]
	}
	return matches
}

// embeddingHint returns unit_id -> similarity for the embedding
// nearest neighbours of the candidate. Best effort: any failure just
// disables the signal.
func (r *EntityResolver) embeddingHint(ctx context.Context, graphID string, candidate types.CandidateUnit) map[string]float64 {
	if r.vectors == nil || r.gateway == nil {
		return nil
	}

	emb, err := r.gateway.EmbeddingForDocument(ctx, candidate.Title, []string{candidate.Content})
	if err != nil || len(emb.Data) == 0 {
		return nil
	}

	neighbours, err := r.vectors.Nearest(ctx, graphID, emb.Data[0], r.cfg.MaxCandidates)
	if err != nil {
		return nil
	}

	hint := make(map[string]float64, len(neighbours))
	for _, n := range neighbours {
		// pgvector cosine distance, similarity = 1 - distance
		if sim := 1 - n.Distance; sim > 0 {
			hint[n.UnitID] = sim
		}
	}
	return hint
}

type disambiguationVerdict struct {
	Decision   string  `json:"decision"`
	TargetID   string  `json:"target_id"`
	Confidence float64 `json:"confidence"`
}

func (r *EntityResolver) disambiguate(ctx context.Context, candidate types.CandidateUnit, matches []scoredMatch) (types.Resolution, error) {
	if r.gateway == nil {
		return types.Resolution{}, ai.ErrModelUnavailable
	}

	tpl := ai.PROMPT_DISAMBIGUATE_EN
	if r.gateway.Lang() == ai.MODEL_BASE_LANGUAGE_CN {
		tpl = ai.PROMPT_DISAMBIGUATE_CN
	}

	candidateJSON, _ := json.Marshal(map[string]any{
		"canonical_name": candidate.CanonicalName,
		"aliases":        candidate.Aliases,
		"unit_type":      candidate.UnitType,
		"content":        utils.SmartTruncateContent(candidate.Content, 500),
	})

	var sb strings.Builder
	for _, m := range matches {
		row, _ := json.Marshal(map[string]any{
			"id":             m.unit.ID,
			"canonical_name": m.unit.CanonicalName,
			"aliases":        []string(m.unit.Aliases),
			"unit_type":      m.unit.UnitType,
			"content":        utils.SmartTruncateContent(m.unit.Content, 300),
		})
		sb.Write(row)
		sb.WriteString("\n")
	}

	prompt, err := ai.BuildPrompt(tpl, map[string]string{
		ai.PROMPT_VAR_CANDIDATE: string(candidateJSON),
		ai.PROMPT_VAR_MATCHES:   sb.String(),
	})
	if err != nil {
		return types.Resolution{}, err
	}

	resp, err := r.gateway.Complete(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return types.Resolution{}, err
	}

	var verdict disambiguationVerdict
	if err := ai.ParseJSONObject(resp.Content, &verdict); err != nil {
		return types.Resolution{}, err
	}

	if strings.EqualFold(verdict.Decision, "merge") && verdict.TargetID != "" {
		if m := findMatch(matches, verdict.TargetID); m != nil {
			return types.Resolution{Decision: types.RESOLUTION_MERGE, TargetID: m.unit.ID, Score: m.score}, nil
		}
		// the model invented an id, do not trust the merge
		return types.Resolution{}, fmt.Errorf("disambiguation chose unknown unit %q", verdict.TargetID)
	}
	return types.Resolution{Decision: types.RESOLUTION_NEW, Score: matches[0].score}, nil
}

// applyMerge absorbs the candidate into target.
func (r *EntityResolver) applyMerge(target *types.KnowledgeUnit, candidate types.CandidateUnit, job *types.ImportJob) {
	target.AbsorbAliases(append([]string{candidate.CanonicalName}, candidate.Aliases...)...)
	target.RefCount++
	target.UpdatedAt = types.GetCurrentTimestamp()
	// synthetic merge record: the candidate never became a standalone unit
	target.MergedUnits = append(target.MergedUnits, fmt.Sprintf("import:%s:%d", job.ID, candidate.Segment))
}

func (r *EntityResolver) newUnit(job *types.ImportJob, candidate types.CandidateUnit) *types.KnowledgeUnit {
	now := types.GetCurrentTimestamp()
	return &types.KnowledgeUnit{
		ID:            utils.GenUniqIDStr(),
		GraphID:       job.GraphID,
		Title:         candidate.Title,
		Content:       candidate.Content,
		UnitType:      candidate.UnitType,
		CanonicalName: candidate.CanonicalName,
		Aliases:       candidate.Aliases,
		Tags:          candidate.Tags,
		SourceID:      job.ID,
		SourceName:    job.SourceName,
		Status:        types.UNIT_STATUS_DRAFT,
		Knowledge:     candidate.Knowledge,
		RefCount:      1,
		CreatedBy:     job.SubmittedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// compatibleTypes keeps resolution within a unit_type category, with
// note/unknown acting as wildcards.
func compatibleTypes(a, b types.UnitType) bool {
	if a == b {
		return true
	}
	wildcard := func(t types.UnitType) bool {
		return t == types.UNIT_TYPE_NOTE || t == types.UNIT_TYPE_UNKNOWN || t == ""
	}
	return wildcard(a) || wildcard(b)
}

func findUnit(units []*types.KnowledgeUnit, id string) *types.KnowledgeUnit {
	for _, u := range units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func findMatch(matches []scoredMatch, id string) *scoredMatch {
	for i := range matches {
		if matches[i].unit.ID == id {
			return &matches[i]
		}
	}
	return nil
}
