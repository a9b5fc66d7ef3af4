package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

// RelationExtractor proposes typed triples between already-resolved
// units. It never invents unit ids: a candidate referencing an unknown
// endpoint is discarded, not failed.
type RelationExtractor struct {
	gateway ai.Gateway
}

func NewRelationExtractor(gateway ai.Gateway) *RelationExtractor {
	return &RelationExtractor{gateway: gateway}
}

type rawTriple struct {
	SubjectID     string  `json:"subject_id"`
	Predicate     string  `json:"predicate"`
	ObjectID      string  `json:"object_id"`
	RelationType  string  `json:"relation_type"`
	Bidirectional bool    `json:"bidirectional"`
	Confidence    float64 `json:"confidence"`
	Context       string  `json:"context"`
}

// Extract proposes triples for one segment given the resolved unit set.
func (e *RelationExtractor) Extract(ctx context.Context, text string, units []*types.KnowledgeUnit) ([]types.CandidateTriple, []types.JobWarning, error) {
	if strings.TrimSpace(text) == "" || len(units) < 2 {
		return nil, nil, nil
	}

	tpl := ai.PROMPT_EXTRACT_RELATIONS_EN
	if e.gateway.Lang() == ai.MODEL_BASE_LANGUAGE_CN {
		tpl = ai.PROMPT_EXTRACT_RELATIONS_CN
	}

	known := make(map[string]struct{}, len(units))
	var sb strings.Builder
	for _, u := range units {
		known[u.ID] = struct{}{}
		fmt.Fprintf(&sb, "%s: %s\n", u.ID, u.CanonicalName)
	}

	prompt, err := ai.BuildPrompt(tpl, map[string]string{
		ai.PROMPT_VAR_CONTENT:      text,
		ai.PROMPT_VAR_KNOWN_UNITS:  sb.String(),
		ai.PROMPT_VAR_RELATION_SET: strings.Join(types.RelationTypeNames(), ", "),
	})
	if err != nil {
		return nil, nil, err
	}

	resp, err := e.gateway.Complete(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, nil, fmt.Errorf("relation extraction gateway: %w", err)
	}

	records, err := ai.ParseJSONArray[rawTriple](resp.Content)
	if err != nil {
		// malformed output for one segment is salvageable, not fatal
		return nil, []types.JobWarning{{
			Kind:    types.WARNING_EXTRACTION,
			Stage:   types.JOB_STATE_EXTRACTING_RELATIONS,
			Message: fmt.Sprintf("unparseable relation output: %s", err.Error()),
		}}, nil
	}

	var candidates []types.CandidateTriple
	// 同一段落内重复的 (s,p,o) 只算一次, 佐证计数只统计不同段落
	seen := make(map[[3]string]int)
	for _, rec := range records {
		rec.SubjectID = strings.TrimSpace(rec.SubjectID)
		rec.ObjectID = strings.TrimSpace(rec.ObjectID)
		rec.Predicate = strings.TrimSpace(rec.Predicate)

		if rec.SubjectID == rec.ObjectID {
			continue
		}
		if _, ok := known[rec.SubjectID]; !ok {
			slog.Debug("triple endpoint outside resolved set", slog.String("subject", rec.SubjectID))
			continue
		}
		if _, ok := known[rec.ObjectID]; !ok {
			slog.Debug("triple endpoint outside resolved set", slog.String("object", rec.ObjectID))
			continue
		}
		if rec.Predicate == "" {
			continue
		}

		relType := types.RelationTypeFromString(rec.RelationType)
		if relType == "" {
			relType = types.InferRelationType(rec.Predicate)
		}

		candidate := types.CandidateTriple{
			SubjectID:     rec.SubjectID,
			Predicate:     rec.Predicate,
			ObjectID:      rec.ObjectID,
			RelationType:  relType,
			Bidirectional: rec.Bidirectional || relType.Symmetric(),
			Confidence:    clamp01(rec.Confidence),
			Context:       rec.Context,
			Segments:      1,
		}
		if i, ok := seen[candidate.Key()]; ok {
			if candidate.Confidence > candidates[i].Confidence {
				candidates[i].Confidence = candidate.Confidence
				candidates[i].Context = candidate.Context
			}
			candidates[i].Bidirectional = candidates[i].Bidirectional || candidate.Bidirectional
			continue
		}
		seen[candidate.Key()] = len(candidates)
		candidates = append(candidates, candidate)
	}

	return candidates, nil, nil
}

// MergeDuplicates folds duplicate (subject, predicate, object)
// candidates, keeping the highest confidence and counting independent
// corroborating segments.
func MergeDuplicates(candidates []types.CandidateTriple) []types.CandidateTriple {
	index := make(map[[3]string]int, len(candidates))
	var out []types.CandidateTriple
	for _, c := range candidates {
		key := c.Key()
		if i, ok := index[key]; ok {
			if c.Confidence > out[i].Confidence {
				out[i].Confidence = c.Confidence
				out[i].Context = c.Context
			}
			out[i].Bidirectional = out[i].Bidirectional || c.Bidirectional
			out[i].Segments += c.Segments
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}
