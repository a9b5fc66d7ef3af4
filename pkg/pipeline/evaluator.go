package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/types"
)

// Confidence blend weights. Documented here once, never re-derived per
// call: final = 0.6*model + 0.25*lexical + 0.15*overlap, then the
// corroboration bonus 1-(1-c)*0.8^(n-1) for n supporting segments.
const (
	weightModel   = 0.6
	weightLexical = 0.25
	weightOverlap = 0.15

	corroborationDecay = 0.8
)

type TripleDisposition string

const (
	DISPOSITION_ACCEPT  TripleDisposition = "accept"
	DISPOSITION_FLAG    TripleDisposition = "flag"
	DISPOSITION_DISCARD TripleDisposition = "discard"
)

// TripleSignals carries the supporting evidence for one candidate
// triple beyond the model-reported confidence.
type TripleSignals struct {
	// Lexical is the resolution match strength of the endpoints.
	Lexical float64
	// Overlap is how much of the triple's context is present in the
	// source segment.
	Overlap float64
	// Segments is the count of independent segments corroborating the
	// triple.
	Segments int
}

// Evaluator computes final confidence for triples and quality scores
// for units, and gates auto-acceptance.
type Evaluator struct {
	cfg EvaluatorConfig
}

func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// FinalConfidence combines the model confidence with structural
// corroboration. Monotone in every input, always within [0,1], and a
// triple corroborated by n>=2 segments never scores below the single
// segment score.
func (e *Evaluator) FinalConfidence(model float64, sig TripleSignals) float64 {
	c := weightModel*clamp01(model) + weightLexical*clamp01(sig.Lexical) + weightOverlap*clamp01(sig.Overlap)
	if sig.Segments > 1 {
		c = 1 - (1-c)*math.Pow(corroborationDecay, float64(sig.Segments-1))
	}
	return clamp01(c)
}

// Disposition gates a confidence value against the configured
// thresholds.
func (e *Evaluator) Disposition(confidence float64) TripleDisposition {
	switch {
	case confidence >= e.cfg.AcceptThreshold:
		return DISPOSITION_ACCEPT
	case confidence < e.cfg.DiscardThreshold:
		return DISPOSITION_DISCARD
	default:
		return DISPOSITION_FLAG
	}
}

// ContextOverlap measures how much of the triple's supporting context
// actually appears in the source segment.
func ContextOverlap(context, segment string) float64 {
	context = strings.TrimSpace(context)
	if context == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(segment), strings.ToLower(context)) {
		return 1
	}
	return jaccard(tokenize(strings.ToLower(context)), tokenize(strings.ToLower(segment)))
}

// UnitQuality scores a unit on completeness and extraction confidence.
func (e *Evaluator) UnitQuality(unit *types.KnowledgeUnit, extractionConfidence float64) float64 {
	var completeness float64
	checks := []bool{
		strings.TrimSpace(unit.Title) != "",
		strings.TrimSpace(unit.Content) != "",
		unit.UnitType != types.UNIT_TYPE_UNKNOWN && unit.UnitType != "",
		strings.TrimSpace(unit.CanonicalName) != "",
		len(unit.Tags) > 0,
		len(unit.Knowledge) > 0,
	}
	for _, ok := range checks {
		if ok {
			completeness += 1.0 / float64(len(checks))
		}
	}

	return clamp01(0.5*completeness + 0.5*clamp01(extractionConfidence))
}

// GraphReport aggregates unit quality, triple confidence, connectivity
// and domain coverage into a 0-100 quality score with improvement
// suggestions.
func (e *Evaluator) GraphReport(graph *types.KnowledgeGraph, units []types.KnowledgeUnit, triples []types.SemanticTriple) types.GraphQualityReport {
	report := types.GraphQualityReport{
		GraphID:     graph.ID,
		UnitCount:   len(units),
		TripleCount: len(triples),
	}

	if len(units) == 0 {
		report.Suggestions = append(report.Suggestions, "graph is empty, import a document to get started")
		return report
	}

	var unitQuality float64
	domains := make(map[string]int)
	for i := range units {
		unitQuality += units[i].QualityScore
		for _, tag := range units[i].Tags {
			domains[tag]++
		}
	}
	report.UnitQuality = unitQuality / float64(len(units))

	connected := make(map[string]struct{}, len(units))
	var tripleConfidence float64
	for i := range triples {
		tripleConfidence += triples[i].Confidence
		connected[triples[i].SubjectID] = struct{}{}
		connected[triples[i].ObjectID] = struct{}{}
	}
	if len(triples) > 0 {
		report.TripleConfidence = tripleConfidence / float64(len(triples))
	}
	report.Connectivity = float64(len(connected)) / float64(len(units))

	report.Domains = topDomains(domains, 10)
	report.DomainCoverage = clamp01(float64(len(domains)) / 10)

	report.QualityScore = math.Round(100 * (0.35*report.UnitQuality +
		0.3*report.TripleConfidence +
		0.25*report.Connectivity +
		0.1*report.DomainCoverage))

	if report.Connectivity < 0.5 {
		report.Suggestions = append(report.Suggestions,
			fmt.Sprintf("%d of %d units have no relations, consider importing richer source material", len(units)-len(connected), len(units)))
	}
	if report.TripleConfidence > 0 && report.TripleConfidence < 0.6 {
		report.Suggestions = append(report.Suggestions, "average relation confidence is low, review pending-review triples")
	}
	if report.UnitQuality < 0.5 {
		report.Suggestions = append(report.Suggestions, "many units lack tags or structured knowledge, consider enriching them")
	}

	return report
}

func topDomains(counts map[string]int, limit int) []string {
	type kv struct {
		name  string
		count int
	}
	list := make([]kv, 0, len(counts))
	for name, count := range counts {
		list = append(list, kv{name, count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].name < list[j].name
	})
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, v.name)
	}
	return out
}
