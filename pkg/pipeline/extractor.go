package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

// UnitExtractor turns one text segment into candidate knowledge units.
type UnitExtractor struct {
	gateway ai.Gateway
}

func NewUnitExtractor(gateway ai.Gateway) *UnitExtractor {
	return &UnitExtractor{gateway: gateway}
}

// rawUnit mirrors the JSON shape the extraction prompt asks for.
type rawUnit struct {
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	UnitType      string          `json:"unit_type"`
	CanonicalName string          `json:"canonical_name"`
	Aliases       []string        `json:"aliases"`
	Tags          []string        `json:"tags"`
	Knowledge     json.RawMessage `json:"knowledge"`
	Confidence    float64         `json:"confidence"`
}

// Extract asks the model for knowledge units found in segment. Known
// canonical names from the target graph are passed along as a duplicate
// hint. Per-record validation failures are salvaged into warnings, the
// stage only fails when nothing usable comes back from non-empty input.
func (e *UnitExtractor) Extract(ctx context.Context, segment int, text string, knownNames []string) ([]types.CandidateUnit, []types.JobWarning, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, nil
	}

	tpl := ai.PROMPT_EXTRACT_UNITS_EN
	if e.gateway.Lang() == ai.MODEL_BASE_LANGUAGE_CN {
		tpl = ai.PROMPT_EXTRACT_UNITS_CN
	}

	content := text
	if len(knownNames) > 0 {
		content = fmt.Sprintf("%s\n\nAlready known canonical names in this graph: %s", text, strings.Join(knownNames, ", "))
	}

	prompt, err := ai.BuildPrompt(tpl, map[string]string{
		ai.PROMPT_VAR_CONTENT: content,
	})
	if err != nil {
		return nil, nil, err
	}

	resp, err := e.gateway.Complete(ctx, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, nil, fmt.Errorf("unit extraction gateway: %w", err)
	}

	records, err := ai.ParseJSONArray[rawUnit](resp.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var (
		candidates []types.CandidateUnit
		warnings   []types.JobWarning
	)
	for i, rec := range records {
		candidate, err := e.validate(rec, segment)
		if err != nil {
			warnings = append(warnings, types.JobWarning{
				Kind:    types.WARNING_EXTRACTION,
				Stage:   types.JOB_STATE_EXTRACTING_UNITS,
				Message: fmt.Sprintf("record %d dropped: %s", i, err.Error()),
			})
			slog.Warn("candidate unit dropped",
				slog.Int("segment", segment),
				slog.Int("record", i),
				slog.String("error", err.Error()))
			continue
		}
		candidates = append(candidates, candidate)
	}

	if len(candidates) == 0 && len(records) > 0 {
		return nil, warnings, fmt.Errorf("%w: zero well-formed unit records", ErrExtractionFailed)
	}
	return candidates, warnings, nil
}

func (e *UnitExtractor) validate(rec rawUnit, segment int) (types.CandidateUnit, error) {
	var c types.CandidateUnit

	rec.Title = strings.TrimSpace(rec.Title)
	rec.Content = strings.TrimSpace(rec.Content)
	rec.CanonicalName = strings.TrimSpace(rec.CanonicalName)

	if rec.Title == "" {
		rec.Title = rec.CanonicalName
	}
	if rec.Title == "" {
		return c, fmt.Errorf("missing title")
	}
	if rec.Content == "" {
		return c, fmt.Errorf("missing content")
	}
	if rec.CanonicalName == "" {
		rec.CanonicalName = rec.Title
	}

	c.Title = utils.TruncateTitle(rec.Title)
	c.Content = rec.Content
	c.UnitType = types.UnitTypeFromString(rec.UnitType)
	c.CanonicalName = rec.CanonicalName
	c.Tags = dedupStrings(rec.Tags, 5)
	c.Knowledge = types.Metadata(rec.Knowledge)
	c.Confidence = clamp01(rec.Confidence)
	c.Segment = segment

	// aliases unique within the unit, canonical excluded
	seen := map[string]struct{}{strings.ToLower(c.CanonicalName): {}}
	for _, a := range rec.Aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		c.Aliases = append(c.Aliases, a)
	}

	return c, nil
}

func dedupStrings(in []string, limit int) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
