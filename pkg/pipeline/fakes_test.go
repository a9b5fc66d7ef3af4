package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

func TestMain(m *testing.M) {
	utils.SetupIDWorker(1)
	m.Run()
}

// fakeGateway scripts model behavior per prompt.
type fakeGateway struct {
	lang     string
	complete func(prompt string) (string, error)
	embed    func(content []string) ([][]float32, error)
	calls    int
}

func (g *fakeGateway) Complete(ctx context.Context, messages []ai.Message) (ai.CompleteResult, error) {
	g.calls++
	if err := ctx.Err(); err != nil {
		return ai.CompleteResult{}, err
	}
	content, err := g.complete(messages[len(messages)-1].Content)
	if err != nil {
		return ai.CompleteResult{}, err
	}
	return ai.CompleteResult{Content: content, Model: "fake"}, nil
}

func (g *fakeGateway) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	if g.embed == nil {
		return ai.EmbeddingResult{}, ai.ErrModelUnavailable
	}
	data, err := g.embed(content)
	if err != nil {
		return ai.EmbeddingResult{}, err
	}
	return ai.EmbeddingResult{Data: data}, nil
}

func (g *fakeGateway) Lang() string {
	if g.lang == "" {
		return ai.MODEL_BASE_LANGUAGE_EN
	}
	return g.lang
}

// fakeStorage is an in-memory Storage implementation.
type fakeStorage struct {
	mu      sync.Mutex
	graphs  map[string]*types.KnowledgeGraph
	units   map[string]*types.KnowledgeUnit
	triples map[string]*types.SemanticTriple

	conflictsLeft    int // InsertTriples fails with ErrStorageConflict this many times
	failUpsert       error
	failListLiveLeft int // ListLiveUnits errors this many times
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		graphs:  make(map[string]*types.KnowledgeGraph),
		units:   make(map[string]*types.KnowledgeUnit),
		triples: make(map[string]*types.SemanticTriple),
	}
}

func (s *fakeStorage) GetGraph(ctx context.Context, graphID string) (*types.KnowledgeGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[graphID]
	if !ok {
		return nil, fmt.Errorf("graph %s not found", graphID)
	}
	clone := *g
	return &clone, nil
}

func (s *fakeStorage) GetUnitByCanonical(ctx context.Context, graphID, name string) (*types.KnowledgeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.GraphID == graphID && u.Status.Live() && strings.EqualFold(u.CanonicalName, name) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *fakeStorage) GetUnitsByAlias(ctx context.Context, graphID, alias string) ([]types.KnowledgeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.KnowledgeUnit
	for _, u := range s.units {
		if u.GraphID != graphID || !u.Status.Live() {
			continue
		}
		if _, ok := u.AliasSet()[strings.ToLower(alias)]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStorage) ListLiveUnits(ctx context.Context, graphID string) ([]types.KnowledgeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failListLiveLeft > 0 {
		s.failListLiveLeft--
		return nil, fmt.Errorf("live units unavailable")
	}
	var out []types.KnowledgeUnit
	for _, u := range s.units {
		if u.GraphID == graphID && u.Status.Live() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStorage) GetUnits(ctx context.Context, graphID string, ids []string) ([]types.KnowledgeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.KnowledgeUnit
	for _, id := range ids {
		if u, ok := s.units[id]; ok && u.GraphID == graphID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStorage) UpsertUnits(ctx context.Context, graphID string, units []types.KnowledgeUnit) ([]types.KnowledgeUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert != nil {
		return nil, s.failUpsert
	}
	for i := range units {
		clone := units[i]
		s.units[clone.ID] = &clone
	}
	return units, nil
}

func (s *fakeStorage) InsertTriples(ctx context.Context, graphID string, triples []types.SemanticTriple) ([]types.SemanticTriple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return nil, ErrStorageConflict
	}
	var out []types.SemanticTriple
	for i := range triples {
		t := triples[i]
		key := fmt.Sprintf("%s|%s|%s|%s", t.SourceID, t.SubjectID, t.Predicate, t.ObjectID)
		if _, ok := s.triples[key]; ok {
			continue
		}
		s.triples[key] = &t
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStorage) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *fakeStorage) liveUnitByCanonical(name string) *types.KnowledgeUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.units {
		if u.Status.Live() && strings.EqualFold(u.CanonicalName, name) {
			return u
		}
	}
	return nil
}

func (s *fakeStorage) countLiveUnits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, u := range s.units {
		if u.Status.Live() {
			n++
		}
	}
	return n
}

func (s *fakeStorage) countTriples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.triples)
}

// fakeLocker counts acquisitions.
type fakeLocker struct {
	mu       sync.Mutex
	acquired int
	held     int
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	l.acquired++
	l.held++
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.held--
		l.mu.Unlock()
	}, nil
}

// fakeJobStore records job lifecycle updates.
type fakeJobStore struct {
	mu        sync.Mutex
	states    []types.JobState
	warnings  []types.JobWarning
	final     types.JobState
	finalErr  string
	summary   *types.JobSummary
	cancelled bool
	// cancelAfter cancels the job once this state has been reached
	cancelAfter types.JobState
}

func (j *fakeJobStore) UpdateState(ctx context.Context, jobID string, state types.JobState, progress int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.states = append(j.states, state)
	if j.cancelAfter != "" && state == j.cancelAfter {
		j.cancelled = true
	}
	return nil
}

func (j *fakeJobStore) AppendWarnings(ctx context.Context, jobID string, warnings []types.JobWarning) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.warnings = append(j.warnings, warnings...)
	return nil
}

func (j *fakeJobStore) FinishJob(ctx context.Context, jobID string, state types.JobState, summary *types.JobSummary, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.final = state
	j.finalErr = errMsg
	j.summary = summary
	return nil
}

func (j *fakeJobStore) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled, nil
}

var knownUnitLine = regexp.MustCompile(`(?m)^(\S+): (.+)$`)

// parseKnownUnits recovers the id -> name mapping a relation prompt was
// built with.
func parseKnownUnits(prompt string) map[string]string {
	byName := make(map[string]string)
	for _, m := range knownUnitLine.FindAllStringSubmatch(prompt, -1) {
		byName[m[2]] = m[1]
	}
	return byName
}

func isUnitPrompt(prompt string) bool {
	// 关系抽取模板里也会出现 knowledge units 字样, 必须匹配抽取模板独有的片段
	return strings.Contains(prompt, `Extract "knowledge units"`)
}

func isRelationPrompt(prompt string) bool {
	return strings.Contains(prompt, "Known units")
}

func isDisambiguationPrompt(prompt string) bool {
	return strings.Contains(prompt, "disambiguation expert")
}

// 三类模板的判别必须互斥, 否则脚本化网关会把关系抽取请求当成单元抽取
func TestScriptedGatewayPromptRouting(t *testing.T) {
	if !isUnitPrompt(ai.PROMPT_EXTRACT_UNITS_EN) {
		t.Fatal("unit template not recognized")
	}
	if isUnitPrompt(ai.PROMPT_EXTRACT_RELATIONS_EN) {
		t.Fatal("relation template misrouted to unit extraction")
	}
	if !isRelationPrompt(ai.PROMPT_EXTRACT_RELATIONS_EN) {
		t.Fatal("relation template not recognized")
	}
	if isRelationPrompt(ai.PROMPT_EXTRACT_UNITS_EN) {
		t.Fatal("unit template misrouted to relation extraction")
	}
}

func testJob(graphID, content string) *types.ImportJob {
	return &types.ImportJob{
		ID:         utils.GenUniqIDStr(),
		GraphID:    graphID,
		SourceName: "test.txt",
		SourceHash: utils.SHA256([]byte(content)),
		Content:    content,
		State:      types.JOB_STATE_PENDING,
	}
}

func singleSegment(text string) []string {
	return []string{text}
}
