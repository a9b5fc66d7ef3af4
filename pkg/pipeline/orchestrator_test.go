package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindarch-ai/mindarch/pkg/ai"
	"github.com/mindarch-ai/mindarch/pkg/types"
)

// aliceAcmeGateway scripts the model for the canonical two-unit, one
// relation document "Alice founded Acme. Acme is a company."
func aliceAcmeGateway() *fakeGateway {
	return &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			switch {
			case isUnitPrompt(prompt):
				return `[
					{"title":"Alice","content":"founder of Acme","unit_type":"entity","canonical_name":"Alice","confidence":0.9},
					{"title":"Acme","content":"a company founded by Alice","unit_type":"entity","canonical_name":"Acme","tags":["business"],"confidence":0.95}
				]`, nil
			case isRelationPrompt(prompt):
				ids := parseKnownUnits(prompt)
				return fmt.Sprintf(`[{"subject_id":"%s","predicate":"founded","object_id":"%s","relation_type":"action","confidence":0.9,"context":"Alice founded Acme"}]`,
					ids["Alice"], ids["Acme"]), nil
			default:
				return "", fmt.Errorf("unexpected prompt")
			}
		},
	}
}

func newTestOrchestrator(storage *fakeStorage, jobs *fakeJobStore, gw ai.Gateway) (*Orchestrator, *fakeLocker) {
	locker := &fakeLocker{}
	o := NewOrchestrator(storage, jobs, locker, nil, gw, singleSegment, DefaultConfig())
	return o, locker
}

func TestOrchestratorHappyPath(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	jobs := &fakeJobStore{}
	o, locker := newTestOrchestrator(storage, jobs, aliceAcmeGateway())

	job := testJob("g1", "Alice founded Acme. Acme is a company.")
	require.NoError(t, o.Run(context.Background(), job))

	assert.Equal(t, types.JOB_STATE_DONE, jobs.final)
	require.NotNil(t, jobs.summary)
	assert.Equal(t, 2, jobs.summary.UnitsCreated)
	assert.Equal(t, 0, jobs.summary.UnitsMerged)
	assert.Equal(t, 1, jobs.summary.TriplesAccepted)

	assert.Equal(t, 2, storage.countLiveUnits())
	assert.Equal(t, 1, storage.countTriples())
	assert.NotNil(t, storage.liveUnitByCanonical("Alice"))
	assert.NotNil(t, storage.liveUnitByCanonical("Acme"))

	assert.Equal(t, []types.JobState{
		types.JOB_STATE_EXTRACTING_UNITS,
		types.JOB_STATE_RESOLVING_ENTITIES,
		types.JOB_STATE_EXTRACTING_RELATIONS,
		types.JOB_STATE_EVALUATING,
		types.JOB_STATE_COMMITTING,
	}, jobs.states)

	// 解析阶段的图级锁已释放
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 0, locker.held)
	assert.Empty(t, jobs.warnings)
}

// 重复提示读取失败只是降级, 抽取照常进行
func TestOrchestratorHintReadFailureDegrades(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	storage.failListLiveLeft = 1
	jobs := &fakeJobStore{}
	o, _ := newTestOrchestrator(storage, jobs, aliceAcmeGateway())

	require.NoError(t, o.Run(context.Background(), testJob("g1", "Alice founded Acme. Acme is a company.")))

	assert.Equal(t, types.JOB_STATE_DONE, jobs.final)
	assert.Equal(t, 2, storage.countLiveUnits())
}

func TestOrchestratorReimportMergesByAlias(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	jobs := &fakeJobStore{}
	o, _ := newTestOrchestrator(storage, jobs, aliceAcmeGateway())

	require.NoError(t, o.Run(context.Background(), testJob("g1", "Alice founded Acme. Acme is a company.")))
	require.Equal(t, 2, storage.countLiveUnits())

	// 近似重复文档, 以别名提及同一家公司
	gw2 := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			switch {
			case isUnitPrompt(prompt):
				return `[{"title":"Acme Corp","content":"the company also known as Acme","unit_type":"entity","canonical_name":"Acme Corp","aliases":["Acme"],"confidence":0.9}]`, nil
			case isRelationPrompt(prompt):
				return `[]`, nil
			default:
				return "", fmt.Errorf("unexpected prompt")
			}
		},
	}
	jobs2 := &fakeJobStore{}
	o2, _ := newTestOrchestrator(storage, jobs2, gw2)
	require.NoError(t, o2.Run(context.Background(), testJob("g1", "Acme Corp shipped a product.")))

	assert.Equal(t, types.JOB_STATE_DONE, jobs2.final)
	assert.Equal(t, 1, jobs2.summary.UnitsMerged)
	assert.Equal(t, 0, jobs2.summary.UnitsCreated)
	assert.Equal(t, 2, storage.countLiveUnits())

	acme := storage.liveUnitByCanonical("Acme")
	require.NotNil(t, acme)
	assert.Contains(t, []string(acme.Aliases), "Acme Corp")
	assert.Equal(t, 2, acme.RefCount)
}

func TestOrchestratorRelationTimeoutFailsJobKeepsUnits(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	jobs := &fakeJobStore{}

	gw := aliceAcmeGateway()
	inner := gw.complete
	gw.complete = func(prompt string) (string, error) {
		if isRelationPrompt(prompt) {
			return "", fmt.Errorf("gateway: %w", ai.ErrModelTimeout)
		}
		return inner(prompt)
	}

	o, _ := newTestOrchestrator(storage, jobs, gw)
	err := o.Run(context.Background(), testJob("g1", "Alice founded Acme. Acme is a company."))
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrModelTimeout)

	assert.Equal(t, types.JOB_STATE_FAILED, jobs.final)
	assert.NotEmpty(t, jobs.finalErr)
	// 实体已提交, 三元组一条未提交
	assert.Equal(t, 2, storage.countLiveUnits())
	assert.Equal(t, 0, storage.countTriples())
}

func TestOrchestratorCancellationBetweenStages(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	jobs := &fakeJobStore{cancelAfter: types.JOB_STATE_EXTRACTING_UNITS}
	o, _ := newTestOrchestrator(storage, jobs, aliceAcmeGateway())

	require.NoError(t, o.Run(context.Background(), testJob("g1", "Alice founded Acme.")))

	assert.Equal(t, types.JOB_STATE_CANCELLED, jobs.final)
	// 在解析阶段开始前取消, 不落任何数据
	assert.Equal(t, 0, storage.countLiveUnits())
	assert.Equal(t, 0, storage.countTriples())
}

func TestOrchestratorCommitRetriesOnConflict(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	storage.conflictsLeft = 1
	jobs := &fakeJobStore{}
	o, _ := newTestOrchestrator(storage, jobs, aliceAcmeGateway())

	require.NoError(t, o.Run(context.Background(), testJob("g1", "Alice founded Acme. Acme is a company.")))
	assert.Equal(t, types.JOB_STATE_DONE, jobs.final)
	assert.Equal(t, 1, storage.countTriples())
}

func TestOrchestratorCommitConflictTwiceFails(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	storage.conflictsLeft = 2
	jobs := &fakeJobStore{}
	o, _ := newTestOrchestrator(storage, jobs, aliceAcmeGateway())

	err := o.Run(context.Background(), testJob("g1", "Alice founded Acme. Acme is a company."))
	assert.ErrorIs(t, err, ErrStorageConflict)
	assert.Equal(t, types.JOB_STATE_FAILED, jobs.final)
	// 单元仍然保留, 冲突只影响三元组提交
	assert.Equal(t, 2, storage.countLiveUnits())
	assert.Equal(t, 0, storage.countTriples())
}

func TestOrchestratorTerminalJobIsNoop(t *testing.T) {
	jobs := &fakeJobStore{}
	o, _ := newTestOrchestrator(newFakeStorage(), jobs, aliceAcmeGateway())

	job := testJob("g1", "whatever")
	job.State = types.JOB_STATE_DONE
	require.NoError(t, o.Run(context.Background(), job))
	assert.Empty(t, jobs.states)
	assert.Equal(t, types.JobState(""), jobs.final)
}

func TestOrchestratorEmptyExtractionFails(t *testing.T) {
	storage := newFakeStorage()
	storage.graphs["g1"] = &types.KnowledgeGraph{ID: "g1", Name: "test"}
	jobs := &fakeJobStore{}
	gw := &fakeGateway{
		lang: ai.MODEL_BASE_LANGUAGE_EN,
		complete: func(prompt string) (string, error) {
			return `[]`, nil
		},
	}
	o, _ := newTestOrchestrator(storage, jobs, gw)

	err := o.Run(context.Background(), testJob("g1", "dense but unextractable text"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, types.JOB_STATE_FAILED, jobs.final)
}
