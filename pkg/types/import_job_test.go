package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStateTransitions(t *testing.T) {
	order := []JobState{
		JOB_STATE_PENDING,
		JOB_STATE_EXTRACTING_UNITS,
		JOB_STATE_RESOLVING_ENTITIES,
		JOB_STATE_EXTRACTING_RELATIONS,
		JOB_STATE_EVALUATING,
		JOB_STATE_COMMITTING,
		JOB_STATE_DONE,
	}
	for i := 0; i < len(order)-1; i++ {
		assert.True(t, order[i].CanTransition(order[i+1]), "%s -> %s", order[i], order[i+1])
	}

	// 不允许跳级或回退
	assert.False(t, JOB_STATE_PENDING.CanTransition(JOB_STATE_EVALUATING))
	assert.False(t, JOB_STATE_COMMITTING.CanTransition(JOB_STATE_PENDING))
}

func TestJobStateFailureReachableFromAnyLiveState(t *testing.T) {
	live := []JobState{
		JOB_STATE_PENDING,
		JOB_STATE_EXTRACTING_UNITS,
		JOB_STATE_RESOLVING_ENTITIES,
		JOB_STATE_EXTRACTING_RELATIONS,
		JOB_STATE_EVALUATING,
		JOB_STATE_COMMITTING,
	}
	for _, s := range live {
		assert.True(t, s.CanTransition(JOB_STATE_FAILED), "%s -> failed", s)
		assert.True(t, s.CanTransition(JOB_STATE_CANCELLED), "%s -> cancelled", s)
	}

	for _, s := range []JobState{JOB_STATE_DONE, JOB_STATE_FAILED, JOB_STATE_CANCELLED} {
		assert.True(t, s.Terminal())
		assert.False(t, s.CanTransition(JOB_STATE_FAILED))
	}
}

func TestJobStateKnown(t *testing.T) {
	assert.True(t, JOB_STATE_EVALUATING.Known())
	assert.False(t, JobState("exploding").Known())
}
