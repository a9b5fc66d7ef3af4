package openai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindarch-ai/mindarch/pkg/ai"
)

func TestCompleteRejectsOverBudgetPrompt(t *testing.T) {
	driver := New("test-token", "", ai.ModelName{})

	huge := strings.Repeat("knowledge graph extraction pipeline ", 4000)
	msgs := []ai.Message{{Role: "user", Content: huge}}

	assert.True(t, driver.MsgIsOverLimit(msgs))

	// 超限请求在发往上游之前就要被拒绝
	_, err := driver.Complete(context.Background(), msgs)
	assert.ErrorIs(t, err, ai.ErrPromptOverLimit)
}

func TestMsgWithinBudget(t *testing.T) {
	driver := New("test-token", "", ai.ModelName{})

	msgs := []ai.Message{{Role: "user", Content: "Alice founded Acme."}}
	assert.False(t, driver.MsgIsOverLimit(msgs))
}
