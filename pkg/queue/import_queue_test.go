package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
)

// TestImportQueue_SetupHandler 测试任务分发到处理器
func TestImportQueue_SetupHandler(t *testing.T) {
	q := NewImportQueueWithClient("test", nil)

	var got ImportJobTask
	mux := q.SetupHandler(func(ctx context.Context, task ImportJobTask) error {
		got = task
		return nil
	})

	payload, err := json.Marshal(ImportJobTask{JobID: "j1", GraphID: "g1", SourceHash: "abc"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskTypeImportJob, payload)); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	if got.JobID != "j1" || got.GraphID != "g1" || got.SourceHash != "abc" {
		t.Errorf("handler received wrong payload: %+v", got)
	}
}

// TestImportQueue_SetupHandlerBadPayload 测试坏负载不重试
func TestImportQueue_SetupHandlerBadPayload(t *testing.T) {
	q := NewImportQueueWithClient("", nil)

	mux := q.SetupHandler(func(ctx context.Context, task ImportJobTask) error {
		t.Fatal("handler must not run for a bad payload")
		return nil
	})

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskTypeImportJob, []byte("not json")))
	if err == nil {
		t.Fatal("expected error for bad payload")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("bad payload should skip retry, got %v", err)
	}
}

func TestImportQueue_DefaultKeyPrefix(t *testing.T) {
	q := NewImportQueueWithClient("", nil)
	if q.keyPrefix != "mindarch" {
		t.Errorf("expected default key prefix, got %q", q.keyPrefix)
	}
}
