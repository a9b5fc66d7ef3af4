package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// 任务类型
	TaskTypeImportJob = "import:job"

	// 导入队列名称
	ImportQueueName = "import"

	// 重试和超时配置
	MaxRetries  = 3
	TaskTimeout = 30 * time.Minute
)

// ImportJobTask 导入任务
type ImportJobTask struct {
	JobID      string `json:"job_id"`
	GraphID    string `json:"graph_id"`
	SourceHash string `json:"source_hash"`
}

// ImportQueue 基于 Asynq 的导入队列管理器
type ImportQueue struct {
	client    *asynq.Client
	server    *asynq.Server
	keyPrefix string
}

// NewImportQueueWithClient 使用已存在的 Client 创建队列
// 适用于多个队列共享同一个 asynq 连接的场景
func NewImportQueueWithClient(keyPrefix string, client *asynq.Client) *ImportQueue {
	if keyPrefix == "" {
		keyPrefix = "mindarch"
	}

	return &ImportQueue{
		keyPrefix: keyPrefix,
		client:    client,
	}
}

// NewImportQueue 创建带 worker 的队列
func NewImportQueue(keyPrefix string, redisOpt asynq.RedisClientOpt, concurrency int) *ImportQueue {
	q := NewImportQueueWithClient(keyPrefix, asynq.NewClient(redisOpt))
	if concurrency > 0 {
		q.server = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{ImportQueueName: 1},
			Logger:      NewAsynqLogger(),
		})
	}
	return q
}

// EnqueueJob 将导入任务加入队列。TaskID 取 job id, 同一个任务重复投递
// 会被 asynq 去重; source hash 一小时内唯一, 挡住重复文档的并发提交。
func (q *ImportQueue) EnqueueJob(ctx context.Context, task ImportJobTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeImportJob, payload,
		asynq.TaskID(task.JobID),
		asynq.MaxRetry(MaxRetries),
		asynq.Timeout(TaskTimeout),
		asynq.Unique(time.Hour),
		asynq.Queue(ImportQueueName),
	))
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	slog.Info("import job enqueued",
		slog.String("job_id", task.JobID),
		slog.String("graph_id", task.GraphID))

	return nil
}

// EnqueueDelayedJob 将任务加入延迟队列, 用于卡死任务的重新投递
func (q *ImportQueue) EnqueueDelayedJob(ctx context.Context, task ImportJobTask, delay time.Duration) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeImportJob, payload,
		asynq.MaxRetry(MaxRetries),
		asynq.Timeout(TaskTimeout),
		asynq.ProcessIn(delay),
		asynq.Queue(ImportQueueName),
	))
	if err != nil {
		return fmt.Errorf("failed to enqueue delayed task: %w", err)
	}

	slog.Info("import job scheduled for delayed execution",
		slog.String("job_id", task.JobID),
		slog.Duration("delay", delay))

	return nil
}

// HandlerFunc Asynq 任务处理器函数类型
type HandlerFunc func(ctx context.Context, task ImportJobTask) error

// SetupHandler 设置任务处理器
func (q *ImportQueue) SetupHandler(handler HandlerFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskTypeImportJob, func(ctx context.Context, task *asynq.Task) error {
		var payload ImportJobTask
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
		}
		return handler(ctx, payload)
	})

	return mux
}

// asynqLogger 适配器，将 asynq 日志输出到项目的 slog
type asynqLogger struct{}

func NewAsynqLogger() *asynqLogger {
	return &asynqLogger{}
}

func (l *asynqLogger) Debug(args ...any) {
	slog.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...any) {
	slog.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...any) {
	slog.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...any) {
	slog.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// StartWorker 启动 worker（运行 Server）
// 如果在创建时未指定并发数，此方法会 panic
func (q *ImportQueue) StartWorker(mux *asynq.ServeMux) error {
	if q.server == nil {
		panic("server not initialized: concurrency must be > 0 when creating ImportQueue")
	}
	return q.server.Run(mux)
}

// Shutdown 优雅关闭队列资源
func (q *ImportQueue) Shutdown() {
	slog.Info("Shutting down import queue")

	if q.client != nil {
		if err := q.client.Close(); err != nil {
			slog.Error("Failed to close asynq client", slog.String("error", err.Error()))
		}
	}

	if q.server != nil {
		q.server.Shutdown()
	}
}
