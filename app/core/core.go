package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mindarch-ai/mindarch/app/core/srv"
	"github.com/mindarch-ai/mindarch/app/store/sqlstore"
	"github.com/mindarch-ai/mindarch/pkg/locker"
	"github.com/mindarch-ai/mindarch/pkg/pipeline"
	"github.com/mindarch-ai/mindarch/pkg/queue"
	"github.com/mindarch-ai/mindarch/pkg/utils"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	httpEngine *gin.Engine

	rds    *redis.Client
	queue  *queue.ImportQueue
	locker pipeline.Locker

	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		panic(fmt.Errorf("pipeline config: %w", err))
	}

	utils.SetupIDWorker(1)

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("mindarch", "core"),
		httpEngine: gin.New(),
	}

	setupSqlStore(core)
	setupRedis(core)

	core.srv = srv.SetupSrvs(srv.ApplyAI(cfg.AI))

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
	slog.Info("sql store ready")
}

// setupRedis wires the distributed pieces. Without a redis address the
// service still runs: jobs execute inline and the resolution lock is
// process local, which is enough for a single node deployment.
func setupRedis(core *Core) {
	if core.cfg.Redis.Addr == "" {
		core.locker = locker.NewLocalLocker()
		slog.Warn("redis not configured, using in-process lock and inline job execution")
		return
	}

	core.rds = redis.NewClient(&redis.Options{
		Addr:         core.cfg.Redis.Addr,
		Password:     core.cfg.Redis.Password,
		DB:           core.cfg.Redis.DB,
		PoolSize:     core.cfg.Redis.PoolSize,
		MinIdleConns: core.cfg.Redis.MinIdleConns,
		MaxRetries:   core.cfg.Redis.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := core.rds.Ping(ctx).Err(); err != nil {
		panic(fmt.Errorf("redis ping: %w", err))
	}

	core.locker = locker.NewRedisLocker(core.rds)
	core.queue = queue.NewImportQueue(core.cfg.Redis.KeyPrefix, asynq.RedisClientOpt{
		Addr:     core.cfg.Redis.Addr,
		Password: core.cfg.Redis.Password,
		DB:       core.cfg.Redis.DB,
	}, core.cfg.Import.Concurrency)
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

// Queue returns nil when redis is not configured.
func (s *Core) Queue() *queue.ImportQueue {
	return s.queue
}

func (s *Core) Locker() pipeline.Locker {
	return s.locker
}
