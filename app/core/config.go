package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mindarch-ai/mindarch/app/core/srv"
	"github.com/mindarch-ai/mindarch/pkg/pipeline"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	conf.SetConfigBytes(raw)

	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	conf.applyDefaults()
	return *conf
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	if err := toml.Unmarshal(c.bytes, cfg); err != nil {
		return err
	}
	return nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	c.applyDefaults()
	return c
}

type CoreConfig struct {
	Addr     string      `toml:"addr"`
	Log      Log         `toml:"log"`
	Postgres PGConfig    `toml:"postgres"`
	Redis    RedisConfig `toml:"redis"`

	AI srv.AIConfig `toml:"ai"`

	Pipeline pipeline.Config `toml:"pipeline"`
	Import   ImportConfig    `toml:"import"`

	bytes []byte `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

func (c *CoreConfig) applyDefaults() {
	def := pipeline.DefaultConfig()
	if c.Pipeline.Resolver.AutoMergeThreshold == 0 {
		c.Pipeline.Resolver = def.Resolver
	}
	if c.Pipeline.Evaluator.AcceptThreshold == 0 {
		c.Pipeline.Evaluator = def.Evaluator
	}
	if c.Pipeline.StageTimeout == 0 && c.Pipeline.StageSeconds == 0 {
		c.Pipeline.StageTimeout = def.StageTimeout
	}
	if c.Pipeline.LockTTL == 0 && c.Pipeline.LockSeconds == 0 {
		c.Pipeline.LockTTL = def.LockTTL
	}
	c.Import.applyDefaults()
}

// ImportConfig 导入侧参数, 与流水线阈值分开配置
type ImportConfig struct {
	ChunkRunes  int `toml:"chunk_runes"`
	Concurrency int `toml:"concurrency"`
	// MaxRetries 超过后不再重新入队
	MaxRetries int `toml:"max_retries"`
	// StaleAfterSeconds 非终态任务多久未更新视为滞留
	StaleAfterSeconds int `toml:"stale_after_seconds"`
}

func (c *ImportConfig) applyDefaults() {
	if c.ChunkRunes <= 0 {
		c.ChunkRunes = 1600
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.StaleAfterSeconds <= 0 {
		c.StaleAfterSeconds = 1800
	}
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("MINDARCH_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.AI.FromENV()
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("MINDARCH_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	PoolSize     int `toml:"pool_size"`
	MinIdleConns int `toml:"min_idle_conns"`
	MaxRetries   int `toml:"max_retries"`

	// KeyPrefix 用于隔离不同环境
	KeyPrefix string `toml:"key_prefix"`
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("MINDARCH_REDIS_ADDR")
	r.Password = os.Getenv("MINDARCH_REDIS_PASSWORD")
	if dbStr := os.Getenv("MINDARCH_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("MINDARCH_API_LOG_LEVEL")
	l.Path = os.Getenv("MINDARCH_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
