package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mindarch-ai/mindarch/pkg/types"
)

var (
	// ErrExtractionFailed a whole extraction stage produced nothing usable.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrStorageConflict an optimistic commit collided with concurrent writes.
	ErrStorageConflict = errors.New("storage conflict")
)

// Storage is the repository boundary the pipeline commits through. The
// sqlstore adapter implements it; tests use in-memory fakes.
type Storage interface {
	GetGraph(ctx context.Context, graphID string) (*types.KnowledgeGraph, error)
	GetUnitByCanonical(ctx context.Context, graphID, name string) (*types.KnowledgeUnit, error)
	GetUnitsByAlias(ctx context.Context, graphID, alias string) ([]types.KnowledgeUnit, error)
	ListLiveUnits(ctx context.Context, graphID string) ([]types.KnowledgeUnit, error)
	GetUnits(ctx context.Context, graphID string, ids []string) ([]types.KnowledgeUnit, error)
	// UpsertUnits writes new and merged units in one transaction.
	UpsertUnits(ctx context.Context, graphID string, units []types.KnowledgeUnit) ([]types.KnowledgeUnit, error)
	// InsertTriples writes accepted triples in one transaction. A triple
	// already present for the same source is ignored, which keeps job
	// re-runs idempotent.
	InsertTriples(ctx context.Context, graphID string, triples []types.SemanticTriple) ([]types.SemanticTriple, error)
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes entity resolution per graph across concurrent jobs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// JobStore persists import job progress and results.
type JobStore interface {
	UpdateState(ctx context.Context, jobID string, state types.JobState, progress int) error
	AppendWarnings(ctx context.Context, jobID string, warnings []types.JobWarning) error
	FinishJob(ctx context.Context, jobID string, state types.JobState, summary *types.JobSummary, errMsg string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
}

// VectorStore keeps unit embeddings used as a duplicate hinting signal.
// The pipeline treats it as optional: a nil store disables the signal.
type VectorStore interface {
	UpsertUnitVectors(ctx context.Context, vectors []types.UnitVector) error
	Nearest(ctx context.Context, graphID string, embedding []float32, limit int) ([]types.UnitVectorQueryResult, error)
}

type ResolverConfig struct {
	// AutoMergeThreshold and above merges without consulting the model.
	AutoMergeThreshold float64 `toml:"auto_merge_threshold"`
	// EscalateThreshold up to AutoMergeThreshold asks the model to
	// disambiguate. Below resolves NEW.
	EscalateThreshold float64 `toml:"escalate_threshold"`
	// TokenWeight vs edit distance in the lexical similarity blend.
	TokenWeight   float64 `toml:"token_weight"`
	MaxCandidates int     `toml:"max_candidates"`
}

type EvaluatorConfig struct {
	AcceptThreshold  float64 `toml:"accept_threshold"`
	DiscardThreshold float64 `toml:"discard_threshold"`
}

type Config struct {
	Resolver  ResolverConfig  `toml:"resolver"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	// StageTimeout bounds each model-facing stage. Zero means no bound.
	StageTimeout time.Duration `toml:"-"`
	StageSeconds int           `toml:"stage_timeout_seconds"`
	// LockTTL bounds the per-graph resolution lock.
	LockTTL     time.Duration `toml:"-"`
	LockSeconds int           `toml:"lock_ttl_seconds"`
}

func DefaultConfig() Config {
	return Config{
		Resolver: ResolverConfig{
			AutoMergeThreshold: 0.85,
			EscalateThreshold:  0.6,
			TokenWeight:        0.5,
			MaxCandidates:      5,
		},
		Evaluator: EvaluatorConfig{
			AcceptThreshold:  0.7,
			DiscardThreshold: 0.4,
		},
		StageTimeout: time.Minute * 5,
		LockTTL:      time.Minute * 10,
	}
}

// Validate fails fast at startup. Bad thresholds are configuration
// errors, not runtime surprises.
func (c *Config) Validate() error {
	if c.StageTimeout == 0 && c.StageSeconds > 0 {
		c.StageTimeout = time.Duration(c.StageSeconds) * time.Second
	}
	if c.LockTTL == 0 && c.LockSeconds > 0 {
		c.LockTTL = time.Duration(c.LockSeconds) * time.Second
	}

	r := c.Resolver
	if r.AutoMergeThreshold <= 0 || r.AutoMergeThreshold > 1 {
		return fmt.Errorf("resolver.auto_merge_threshold must be in (0,1], got %v", r.AutoMergeThreshold)
	}
	if r.EscalateThreshold < 0 || r.EscalateThreshold >= r.AutoMergeThreshold {
		return fmt.Errorf("resolver.escalate_threshold must be in [0, auto_merge_threshold), got %v", r.EscalateThreshold)
	}
	if r.TokenWeight < 0 || r.TokenWeight > 1 {
		return fmt.Errorf("resolver.token_weight must be in [0,1], got %v", r.TokenWeight)
	}
	if r.MaxCandidates <= 0 {
		return fmt.Errorf("resolver.max_candidates must be positive, got %d", r.MaxCandidates)
	}

	e := c.Evaluator
	if e.AcceptThreshold <= 0 || e.AcceptThreshold > 1 {
		return fmt.Errorf("evaluator.accept_threshold must be in (0,1], got %v", e.AcceptThreshold)
	}
	if e.DiscardThreshold < 0 || e.DiscardThreshold >= e.AcceptThreshold {
		return fmt.Errorf("evaluator.discard_threshold must be in [0, accept_threshold), got %v", e.DiscardThreshold)
	}
	return nil
}
