package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

type JobState string

const (
	JOB_STATE_PENDING              JobState = "pending"
	JOB_STATE_EXTRACTING_UNITS     JobState = "extracting_units"
	JOB_STATE_RESOLVING_ENTITIES   JobState = "resolving_entities"
	JOB_STATE_EXTRACTING_RELATIONS JobState = "extracting_relations"
	JOB_STATE_EVALUATING           JobState = "evaluating"
	JOB_STATE_COMMITTING           JobState = "committing"
	JOB_STATE_DONE                 JobState = "done"
	JOB_STATE_FAILED               JobState = "failed"
	JOB_STATE_CANCELLED            JobState = "cancelled"
)

func (s JobState) String() string {
	return string(s)
}

func (s JobState) Terminal() bool {
	return s == JOB_STATE_DONE || s == JOB_STATE_FAILED || s == JOB_STATE_CANCELLED
}

func (s JobState) Known() bool {
	switch s {
	case JOB_STATE_PENDING, JOB_STATE_EXTRACTING_UNITS, JOB_STATE_RESOLVING_ENTITIES,
		JOB_STATE_EXTRACTING_RELATIONS, JOB_STATE_EVALUATING, JOB_STATE_COMMITTING,
		JOB_STATE_DONE, JOB_STATE_FAILED, JOB_STATE_CANCELLED:
		return true
	}
	return false
}

// jobStateOrder drives the legal forward transitions of the pipeline. FAILED
// and CANCELLED are reachable from any non-terminal state.
var jobStateOrder = map[JobState]JobState{
	JOB_STATE_PENDING:              JOB_STATE_EXTRACTING_UNITS,
	JOB_STATE_EXTRACTING_UNITS:     JOB_STATE_RESOLVING_ENTITIES,
	JOB_STATE_RESOLVING_ENTITIES:   JOB_STATE_EXTRACTING_RELATIONS,
	JOB_STATE_EXTRACTING_RELATIONS: JOB_STATE_EVALUATING,
	JOB_STATE_EVALUATING:           JOB_STATE_COMMITTING,
	JOB_STATE_COMMITTING:           JOB_STATE_DONE,
}

// Next returns the following pipeline state.
func (s JobState) Next() (JobState, error) {
	next, ok := jobStateOrder[s]
	if !ok {
		return s, fmt.Errorf("no transition from state %q", s)
	}
	return next, nil
}

// CanTransition reports whether moving to target is legal.
func (s JobState) CanTransition(target JobState) bool {
	if s.Terminal() {
		return false
	}
	if target == JOB_STATE_FAILED || target == JOB_STATE_CANCELLED {
		return true
	}
	next, ok := jobStateOrder[s]
	return ok && next == target
}

const (
	WARNING_EXTRACTION = "extraction"
	WARNING_RESOLUTION = "resolution"
)

// JobWarning 导入过程中的单条告警（不致命）
type JobWarning struct {
	Kind    string   `json:"kind"`
	Stage   JobState `json:"stage"`
	Message string   `json:"message"`
}

type JobWarnings []JobWarning

func (w JobWarnings) Value() (driver.Value, error) {
	if len(w) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(w)
	return string(raw), err
}

func (w *JobWarnings) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		return json.Unmarshal(src, w)
	case string:
		return json.Unmarshal([]byte(src), w)
	case nil:
		return nil
	}
	return fmt.Errorf("pq: cannot convert %T to warnings", src)
}

// JobSummary 导入结果统计
type JobSummary struct {
	UnitsCreated     int `json:"units_created"`
	UnitsMerged      int `json:"units_merged"`
	TriplesAccepted  int `json:"triples_accepted"`
	TriplesFlagged   int `json:"triples_flagged"`
	TriplesDiscarded int `json:"triples_discarded"`
}

func (s JobSummary) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	return string(raw), err
}

func (s *JobSummary) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		return json.Unmarshal(src, s)
	case string:
		return json.Unmarshal([]byte(src), s)
	case nil:
		return nil
	}
	return fmt.Errorf("pq: cannot convert %T to summary", src)
}

// ImportJob 一次导入任务，按流水线状态机推进
type ImportJob struct {
	ID         string   `json:"id" db:"id"`
	GraphID    string   `json:"graph_id" db:"graph_id"`
	SourceName string   `json:"source_name" db:"source_name"`
	SourceHash string   `json:"source_hash" db:"source_hash"`
	Content    string   `json:"-" db:"content"`
	State      JobState `json:"state" db:"state"`
	Progress   int      `json:"progress" db:"progress"`
	RetryTimes int      `json:"retry_times" db:"retry_times"`
	Error      string   `json:"error,omitempty" db:"error"`
	// CancelRequested 由 API 置位, 流水线在阶段边界检查
	CancelRequested bool        `json:"cancel_requested" db:"cancel_requested"`
	Warnings        JobWarnings `json:"warnings" db:"warnings"`
	Summary         JobSummary  `json:"summary" db:"summary"`
	SubmittedBy     string      `json:"submitted_by" db:"submitted_by"`
	CreatedAt       int64       `json:"created_at" db:"created_at"`
	UpdatedAt       int64       `json:"updated_at" db:"updated_at"`
}

type GetImportJobOptions struct {
	ID         string
	GraphID    string
	SourceHash string
	State      []JobState
	Stale      int64 // non-terminal jobs untouched since this unix timestamp
}

func (opts GetImportJobOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	}
	if opts.GraphID != "" {
		*query = query.Where(sq.Eq{"graph_id": opts.GraphID})
	}
	if opts.SourceHash != "" {
		*query = query.Where(sq.Eq{"source_hash": opts.SourceHash})
	}
	if len(opts.State) > 0 {
		*query = query.Where(sq.Eq{"state": opts.State})
	}
	if opts.Stale > 0 {
		*query = query.Where(sq.And{
			sq.NotEq{"state": []JobState{JOB_STATE_DONE, JOB_STATE_FAILED, JOB_STATE_CANCELLED}},
			sq.Lt{"updated_at": opts.Stale},
		})
	}
}
