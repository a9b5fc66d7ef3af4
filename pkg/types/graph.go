package types

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type GraphStatus string

const (
	GRAPH_STATUS_ACTIVE   GraphStatus = "active"
	GRAPH_STATUS_ARCHIVED GraphStatus = "archived"
)

// KnowledgeGraph 知识图谱，一组知识单元与三元组的命名视图
type KnowledgeGraph struct {
	ID             string         `json:"id" db:"id"`
	Name           string         `json:"name" db:"name"`
	Description    string         `json:"description" db:"description"`
	OwnerID        string         `json:"owner_id" db:"owner_id"`
	IsPublic       bool           `json:"is_public" db:"is_public"`
	RootUnits      pq.StringArray `json:"root_units" db:"root_units"`
	Status         GraphStatus    `json:"status" db:"status"`
	UnitCount      int            `json:"unit_count" db:"unit_count"`
	TripleCount    int            `json:"triple_count" db:"triple_count"`
	Metadata       Metadata       `json:"metadata" db:"metadata"`
	VisualSettings Metadata       `json:"visual_settings" db:"visual_settings"`
	CreatedAt      int64          `json:"created_at" db:"created_at"`
	UpdatedAt      int64          `json:"updated_at" db:"updated_at"`
}

type GetGraphOptions struct {
	ID       string
	OwnerID  string
	Status   GraphStatus
	IsPublic *bool
	Keywords string
}

func (opts GetGraphOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	}
	if opts.OwnerID != "" {
		*query = query.Where(sq.Eq{"owner_id": opts.OwnerID})
	}
	if opts.Status != "" {
		*query = query.Where(sq.Eq{"status": opts.Status})
	}
	if opts.IsPublic != nil {
		*query = query.Where(sq.Eq{"is_public": *opts.IsPublic})
	}
	if opts.Keywords != "" {
		*query = query.Where(sq.Like{"name": "%" + opts.Keywords + "%"})
	}
}

// GraphQualityReport 图谱质量评估结果
type GraphQualityReport struct {
	GraphID          string   `json:"graph_id"`
	QualityScore     float64  `json:"quality_score"`
	UnitCount        int      `json:"unit_count"`
	TripleCount      int      `json:"triple_count"`
	UnitQuality      float64  `json:"unit_quality"`
	TripleConfidence float64  `json:"triple_confidence"`
	Connectivity     float64  `json:"connectivity"`
	DomainCoverage   float64  `json:"domain_coverage"`
	Domains          []string `json:"domains"`
	Suggestions      []string `json:"suggestions"`
}
