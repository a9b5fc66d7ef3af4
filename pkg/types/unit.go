package types

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type UnitType string

const (
	UNIT_TYPE_NOTE    UnitType = "note"
	UNIT_TYPE_ENTITY  UnitType = "entity"
	UNIT_TYPE_CONCEPT UnitType = "concept"
	UNIT_TYPE_PROCESS UnitType = "process"
	UNIT_TYPE_EVENT   UnitType = "event"
	UNIT_TYPE_UNKNOWN UnitType = "unknown"
)

func UnitTypeFromString(s string) UnitType {
	switch strings.ToLower(s) {
	case string(UNIT_TYPE_NOTE):
		return UNIT_TYPE_NOTE
	case string(UNIT_TYPE_ENTITY):
		return UNIT_TYPE_ENTITY
	case string(UNIT_TYPE_CONCEPT):
		return UNIT_TYPE_CONCEPT
	case string(UNIT_TYPE_PROCESS):
		return UNIT_TYPE_PROCESS
	case string(UNIT_TYPE_EVENT):
		return UNIT_TYPE_EVENT
	default:
		return UNIT_TYPE_UNKNOWN
	}
}

func (k UnitType) String() string {
	return string(k)
}

type UnitStatus string

const (
	UNIT_STATUS_DRAFT     UnitStatus = "draft"
	UNIT_STATUS_CONFIRMED UnitStatus = "confirmed"
	UNIT_STATUS_MERGED    UnitStatus = "merged"
	UNIT_STATUS_ARCHIVED  UnitStatus = "archived"
)

func (s UnitStatus) String() string {
	return string(s)
}

// Live reports whether the unit participates in the canonical_name universe.
// Merged and archived units keep their rows for historical triples but no
// longer compete for canonical names.
func (s UnitStatus) Live() bool {
	return s != UNIT_STATUS_MERGED && s != UNIT_STATUS_ARCHIVED
}

// Title length limits, script aware. CJK characters carry more information per
// rune, so CJK-dominant titles get the shorter budget.
const (
	TITLE_MAX_RUNES_CJK   = 20
	TITLE_MAX_RUNES_LATIN = 40
)

// KnowledgeUnit 知识单元
type KnowledgeUnit struct {
	ID            string         `json:"id" db:"id"`
	GraphID       string         `json:"graph_id" db:"graph_id"`
	Title         string         `json:"title" db:"title"`
	Content       string         `json:"content" db:"content"`
	UnitType      UnitType       `json:"unit_type" db:"unit_type"`
	CanonicalName string         `json:"canonical_name" db:"canonical_name"`
	Aliases       pq.StringArray `json:"aliases" db:"aliases"`
	Tags          pq.StringArray `json:"tags" db:"tags"`
	SourceID      string         `json:"source_id" db:"source_id"`
	SourceName    string         `json:"source_name" db:"source_name"`
	Status        UnitStatus     `json:"status" db:"status"`
	Knowledge     Metadata       `json:"knowledge" db:"knowledge"`
	QualityScore  float64        `json:"quality_score" db:"quality_score"`
	RefCount      int            `json:"ref_count" db:"ref_count"`
	MergedUnits   pq.StringArray `json:"merged_units" db:"merged_units"`
	ParentUnits   pq.StringArray `json:"parent_units" db:"parent_units"`
	Metadata      Metadata       `json:"metadata" db:"metadata"`
	CreatedBy     string         `json:"created_by" db:"created_by"`
	CreatedAt     int64          `json:"created_at" db:"created_at"`
	UpdatedAt     int64          `json:"updated_at" db:"updated_at"`
}

// AliasSet returns the deduplicated alias surface, canonical name included.
func (u *KnowledgeUnit) AliasSet() map[string]struct{} {
	set := make(map[string]struct{}, len(u.Aliases)+1)
	if u.CanonicalName != "" {
		set[strings.ToLower(u.CanonicalName)] = struct{}{}
	}
	for _, a := range u.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			set[strings.ToLower(a)] = struct{}{}
		}
	}
	return set
}

// AbsorbAliases merges the candidate's naming surface into the unit, keeping
// the alias slice free of duplicates and of the unit's own canonical name.
func (u *KnowledgeUnit) AbsorbAliases(names ...string) {
	existing := u.AliasSet()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if key == strings.ToLower(u.CanonicalName) {
			continue
		}
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		u.Aliases = append(u.Aliases, name)
	}
}

type GetUnitOptions struct {
	ID            string
	IDs           []string
	GraphID       string
	CanonicalName string
	Alias         string
	UnitType      []UnitType
	Status        []UnitStatus
	LiveOnly      bool
	SourceID      string
	Keywords      string
}

func (opts GetUnitOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	} else if len(opts.IDs) > 0 {
		*query = query.Where(sq.Eq{"id": opts.IDs})
	}
	if opts.GraphID != "" {
		*query = query.Where(sq.Eq{"graph_id": opts.GraphID})
	}
	if opts.CanonicalName != "" {
		*query = query.Where(sq.Eq{"canonical_name": opts.CanonicalName})
	}
	if opts.Alias != "" {
		*query = query.Where("? = ANY(aliases)", opts.Alias)
	}
	if len(opts.UnitType) > 0 {
		*query = query.Where(sq.Eq{"unit_type": opts.UnitType})
	}
	if len(opts.Status) > 0 {
		*query = query.Where(sq.Eq{"status": opts.Status})
	}
	if opts.LiveOnly {
		*query = query.Where(sq.NotEq{"status": []UnitStatus{UNIT_STATUS_MERGED, UNIT_STATUS_ARCHIVED}})
	}
	if opts.SourceID != "" {
		*query = query.Where(sq.Eq{"source_id": opts.SourceID})
	}
	if opts.Keywords != "" {
		*query = query.Where(sq.Or{
			sq.Like{"title": fmt.Sprintf("%%%s%%", opts.Keywords)},
			sq.Like{"canonical_name": fmt.Sprintf("%%%s%%", opts.Keywords)},
		})
	}
}

type UpdateUnitArgs struct {
	Title         string
	Content       string
	UnitType      UnitType
	CanonicalName string
	Aliases       []string
	Tags          []string
	Status        UnitStatus
	QualityScore  *float64
	MergedUnits   []string
	Knowledge     Metadata
}
