package types

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

type RelationType string

const (
	RELATION_TYPE_IS_A         RelationType = "is-a"
	RELATION_TYPE_PART_OF      RelationType = "part-of"
	RELATION_TYPE_HAS_PROPERTY RelationType = "has-property"
	RELATION_TYPE_CAUSES       RelationType = "causes"
	RELATION_TYPE_PRECEDES     RelationType = "precedes"
	RELATION_TYPE_SIMILAR_TO   RelationType = "similar-to"
	RELATION_TYPE_LOCATED_IN   RelationType = "located-in"
	RELATION_TYPE_USED_FOR     RelationType = "used-for"
	RELATION_TYPE_ACTION       RelationType = "action"
	RELATION_TYPE_RELATED_TO   RelationType = "related-to"
)

func (r RelationType) String() string {
	return string(r)
}

var allRelationTypes = []RelationType{
	RELATION_TYPE_IS_A,
	RELATION_TYPE_PART_OF,
	RELATION_TYPE_HAS_PROPERTY,
	RELATION_TYPE_CAUSES,
	RELATION_TYPE_PRECEDES,
	RELATION_TYPE_SIMILAR_TO,
	RELATION_TYPE_LOCATED_IN,
	RELATION_TYPE_USED_FOR,
	RELATION_TYPE_ACTION,
	RELATION_TYPE_RELATED_TO,
}

func RelationTypeNames() []string {
	names := make([]string, 0, len(allRelationTypes))
	for _, r := range allRelationTypes {
		names = append(names, string(r))
	}
	return names
}

// RelationTypeFromString returns the matching category or empty when the
// value is not one of the known types.
func RelationTypeFromString(s string) RelationType {
	r := RelationType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allRelationTypes {
		if r == known {
			return known
		}
	}
	return ""
}

// relationKeywords maps predicate phrasings to coarse relation categories.
// Mirrors the phrasing families the extraction prompt asks the model for.
var relationKeywords = map[RelationType][]string{
	RELATION_TYPE_IS_A:         {"is a", "is an", "type of", "kind of", "subclass of", "是一种", "属于"},
	RELATION_TYPE_PART_OF:      {"part of", "contains", "composed of", "consists of", "包含", "组成"},
	RELATION_TYPE_HAS_PROPERTY: {"has property", "has attribute", "has feature", "具有", "特征是"},
	RELATION_TYPE_CAUSES:       {"causes", "results in", "leads to", "triggers", "导致", "引起"},
	RELATION_TYPE_PRECEDES:     {"precedes", "before", "after", "follows", "先于", "早于"},
	RELATION_TYPE_SIMILAR_TO:   {"similar to", "like", "resembles", "类似于", "相似"},
	RELATION_TYPE_LOCATED_IN:   {"located in", "found in", "situated in", "位于"},
	RELATION_TYPE_USED_FOR:     {"used for", "used to", "purpose is", "用于", "用来"},
}

// symmetric relation categories get the bidirectional flag when the model
// does not set one.
var symmetricRelations = map[RelationType]bool{
	RELATION_TYPE_SIMILAR_TO: true,
	RELATION_TYPE_RELATED_TO: true,
}

// InferRelationType maps a free-form predicate onto a coarse category,
// falling back to related-to.
func InferRelationType(predicate string) RelationType {
	p := strings.ToLower(predicate)
	for relType, keywords := range relationKeywords {
		for _, kw := range keywords {
			if strings.Contains(p, kw) {
				return relType
			}
		}
	}
	return RELATION_TYPE_RELATED_TO
}

func (r RelationType) Symmetric() bool {
	return symmetricRelations[r]
}

// Reflexive reports whether the category permits subject == object.
// No relation type does by default.
func (r RelationType) Reflexive() bool {
	return false
}

// SemanticTriple 语义三元组
type SemanticTriple struct {
	ID            string       `json:"id" db:"id"`
	GraphID       string       `json:"graph_id" db:"graph_id"`
	SubjectID     string       `json:"subject_id" db:"subject_id"`
	Predicate     string       `json:"predicate" db:"predicate"`
	ObjectID      string       `json:"object_id" db:"object_id"`
	RelationType  RelationType `json:"relation_type" db:"relation_type"`
	Confidence    float64      `json:"confidence" db:"confidence"`
	Bidirectional bool         `json:"bidirectional" db:"bidirectional"`
	Status        TripleStatus `json:"status" db:"status"`
	SourceID      string       `json:"source_id" db:"source_id"`
	Context       string       `json:"context" db:"context"`
	Metadata      Metadata     `json:"metadata" db:"metadata"`
	CreatedAt     int64        `json:"created_at" db:"created_at"`
	UpdatedAt     int64        `json:"updated_at" db:"updated_at"`
}

type TripleStatus string

const (
	TRIPLE_STATUS_ACCEPTED       TripleStatus = "accepted"
	TRIPLE_STATUS_PENDING_REVIEW TripleStatus = "pending-review"
	TRIPLE_STATUS_ARCHIVED       TripleStatus = "archived"
)

func (s TripleStatus) String() string {
	return string(s)
}

type GetTripleOptions struct {
	ID        string
	GraphID   string
	SubjectID string
	ObjectID  string
	UnitID    string // matches either endpoint
	SourceID  string
	Status    []TripleStatus
}

func (opts GetTripleOptions) Apply(query *sq.SelectBuilder) {
	if opts.ID != "" {
		*query = query.Where(sq.Eq{"id": opts.ID})
	}
	if opts.GraphID != "" {
		*query = query.Where(sq.Eq{"graph_id": opts.GraphID})
	}
	if opts.SubjectID != "" {
		*query = query.Where(sq.Eq{"subject_id": opts.SubjectID})
	}
	if opts.ObjectID != "" {
		*query = query.Where(sq.Eq{"object_id": opts.ObjectID})
	}
	if opts.UnitID != "" {
		*query = query.Where(sq.Or{sq.Eq{"subject_id": opts.UnitID}, sq.Eq{"object_id": opts.UnitID}})
	}
	if opts.SourceID != "" {
		*query = query.Where(sq.Eq{"source_id": opts.SourceID})
	}
	if len(opts.Status) > 0 {
		*query = query.Where(sq.Eq{"status": opts.Status})
	}
}
