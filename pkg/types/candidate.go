package types

// CandidateUnit is a unit proposal parsed from model output, not yet resolved
// against the existing graph.
type CandidateUnit struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	UnitType      UnitType `json:"unit_type"`
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases"`
	Tags          []string `json:"tags"`
	Knowledge     Metadata `json:"knowledge,omitempty"`
	Confidence    float64  `json:"confidence"`
	Segment       int      `json:"segment"` // index of the source segment
}

// CandidateTriple is a relation proposal referencing resolved unit ids.
type CandidateTriple struct {
	SubjectID     string       `json:"subject_id"`
	Predicate     string       `json:"predicate"`
	ObjectID      string       `json:"object_id"`
	RelationType  RelationType `json:"relation_type"`
	Bidirectional bool         `json:"bidirectional"`
	Confidence    float64      `json:"confidence"`
	Context       string       `json:"context"`
	Segments      int          `json:"segments"` // independent segments corroborating this triple
}

// Key identifies a triple for in-pass deduplication.
func (c CandidateTriple) Key() [3]string {
	return [3]string{c.SubjectID, c.Predicate, c.ObjectID}
}

type ResolutionDecision string

const (
	RESOLUTION_NEW      ResolutionDecision = "new"
	RESOLUTION_MERGE    ResolutionDecision = "merge"
	RESOLUTION_ESCALATE ResolutionDecision = "escalate"
)

// Resolution is the explicit outcome of entity resolution for one candidate.
// ESCALATE is internal to the resolver: the model-assisted pass collapses it
// to NEW or MERGE before the decision leaves the component.
type Resolution struct {
	Decision ResolutionDecision `json:"decision"`
	TargetID string             `json:"target_id,omitempty"`
	Score    float64            `json:"score"`
}

// ResolvedUnit pairs a candidate with its resolution and, for merges, the
// canonical unit it was absorbed into.
type ResolvedUnit struct {
	Candidate  CandidateUnit
	Resolution Resolution
	Unit       *KnowledgeUnit
}
