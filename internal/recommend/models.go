// internal/recommend/models.go
// Records flowing through the compatibility engine

package recommend

import "errors"

// PoolKind selects which candidate pool a query runs against
type PoolKind string

const (
	PoolEvents PoolKind = "events"
	PoolUsers  PoolKind = "users"
)

// Wildcard values stored on candidates that match any subject value
const (
	WildcardAny      = "Любой"
	WildcardAnyLatin = "any"
)

var (
	ErrMissingRequiredAttribute = errors.New("subject is missing a required attribute")
	ErrDataAccess               = errors.New("candidate data access failed")
	ErrSubjectNotFound          = errors.New("subject not found")
	ErrUnknownPool              = errors.New("unknown candidate pool")
)

// Subject is the entity recommendations are computed for.
// Nil attributes are unset and switch the matching filter off.
type Subject struct {
	ID            int64
	Age           *int
	Gender        *string
	MaritalStatus *string
	Target        *string
	District      *string
	Interests     []string
}

// Candidate is an event or a user that may be recommended
type Candidate struct {
	ID            int64
	Kind          PoolKind
	AgeRange      *string // events: "18-24", "25+" or "30"
	Age           *int    // users: their own age
	Gender        *string
	MaritalStatus *string
	District      *string
	InterestTags  []string

	// Event display
	Description string
	URL         string

	// User display
	FirstName  string
	Username   string
	Target     *string
	Profession *string
	About      *string
	TotalLikes int
	PhotoIDs   []string
}

// Batch is one page of recommendations
type Batch struct {
	Candidates []Candidate
	Excluded   *ExclusionSet // exclusion set after this batch
	Exhausted  bool          // matches exist but all were already shown
}

// IDs returns the candidate ids in batch order
func (b *Batch) IDs() []int64 {
	ids := make([]int64, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		ids = append(ids, c.ID)
	}
	return ids
}
