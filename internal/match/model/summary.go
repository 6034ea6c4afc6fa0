package model

import "time"

// Scope selects what a full re-match covers. An empty retailer means all
// blocks; otherwise only blocks holding at least one listing of it.
type Scope struct {
	Retailer string `json:"retailer,omitempty"`
}

type CategoryStats struct {
	Listings        int     `json:"listings"`
	Groups          int     `json:"groups"`
	Unmatched       int     `json:"unmatched"`
	MeanVariancePct float64 `json:"meanVariancePct"`
	MaxVariancePct  float64 `json:"maxVariancePct"`
}

type BlockFailure struct {
	Category string `json:"category"`
	Error    string `json:"error"`
}

// Summary is emitted by every full re-match.
type Summary struct {
	RunID               string                   `json:"runId"`
	Scope               Scope                    `json:"scope"`
	ProfileVersion      string                   `json:"profileVersion"`
	StartedAt           time.Time                `json:"startedAt"`
	Elapsed             time.Duration            `json:"elapsed"`
	TotalListings       int                      `json:"totalListings"`
	GroupsCreated       int                      `json:"groupsCreated"`
	Unmatched           int                      `json:"unmatched"`
	Unmatchable         []string                 `json:"unmatchable"` // listing ids without a category
	Categories          map[string]CategoryStats `json:"categories"`
	DuplicateCandidates int                      `json:"duplicateCandidates"`
	LowPairs            int                      `json:"lowPairs"`
	NonePairs           int                      `json:"nonePairs"`
	ConflictsResolved   int                      `json:"conflictsResolved"`
	FailedBlocks        []BlockFailure           `json:"failedBlocks"`
	ClearedCategories   []string                 `json:"clearedCategories"` // stored categories with no listings left
}

type IncrementalOutcome string

const (
	OutcomeMerged     IncrementalOutcome = "merged"    // joined an existing group
	OutcomeNewGroup   IncrementalOutcome = "new_group" // paired with an ungrouped listing
	OutcomeUnmatched  IncrementalOutcome = "unmatched"
	OutcomeNoCategory IncrementalOutcome = "unmatchable"
)

// IncrementalResult reports what matching one new listing did. DetachedFrom
// names a group of another category the listing was moved out of.
type IncrementalResult struct {
	ListingID    string               `json:"listingId"`
	Outcome      IncrementalOutcome   `json:"outcome"`
	Candidates   int                  `json:"candidates"`
	BestMatchID  string               `json:"bestMatchId,omitempty"`
	Best         *SimilarityBreakdown `json:"best,omitempty"`
	Match        *ProductMatch        `json:"match,omitempty"`
	ReplacedID   string               `json:"replacedId,omitempty"`
	DetachedFrom string               `json:"detachedFrom,omitempty"`
}
