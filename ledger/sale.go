package ledger

import "time"

// SaleID identifies a sale. IDs are assigned sequentially starting at zero
// and are never reused.
type SaleID uint64

// Sale is one time-boxed contribution window. The registry exclusively owns
// all Sale records; query methods return copies.
type Sale struct {
	ID SaleID `json:"id"`

	// Owner is the hex principal authorized to manage the sale.
	Owner string `json:"owner"`

	// TokenRef is an opaque descriptor of the token on offer. The ledger
	// never interprets it.
	TokenRef Payload `json:"token_ref"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Active is the owner-toggleable pause flag. Deliberately permissive:
	// the owner may toggle it at any point, even after finalization.
	Active bool `json:"active"`

	// Finalized is a one-way latch. Once set, Active is cleared and the
	// sale accepts claims instead of contributions.
	Finalized bool `json:"finalized"`

	// ContributorCount counts distinct participants; it increases exactly
	// once per participant, on their first successful contribution.
	ContributorCount uint64 `json:"contributor_count"`

	// ContributionCount counts every successful contribution call.
	ContributionCount uint64 `json:"contribution_count"`
}

// windowContains reports whether t falls within the half-open
// contribution window [Start, End).
func (s *Sale) windowContains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// Position is a participant's per-sale contribution and claim record,
// created lazily on first contribution.
type Position struct {
	SaleID SaleID `json:"sale_id"`

	// Participant is the hex principal owning the position.
	Participant string `json:"participant"`

	// Contribution holds the latest opaque contribution payload.
	// Last write wins; accumulation, if any, happens in the external
	// cryptographic layer before submission.
	Contribution Payload `json:"contribution"`

	LastUpdate time.Time `json:"last_update"`

	// Contributed latches on the first contribution and drives the sale's
	// contributor count.
	Contributed bool `json:"contributed"`

	// AllocationClaimed latches when the participant redeems their
	// allocation after finalization. It never resets.
	AllocationClaimed bool `json:"allocation_claimed"`
}

// Aggregates is the read-only counter snapshot for a sale.
type Aggregates struct {
	ContributorCount  uint64 `json:"contributor_count"`
	ContributionCount uint64 `json:"contribution_count"`
	Finalized         bool   `json:"finalized"`
}
