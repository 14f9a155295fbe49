package model

import "time"

// Claim is a user's assertion of ownership over a reported item. Claims are
// kept as history; at most one per item is active at a time.
type Claim struct {
	ID              int64       `json:"id"`
	ItemID          int64       `json:"item_id"`
	ClaimerID       int64       `json:"claimer_id"`
	Message         string      `json:"message,omitempty"`
	Status          ClaimStatus `json:"status"`
	ContactRevealed bool        `json:"contact_revealed"`
	ClaimedAt       time.Time   `json:"claimed_at"`
	AcceptedAt      *time.Time  `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	VerifiedAt      *time.Time  `json:"verified_at,omitempty"`

	// Joined fields (not always populated).
	ItemTitle   string `json:"item_title,omitempty"`
	ItemOwnerID int64  `json:"item_owner_id,omitempty"`
	ClaimerName string `json:"claimer_name,omitempty"`
}

// ClaimStatus is the workflow status of a claim.
type ClaimStatus string

// Claim statuses.
const (
	ClaimPending   ClaimStatus = "pending"
	ClaimAccepted  ClaimStatus = "accepted"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimCompleted ClaimStatus = "completed"
)

// Active reports whether the claim still occupies its item's claim slot.
func (s ClaimStatus) Active() bool {
	return s != ClaimRejected
}

// CanTransitionTo reports whether a claim may move from s to next.
// accepted -> rejected is only reachable through dispute resolution.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	switch s {
	case ClaimPending:
		return next == ClaimAccepted || next == ClaimRejected
	case ClaimAccepted:
		return next == ClaimCompleted || next == ClaimRejected
	default:
		return false
	}
}

// Disputable reports whether a dispute may be opened on a claim in this status.
func (s ClaimStatus) Disputable() bool {
	return s == ClaimPending || s == ClaimAccepted
}
