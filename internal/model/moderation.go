package model

import "time"

// Flag is a user report on an item or claim awaiting staff review.
type Flag struct {
	ID          int64      `json:"id"`
	ItemID      *int64     `json:"item_id,omitempty"`
	ClaimID     *int64     `json:"claim_id,omitempty"`
	FlaggedBy   *int64     `json:"flagged_by,omitempty"`
	Reason      string     `json:"reason"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	ReviewedBy  *int64     `json:"reviewed_by,omitempty"`
	ReviewNotes string     `json:"review_notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// Flag statuses.
const (
	FlagPending  = "pending"
	FlagApproved = "approved"
	FlagRejected = "rejected"
	FlagRemoved  = "removed"
)

// FlagReasons lists accepted flag reasons.
var FlagReasons = []string{"inappropriate", "spam", "misleading", "offensive", "fraud", "duplicate", "other"}

// ValidFlagReason reports whether r is a known flag reason.
func ValidFlagReason(r string) bool {
	for _, known := range FlagReasons {
		if r == known {
			return true
		}
	}
	return false
}
