package model

import "time"

// TimelineEntry is one row of an item's append-only audit trail.
type TimelineEntry struct {
	ID        int64      `json:"id"`
	ItemID    int64      `json:"item_id"`
	Status    ItemStatus `json:"status"`
	ChangedBy *int64     `json:"changed_by,omitempty"`
	ChangedAt time.Time  `json:"changed_at"`
	Notes     string     `json:"notes,omitempty"`

	// Joined fields (not always populated).
	ChangedByName string `json:"changed_by_name,omitempty"`
}
