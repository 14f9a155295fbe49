package model

import "time"

// Notification tells a user about a claim event.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	ClaimID     int64     `json:"claim_id"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemID          int64       `json:"item_id,omitempty"`
	ItemTitle       string      `json:"item_title,omitempty"`
	ClaimStatus     ClaimStatus `json:"claim_status,omitempty"`
	ContactRevealed bool        `json:"contact_revealed"`
}

// Contact is the counterparty information disclosed by a contact reveal.
type Contact struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"name"`
}
