package model

import "time"

// QRCode is the single-use handoff token for a claim.
type QRCode struct {
	ID        int64      `json:"id"`
	ClaimID   int64      `json:"claim_id"`
	Code      string     `json:"code"`
	ImageURL  string     `json:"image_url,omitempty"`
	Scanned   bool       `json:"scanned"`
	ScannedAt *time.Time `json:"scanned_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
