package model

import "time"

// KarmaProfile is a user's reputation record.
type KarmaProfile struct {
	UserID             int64     `json:"user_id"`
	KarmaPoints        int       `json:"karma_points"`
	TotalItemsReturned int       `json:"total_items_returned"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
}

// KarmaStats summarises the leaderboard.
type KarmaStats struct {
	Participants       int `json:"total_participants"`
	TotalItemsReturned int `json:"total_items_returned"`
	TotalKarmaPoints   int `json:"total_karma_points"`
}
