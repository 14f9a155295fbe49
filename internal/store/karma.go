package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

// AddKarma credits points and one returned item to a user, creating the
// profile on first award.
func AddKarma(ctx context.Context, db DBTX, userID int64, points int) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT INTO karma_profiles (user_id, karma_points, total_items_returned, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     karma_points = karma_points + excluded.karma_points,
		     total_items_returned = total_items_returned + 1,
		     updated_at = excluded.updated_at`,
		userID, points, now, now,
	)
	if err != nil {
		return fmt.Errorf("adding karma: %w", err)
	}
	return nil
}

// EnsureKarmaProfile creates an empty profile for a user if none exists.
func EnsureKarmaProfile(ctx context.Context, db DBTX, userID int64) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO karma_profiles (user_id, created_at, updated_at) VALUES (?, ?, ?)`,
		userID, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating karma profile: %w", err)
	}
	return nil
}

// GetKarmaProfile returns a user's karma profile.
func GetKarmaProfile(ctx context.Context, db DBTX, userID int64) (*model.KarmaProfile, error) {
	p := &model.KarmaProfile{}
	err := db.QueryRowContext(ctx,
		`SELECT k.user_id, k.karma_points, k.total_items_returned, k.created_at, k.updated_at, u.username
		 FROM karma_profiles k JOIN users u ON u.id = k.user_id
		 WHERE k.user_id = ?`, userID,
	).Scan(&p.UserID, &p.KarmaPoints, &p.TotalItemsReturned, &p.CreatedAt, &p.UpdatedAt, &p.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting karma profile: %w", err)
	}
	return p, nil
}

// CountAboveKarma returns how many profiles have strictly more points.
func CountAboveKarma(ctx context.Context, db DBTX, points int) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM karma_profiles WHERE karma_points > ?`, points,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting karma rank: %w", err)
	}
	return n, nil
}

// ListTopKarma returns the highest-scoring profiles. Ties go to the lower
// profile.
func ListTopKarma(ctx context.Context, db DBTX, limit int) ([]model.KarmaProfile, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT k.user_id, k.karma_points, k.total_items_returned, k.created_at, k.updated_at, u.username
		 FROM karma_profiles k JOIN users u ON u.id = k.user_id
		 WHERE u.deleted_at IS NULL
		 ORDER BY k.karma_points DESC, k.user_id
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing karma leaderboard: %w", err)
	}
	defer rows.Close()

	var profiles []model.KarmaProfile
	for rows.Next() {
		var p model.KarmaProfile
		if err := rows.Scan(&p.UserID, &p.KarmaPoints, &p.TotalItemsReturned, &p.CreatedAt, &p.UpdatedAt, &p.Username); err != nil {
			return nil, fmt.Errorf("scanning karma profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetKarmaStats returns aggregate leaderboard figures.
func GetKarmaStats(ctx context.Context, db DBTX) (*model.KarmaStats, error) {
	s := &model.KarmaStats{}
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(karma_points > 0), 0), COALESCE(SUM(total_items_returned), 0), COALESCE(SUM(karma_points), 0)
		 FROM karma_profiles`,
	).Scan(&s.Participants, &s.TotalItemsReturned, &s.TotalKarmaPoints)
	if err != nil {
		return nil, fmt.Errorf("getting karma stats: %w", err)
	}
	return s, nil
}
