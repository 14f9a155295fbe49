package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

const flagColumns = `id, item_id, claim_id, flagged_by, reason, description, status,
	reviewed_by, review_notes, created_at, reviewed_at`

func scanFlag(s scanner, f *model.Flag) error {
	var itemID, claimID, flaggedBy, reviewedBy sql.NullInt64
	err := s.Scan(&f.ID, &itemID, &claimID, &flaggedBy, &f.Reason, &f.Description, &f.Status,
		&reviewedBy, &f.ReviewNotes, &f.CreatedAt, &f.ReviewedAt)
	if err != nil {
		return err
	}
	f.ItemID = nullInt(itemID)
	f.ClaimID = nullInt(claimID)
	f.FlaggedBy = nullInt(flaggedBy)
	f.ReviewedBy = nullInt(reviewedBy)
	return nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// CreateFlag records a pending moderation flag.
func CreateFlag(ctx context.Context, db DBTX, f *model.Flag) (*model.Flag, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO moderation_flags (item_id, claim_id, flagged_by, reason, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ItemID, f.ClaimID, f.FlaggedBy, f.Reason, f.Description, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating flag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting flag id: %w", err)
	}

	return GetFlag(ctx, db, id)
}

// GetFlag returns a flag by ID.
func GetFlag(ctx context.Context, db DBTX, id int64) (*model.Flag, error) {
	f := &model.Flag{}
	err := scanFlag(db.QueryRowContext(ctx,
		`SELECT `+flagColumns+` FROM moderation_flags WHERE id = ?`, id,
	), f)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting flag: %w", err)
	}
	return f, nil
}

// ListFlags returns flags, optionally filtered by status, newest first.
func ListFlags(ctx context.Context, db DBTX, status string) ([]model.Flag, error) {
	query := `SELECT ` + flagColumns + ` FROM moderation_flags`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing flags: %w", err)
	}
	defer rows.Close()

	var flags []model.Flag
	for rows.Next() {
		var f model.Flag
		if err := scanFlag(rows, &f); err != nil {
			return nil, fmt.Errorf("scanning flag: %w", err)
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// ReviewFlag moves a pending flag to its review outcome. It reports false if
// the flag was already reviewed.
func ReviewFlag(ctx context.Context, db DBTX, id int64, status string, reviewerID int64, notes string, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE moderation_flags
		 SET status = ?, reviewed_by = ?, review_notes = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`,
		status, reviewerID, notes, at.UTC(), id, model.FlagPending,
	)
	if err != nil {
		return false, fmt.Errorf("reviewing flag: %w", err)
	}
	return affected(result)
}

// HasPendingFlag reports whether a user already has a pending flag on the
// given item or claim.
func HasPendingFlag(ctx context.Context, db DBTX, flaggedBy int64, itemID, claimID *int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM moderation_flags
		     WHERE flagged_by = ? AND status = ?
		       AND item_id IS ? AND claim_id IS ?
		 )`,
		flaggedBy, model.FlagPending, itemID, claimID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pending flag: %w", err)
	}
	return exists, nil
}
