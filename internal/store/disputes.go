package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

const disputeColumns = `id, claim_id, reporter_id, claimer_id, raised_by, reason, status,
	resolution, admin_notes, assigned_to, created_at, resolved_at`

func scanDispute(s scanner, d *model.Dispute) error {
	var resolution sql.NullString
	var assignedTo sql.NullInt64
	err := s.Scan(&d.ID, &d.ClaimID, &d.ReporterID, &d.ClaimerID, &d.RaisedBy, &d.Reason, &d.Status,
		&resolution, &d.AdminNotes, &assignedTo, &d.CreatedAt, &d.ResolvedAt)
	if err != nil {
		return err
	}
	d.Resolution = resolution.String
	if assignedTo.Valid {
		d.AssignedTo = &assignedTo.Int64
	}
	return nil
}

// CreateDispute opens a dispute. A second active dispute on the same claim
// fails the idx_disputes_claim_active unique index.
func CreateDispute(ctx context.Context, db DBTX, d *model.Dispute) (*model.Dispute, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO disputes (claim_id, reporter_id, claimer_id, raised_by, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ClaimID, d.ReporterID, d.ClaimerID, d.RaisedBy, d.Reason, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dispute: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting dispute id: %w", err)
	}

	return GetDispute(ctx, db, id)
}

// GetDispute returns a dispute by ID.
func GetDispute(ctx context.Context, db DBTX, id int64) (*model.Dispute, error) {
	d := &model.Dispute{}
	err := scanDispute(db.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = ?`, id,
	), d)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting dispute: %w", err)
	}
	return d, nil
}

// GetActiveDispute returns the open or in-progress dispute on a claim, if any.
func GetActiveDispute(ctx context.Context, db DBTX, claimID int64) (*model.Dispute, error) {
	d := &model.Dispute{}
	err := scanDispute(db.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE claim_id = ? AND status IN (?, ?)`,
		claimID, model.DisputeOpen, model.DisputeInProgress,
	), d)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active dispute: %w", err)
	}
	return d, nil
}

// ListDisputes returns disputes, optionally filtered by status, newest first.
func ListDisputes(ctx context.Context, db DBTX, status string) ([]model.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing disputes: %w", err)
	}
	defer rows.Close()

	var disputes []model.Dispute
	for rows.Next() {
		var d model.Dispute
		if err := scanDispute(rows, &d); err != nil {
			return nil, fmt.Errorf("scanning dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// AssignDispute sets the handling staff member and moves an open dispute to
// in_progress. It reports false if the dispute is no longer active.
func AssignDispute(ctx context.Context, db DBTX, id, staffID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE disputes SET assigned_to = ?, status = ?
		 WHERE id = ? AND status IN (?, ?)`,
		staffID, model.DisputeInProgress, id, model.DisputeOpen, model.DisputeInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("assigning dispute: %w", err)
	}
	return affected(result)
}

// FinishDispute moves an active dispute into a terminal status. resolution
// may be empty for a plain close. It reports false if the dispute is no longer
// active.
func FinishDispute(ctx context.Context, db DBTX, id int64, status, resolution, notes string, at time.Time) (bool, error) {
	var res any
	if resolution != "" {
		res = resolution
	}
	result, err := db.ExecContext(ctx,
		`UPDATE disputes
		 SET status = ?, resolution = COALESCE(?, resolution), admin_notes = ?, resolved_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		status, res, notes, at.UTC(), id, model.DisputeOpen, model.DisputeInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("finishing dispute: %w", err)
	}
	return affected(result)
}

// CloseDispute moves an open, in-progress or resolved dispute to closed. It
// reports false if the dispute was already closed.
func CloseDispute(ctx context.Context, db DBTX, id int64, notes string, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE disputes
		 SET status = ?, admin_notes = CASE WHEN ? = '' THEN admin_notes ELSE ? END,
		     resolved_at = COALESCE(resolved_at, ?)
		 WHERE id = ? AND status != ?`,
		model.DisputeClosed, notes, notes, at.UTC(), id, model.DisputeClosed,
	)
	if err != nil {
		return false, fmt.Errorf("closing dispute: %w", err)
	}
	return affected(result)
}
