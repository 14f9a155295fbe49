package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

const claimColumns = `c.id, c.item_id, c.claimer_id, c.message, c.status, c.contact_revealed,
	c.claimed_at, c.accepted_at, c.rejected_at, c.verified_at,
	i.title AS item_title, i.owner_id AS item_owner_id, u.username AS claimer_name`

const claimFrom = ` FROM claims c
	JOIN items i ON i.id = c.item_id
	JOIN users u ON u.id = c.claimer_id`

func scanClaim(s scanner, c *model.Claim) error {
	var message sql.NullString
	err := s.Scan(&c.ID, &c.ItemID, &c.ClaimerID, &message, &c.Status, &c.ContactRevealed,
		&c.ClaimedAt, &c.AcceptedAt, &c.RejectedAt, &c.VerifiedAt,
		&c.ItemTitle, &c.ItemOwnerID, &c.ClaimerName)
	c.Message = message.String
	return err
}

// InsertClaim creates a pending claim. A second active claim on the same item
// fails the idx_claims_item_active unique index; see IsUniqueViolation.
func InsertClaim(ctx context.Context, db DBTX, itemID, claimerID int64, message string) (*model.Claim, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO claims (item_id, claimer_id, message, claimed_at) VALUES (?, ?, ?, ?)`,
		itemID, claimerID, message, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	return GetClaim(ctx, db, id)
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db DBTX, id int64) (*model.Claim, error) {
	c := &model.Claim{}
	err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+claimFrom+` WHERE c.id = ?`, id,
	), c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// GetActiveClaim returns the item's non-rejected claim, if any.
func GetActiveClaim(ctx context.Context, db DBTX, itemID int64) (*model.Claim, error) {
	c := &model.Claim{}
	err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+claimFrom+`
		 WHERE c.item_id = ? AND c.status != ?`, itemID, model.ClaimRejected,
	), c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active claim: %w", err)
	}
	return c, nil
}

// ListClaimsForItem returns the full claim history of an item, newest first.
func ListClaimsForItem(ctx context.Context, db DBTX, itemID int64) ([]model.Claim, error) {
	return listClaims(ctx, db, `WHERE c.item_id = ?`, itemID)
}

// ListClaimsByClaimer returns the claims a user has submitted, newest first.
func ListClaimsByClaimer(ctx context.Context, db DBTX, claimerID int64) ([]model.Claim, error) {
	return listClaims(ctx, db, `WHERE c.claimer_id = ?`, claimerID)
}

func listClaims(ctx context.Context, db DBTX, where string, args ...any) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+claimFrom+` `+where+` ORDER BY c.claimed_at DESC, c.id DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := scanClaim(rows, &c); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// TransitionClaim moves a claim from one status to another and stamps the
// matching timestamp column. It reports false if the claim was not in the
// expected status.
func TransitionClaim(ctx context.Context, db DBTX, id int64, from, to model.ClaimStatus, at time.Time) (bool, error) {
	var column string
	switch to {
	case model.ClaimAccepted:
		column = "accepted_at"
	case model.ClaimRejected:
		column = "rejected_at"
	case model.ClaimCompleted:
		column = "verified_at"
	default:
		return false, fmt.Errorf("no transition into claim status %q", to)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ?, `+column+` = ? WHERE id = ? AND status = ?`,
		to, at.UTC(), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("updating claim status: %w", err)
	}
	return affected(result)
}

// SetContactRevealed marks the claim's contact details as revealed.
func SetContactRevealed(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE claims SET contact_revealed = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("revealing contact: %w", err)
	}
	return nil
}
