package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

const qrColumns = `id, claim_id, code, image_url, scanned, scanned_at, created_at`

func scanQRCode(s scanner, q *model.QRCode) error {
	var imageURL sql.NullString
	err := s.Scan(&q.ID, &q.ClaimID, &q.Code, &imageURL, &q.Scanned, &q.ScannedAt, &q.CreatedAt)
	q.ImageURL = imageURL.String
	return err
}

// CreateQRCode stores a code for a claim unless the claim already has one.
// It returns the stored record either way.
func CreateQRCode(ctx context.Context, db DBTX, claimID int64, code string) (*model.QRCode, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO qr_codes (claim_id, code, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(claim_id) DO NOTHING`,
		claimID, code, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating qr code: %w", err)
	}
	return GetQRCodeByClaim(ctx, db, claimID)
}

// GetQRCodeByClaim returns the QR code issued for a claim.
func GetQRCodeByClaim(ctx context.Context, db DBTX, claimID int64) (*model.QRCode, error) {
	return getQRCode(ctx, db, `claim_id = ?`, claimID)
}

// GetQRCodeByCode looks up a QR code by its token.
func GetQRCodeByCode(ctx context.Context, db DBTX, code string) (*model.QRCode, error) {
	return getQRCode(ctx, db, `code = ?`, code)
}

func getQRCode(ctx context.Context, db DBTX, where string, arg any) (*model.QRCode, error) {
	q := &model.QRCode{}
	err := scanQRCode(db.QueryRowContext(ctx,
		`SELECT `+qrColumns+` FROM qr_codes WHERE `+where, arg,
	), q)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting qr code: %w", err)
	}
	return q, nil
}

// SetQRImageURL records where the rendered QR image lives.
func SetQRImageURL(ctx context.Context, db DBTX, id int64, url string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE qr_codes SET image_url = ? WHERE id = ?`, url, id,
	)
	if err != nil {
		return fmt.Errorf("setting qr image url: %w", err)
	}
	return nil
}

// MarkQRScanned flips an unscanned code to scanned. It reports false if the
// code was already scanned.
func MarkQRScanned(ctx context.Context, db DBTX, id int64, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE qr_codes SET scanned = 1, scanned_at = ? WHERE id = ? AND scanned = 0`,
		at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("marking qr code scanned: %w", err)
	}
	return affected(result)
}

// RetireQRCode marks a claim's outstanding code as scanned so it can no longer
// be redeemed. Claims without a code are left alone.
func RetireQRCode(ctx context.Context, db DBTX, claimID int64, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE qr_codes SET scanned = 1, scanned_at = ? WHERE claim_id = ? AND scanned = 0`,
		at.UTC(), claimID,
	)
	if err != nil {
		return fmt.Errorf("retiring qr code: %w", err)
	}
	return nil
}
