package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

const notificationColumns = `n.id, n.recipient_id, n.claim_id, n.message, n.is_read, n.created_at,
	c.item_id, i.title, c.status, c.contact_revealed`

const notificationFrom = ` FROM notifications n
	JOIN claims c ON c.id = n.claim_id
	JOIN items i ON i.id = c.item_id`

func scanNotification(s scanner, n *model.Notification) error {
	return s.Scan(&n.ID, &n.RecipientID, &n.ClaimID, &n.Message, &n.IsRead, &n.CreatedAt,
		&n.ItemID, &n.ItemTitle, &n.ClaimStatus, &n.ContactRevealed)
}

// CreateNotification inserts an unread notification.
func CreateNotification(ctx context.Context, db DBTX, recipientID, claimID int64, message string) (*model.Notification, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO notifications (recipient_id, claim_id, message, created_at) VALUES (?, ?, ?, ?)`,
		recipientID, claimID, message, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting notification id: %w", err)
	}

	return GetNotification(ctx, db, id)
}

// GetNotification returns a notification by ID.
func GetNotification(ctx context.Context, db DBTX, id int64) (*model.Notification, error) {
	n := &model.Notification{}
	err := scanNotification(db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+notificationFrom+` WHERE n.id = ?`, id,
	), n)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, db DBTX, recipientID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + notificationFrom + ` WHERE n.recipient_id = ?`
	if unreadOnly {
		query += ` AND n.is_read = 0`
	}
	query += ` ORDER BY n.created_at DESC, n.id DESC`

	rows, err := db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead sets is_read on a notification. Marking twice is a no-op.
func MarkNotificationRead(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// CountUnread returns the number of unread notifications for a user.
func CountUnread(ctx context.Context, db DBTX, recipientID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`, recipientID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}
