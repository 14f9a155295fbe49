package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

// AddTimelineEntry appends a status change to an item's history. changedBy is
// nil for system-driven changes.
func AddTimelineEntry(ctx context.Context, db DBTX, itemID int64, status model.ItemStatus, changedBy *int64, notes string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO item_timeline (item_id, status, changed_by, changed_at, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, status, changedBy, time.Now().UTC(), notes,
	)
	if err != nil {
		return fmt.Errorf("adding timeline entry: %w", err)
	}
	return nil
}

// ListTimeline returns an item's history in the order it happened.
func ListTimeline(ctx context.Context, db DBTX, itemID int64) ([]model.TimelineEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.item_id, t.status, t.changed_by, t.changed_at, t.notes, u.username
		 FROM item_timeline t
		 LEFT JOIN users u ON u.id = t.changed_by
		 WHERE t.item_id = ?
		 ORDER BY t.changed_at, t.id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing timeline: %w", err)
	}
	defer rows.Close()

	var entries []model.TimelineEntry
	for rows.Next() {
		var e model.TimelineEntry
		var changedBy sql.NullInt64
		var changedByName sql.NullString
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Status, &changedBy, &e.ChangedAt, &e.Notes, &changedByName); err != nil {
			return nil, fmt.Errorf("scanning timeline entry: %w", err)
		}
		if changedBy.Valid {
			e.ChangedBy = &changedBy.Int64
		}
		e.ChangedByName = changedByName.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
