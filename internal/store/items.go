package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuslf/lostfound/internal/model"
)

const itemColumns = `i.id, i.owner_id, i.title, i.category, i.description, i.location, i.latitude, i.longitude,
	i.tags, i.status, i.item_type, i.image_mime, i.created_at, i.updated_at, i.deleted_at, u.username`

const itemFrom = ` FROM items i JOIN users u ON u.id = i.owner_id`

func scanItem(s scanner, item *model.Item) error {
	var description, imageMime sql.NullString
	var lat, lng sql.NullFloat64
	var tags string
	err := s.Scan(&item.ID, &item.OwnerID, &item.Title, &item.Category, &description, &item.Location,
		&lat, &lng, &tags, &item.Status, &item.ItemType, &imageMime,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &item.OwnerName)
	if err != nil {
		return err
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	if lat.Valid && lng.Valid {
		item.Latitude = &lat.Float64
		item.Longitude = &lng.Float64
	}
	item.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return fmt.Errorf("decoding tags: %w", err)
		}
	}
	return nil
}

// CreateItem inserts a new item with status reported.
func CreateItem(ctx context.Context, db DBTX, item *model.Item) (*model.Item, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, title, category, description, location, latitude, longitude, tags, item_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.OwnerID, item.Title, item.Category, item.Description, item.Location,
		item.Latitude, item.Longitude, string(encoded), item.ItemType,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted items.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	item := &model.Item{}
	err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemFrom+` WHERE i.id = ?`, id,
	), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Status   model.ItemStatus
	ItemType string
	Category string
	OwnerID  int64
	Located  bool
}

// ListItems returns non-deleted items, newest first.
func ListItems(ctx context.Context, db DBTX, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + itemFrom + ` WHERE i.deleted_at IS NULL`
	var args []any

	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if f.ItemType != "" {
		query += ` AND i.item_type = ?`
		args = append(args, f.ItemType)
	}
	if f.Category != "" {
		query += ` AND i.category = ?`
		args = append(args, f.Category)
	}
	if f.OwnerID > 0 {
		query += ` AND i.owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.Located {
		query += ` AND i.latitude IS NOT NULL AND i.longitude IS NOT NULL`
	}

	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetItemStatus moves an item from one status to another. It reports false if
// the item was not in the expected status.
func SetItemStatus(ctx context.Context, db DBTX, id int64, from, to model.ItemStatus) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	return affected(result)
}

// DeleteItem soft-deletes an item.
func DeleteItem(ctx context.Context, db DBTX, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db DBTX, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db DBTX, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
