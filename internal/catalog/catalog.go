// Package catalog handles reporting, browsing and removing lost and found
// items.
package catalog

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/imaging"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// Field limits.
const (
	MaxTitleLength       = 200
	MaxLocationLength    = 300
	MaxDescriptionLength = 5000
	MaxTags              = 20
	MaxTagLength         = 50
)

// Service is the item catalog.
type Service struct {
	db *sql.DB
}

// NewService creates a catalog service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ItemInput is what a user submits when reporting an item.
type ItemInput struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Tags        []string `json:"tags"`
	ItemType    string   `json:"item_type"`
}

func (in *ItemInput) normalize() error {
	in.Title = sanitize(in.Title)
	in.Location = sanitize(in.Location)
	in.Description = sanitize(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.ItemType = strings.ToLower(strings.TrimSpace(in.ItemType))

	switch {
	case in.Title == "":
		return apperr.Validation("title is required")
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		return apperr.Validation("title must be at most %d characters", MaxTitleLength)
	case in.Location == "":
		return apperr.Validation("location is required")
	case utf8.RuneCountInString(in.Location) > MaxLocationLength:
		return apperr.Validation("location must be at most %d characters", MaxLocationLength)
	case utf8.RuneCountInString(in.Description) > MaxDescriptionLength:
		return apperr.Validation("description must be at most %d characters", MaxDescriptionLength)
	case !model.ValidCategory(in.Category):
		return apperr.Validation("unknown category %q", in.Category)
	case in.ItemType != model.ItemTypeLost && in.ItemType != model.ItemTypeFound:
		return apperr.Validation("item_type must be lost or found")
	case (in.Latitude == nil) != (in.Longitude == nil):
		return apperr.Validation("latitude and longitude must be given together")
	}
	if in.Latitude != nil {
		if err := validCoordinates(*in.Latitude, *in.Longitude); err != nil {
			return err
		}
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return err
	}
	in.Tags = tags
	return nil
}

// sanitize drops control characters other than newlines and tabs and trims
// surrounding whitespace.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func normalizeTags(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(sanitize(t))
		if t == "" || seen[t] {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, apperr.Validation("tags must be at most %d characters", MaxTagLength)
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > MaxTags {
		return nil, apperr.Validation("at most %d tags allowed", MaxTags)
	}
	return tags, nil
}

// ReportItem records a new lost or found item with status reported.
func (s *Service) ReportItem(ctx context.Context, ownerID int64, in ItemInput) (*model.Item, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var item *model.Item
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		var err error
		item, err = store.CreateItem(ctx, tx, &model.Item{
			OwnerID:     ownerID,
			Title:       in.Title,
			Category:    in.Category,
			Description: in.Description,
			Location:    in.Location,
			Latitude:    in.Latitude,
			Longitude:   in.Longitude,
			Tags:        in.Tags,
			ItemType:    in.ItemType,
		})
		if err != nil {
			return apperr.Wrap(err, "creating item")
		}
		if err := store.AddTimelineEntry(ctx, tx, item.ID, model.ItemReported, &ownerID, "Item reported"); err != nil {
			return apperr.Wrap(err, "recording timeline")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns a live item.
func (s *Service) GetItem(ctx context.Context, itemID int64) (*model.Item, error) {
	return liveItem(ctx, s.db, itemID)
}

// Timeline returns an item's status history, oldest first.
func (s *Service) Timeline(ctx context.Context, itemID int64) ([]model.TimelineEntry, error) {
	if _, err := liveItem(ctx, s.db, itemID); err != nil {
		return nil, err
	}
	entries, err := store.ListTimeline(ctx, s.db, itemID)
	if err != nil {
		return nil, apperr.Wrap(err, "listing timeline")
	}
	if entries == nil {
		entries = []model.TimelineEntry{}
	}
	return entries, nil
}

// SetImage replaces an item's photo. Only the owner may do this.
func (s *Service) SetImage(ctx context.Context, itemID, actorID int64, r io.Reader) error {
	item, err := liveItem(ctx, s.db, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != actorID {
		return apperr.New(apperr.KindUnauthorized, "only the owner can change the photo")
	}

	result, err := imaging.Process(r)
	if err != nil {
		return apperr.Validation("invalid image: %v", err)
	}

	if err := store.SetItemImage(ctx, s.db, itemID, result.Data, result.MIME); err != nil {
		return apperr.Wrap(err, "storing image")
	}
	return nil
}

// Image returns an item's photo and its MIME type.
func (s *Service) Image(ctx context.Context, itemID int64) ([]byte, string, error) {
	data, mime, err := store.GetItemImage(ctx, s.db, itemID)
	if err != nil {
		return nil, "", apperr.Wrap(err, "loading image")
	}
	if len(data) == 0 {
		return nil, "", apperr.NotFound("image")
	}
	return data, mime, nil
}

// DeleteItem soft-deletes an item. Only the owner may do this.
func (s *Service) DeleteItem(ctx context.Context, itemID, actorID int64) error {
	item, err := liveItem(ctx, s.db, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != actorID {
		return apperr.New(apperr.KindUnauthorized, "only the owner can delete this item")
	}
	if err := store.DeleteItem(ctx, s.db, itemID); err != nil {
		return apperr.Wrap(err, "deleting item")
	}
	return nil
}

func liveItem(ctx context.Context, q store.DBTX, itemID int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, q, itemID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading item")
	}
	if item == nil || item.DeletedAt != nil {
		return nil, apperr.NotFound("item")
	}
	return item, nil
}
