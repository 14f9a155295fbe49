package catalog

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// Query filters a catalog search. Text is matched fuzzily against titles and
// tags; empty fields match everything.
type Query struct {
	Text     string
	Status   model.ItemStatus
	ItemType string
	Category string
	OwnerID  int64
}

// searchItems implements fuzzy.Source over item titles and tags.
type searchItems []model.Item

func (items searchItems) Len() int { return len(items) }

func (items searchItems) String(i int) string {
	if len(items[i].Tags) == 0 {
		return items[i].Title
	}
	return items[i].Title + " " + strings.Join(items[i].Tags, " ")
}

// Search lists live items matching q. With a text query, results are ordered
// by match quality; otherwise newest first.
func (s *Service) Search(ctx context.Context, q Query) ([]model.Item, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", q.Status)
	}

	items, err := store.ListItems(ctx, s.db, store.ItemFilter{
		Status:   q.Status,
		ItemType: q.ItemType,
		Category: q.Category,
		OwnerID:  q.OwnerID,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "listing items")
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		if items == nil {
			items = []model.Item{}
		}
		return items, nil
	}

	source := searchItems(items)
	matches := fuzzy.FindFrom(text, source)
	results := make([]model.Item, len(matches))
	for i, m := range matches {
		results[i] = source[m.Index]
	}
	return results, nil
}
