package model

import "time"

// Item is a reported lost or found object.
type Item struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Tags        []string   `json:"tags"`
	Status      ItemStatus `json:"status"`
	ItemType    string     `json:"item_type"`
	ImageMime   string     `json:"image_mime,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	OwnerName string `json:"owner_name,omitempty"`
}

// HasLocation reports whether the item carries geo coordinates.
func (i *Item) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// ItemStatus is the lifecycle status of an item.
type ItemStatus string

// Item statuses.
const (
	ItemReported ItemStatus = "reported"
	ItemClaimed  ItemStatus = "claimed"
	ItemVerified ItemStatus = "verified"
	ItemReturned ItemStatus = "returned"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemReported, ItemClaimed, ItemVerified, ItemReturned:
		return true
	}
	return false
}

// CanTransitionTo reports whether an item may move from s to next. Status only
// moves forward, except that a rejected claim sends a claimed item back to
// reported.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	switch s {
	case ItemReported:
		return next == ItemClaimed
	case ItemClaimed:
		return next == ItemReported || next == ItemVerified || next == ItemReturned
	case ItemVerified:
		return next == ItemReturned
	default:
		return false
	}
}

// Item types.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Categories.
var Categories = []string{
	"electronics",
	"clothing",
	"accessories",
	"books",
	"jewelry",
	"documents",
	"keys",
	"other",
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
