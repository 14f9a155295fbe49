package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/campuslf/lostfound/internal/model"
)

func mustUser(t *testing.T, database *sql.DB, username string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, &model.User{
		Username:     username,
		Email:        username + "@campus.test",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func mustItem(t *testing.T, database *sql.DB, ownerID int64, title string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, &model.Item{
		OwnerID:  ownerID,
		Title:    title,
		Category: "electronics",
		Location: "Library",
		ItemType: model.ItemTypeFound,
	})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	return item
}
