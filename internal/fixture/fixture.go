// Package fixture creates users, items and claims for service tests.
package fixture

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// User creates a user with role user and an address at campus.test.
func User(t *testing.T, db *sql.DB, username string) *model.User {
	t.Helper()
	return UserWithRole(t, db, username, model.RoleUser)
}

// UserWithRole creates a user with the given role.
func UserWithRole(t *testing.T, db *sql.DB, username, role string) *model.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), db, &model.User{
		Username:     username,
		Email:        username + "@campus.test",
		FirstName:    "First",
		LastName:     username,
		PasswordHash: "x",
		Role:         role,
	})
	require.NoError(t, err)
	return u
}

// FoundItem reports a found item owned by ownerID.
func FoundItem(t *testing.T, db *sql.DB, ownerID int64, title string) *model.Item {
	t.Helper()
	return item(t, db, ownerID, title, model.ItemTypeFound)
}

// LostItem reports a lost item owned by ownerID.
func LostItem(t *testing.T, db *sql.DB, ownerID int64, title string) *model.Item {
	t.Helper()
	return item(t, db, ownerID, title, model.ItemTypeLost)
}

func item(t *testing.T, db *sql.DB, ownerID int64, title, itemType string) *model.Item {
	t.Helper()
	it, err := store.CreateItem(context.Background(), db, &model.Item{
		OwnerID:  ownerID,
		Title:    title,
		Category: "other",
		Location: "Main hall",
		ItemType: itemType,
	})
	require.NoError(t, err)
	return it
}

// AcceptedClaim inserts a claim and moves it and its item straight to
// accepted/claimed, bypassing the workflow.
func AcceptedClaim(t *testing.T, db *sql.DB, itemID, claimerID int64) *model.Claim {
	t.Helper()
	ctx := context.Background()
	c, err := store.InsertClaim(ctx, db, itemID, claimerID, "")
	require.NoError(t, err)

	ok, err := store.TransitionClaim(ctx, db, c.ID, model.ClaimPending, model.ClaimAccepted, c.ClaimedAt)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetItemStatus(ctx, db, itemID, model.ItemReported, model.ItemClaimed)
	require.NoError(t, err)
	require.True(t, ok)

	c, err = store.GetClaim(ctx, db, c.ID)
	require.NoError(t, err)
	return c
}
