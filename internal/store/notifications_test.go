package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslf/lostfound/internal/db"
)

func TestNotificationLifecycle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner")
	claimer := mustUser(t, database, "claimer")
	item := mustItem(t, database, owner.ID, "Bike lock")
	c, err := InsertClaim(ctx, database, item.ID, claimer.ID, "")
	require.NoError(t, err)

	n1, err := CreateNotification(ctx, database, owner.ID, c.ID, "first")
	require.NoError(t, err)
	_, err = CreateNotification(ctx, database, owner.ID, c.ID, "second")
	require.NoError(t, err)
	_, err = CreateNotification(ctx, database, claimer.ID, c.ID, "other")
	require.NoError(t, err)

	assert.Equal(t, item.ID, n1.ItemID)
	assert.Equal(t, "Bike lock", n1.ItemTitle)
	assert.False(t, n1.IsRead)

	unread, err := CountUnread(ctx, database, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	require.NoError(t, MarkNotificationRead(ctx, database, n1.ID))
	require.NoError(t, MarkNotificationRead(ctx, database, n1.ID))

	unread, _ = CountUnread(ctx, database, owner.ID)
	assert.Equal(t, 1, unread)

	onlyUnread, err := ListNotifications(ctx, database, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, onlyUnread, 1)
	assert.Equal(t, "second", onlyUnread[0].Message)

	all, err := ListNotifications(ctx, database, owner.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
