package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/db"
	"github.com/campuslf/lostfound/internal/fixture"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, haversine(46, 14, 46, 14), 1e-9)
	// One degree of latitude is about 111.19 km.
	assert.InDelta(t, 111.19, haversine(0, 0, 1, 0), 0.01)
}

func TestNearby(t *testing.T) {
	database := db.NewTestDB(t)
	svc := NewService(database)
	owner := fixture.User(t, database, "owner")
	ctx := context.Background()

	report := func(title string, lat, lng float64) *model.Item {
		in := validInput()
		in.Title, in.Latitude, in.Longitude = title, ptr(lat), ptr(lng)
		item, err := svc.ReportItem(ctx, owner.ID, in)
		require.NoError(t, err)
		return item
	}
	report("far", 46.05+0.03, 14.5)
	report("near", 46.05+0.01, 14.5)
	report("out of range", 46.05+0.2, 14.5)
	returned := report("returned", 46.05, 14.5)
	_, err := svc.ReportItem(ctx, owner.ID, validInput())
	require.NoError(t, err)

	_, err = database.ExecContext(ctx, `UPDATE items SET status = ? WHERE id = ?`, model.ItemReturned, returned.ID)
	require.NoError(t, err)

	got, radius, err := svc.Nearby(ctx, 46.05, 14.5, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, radius)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Title)
	assert.InDelta(t, 1.11, got[0].DistanceKm, 0.01)
	assert.Equal(t, "far", got[1].Title)

	_, radius, err = svc.Nearby(ctx, 46.05, 14.5, 500)
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultRadiusKm), radius)

	got, radius, err = svc.Nearby(ctx, 46.05, 14.5, 30)
	require.NoError(t, err)
	assert.Equal(t, 30.0, radius)
	assert.Len(t, got, 3)

	_, _, err = svc.Nearby(ctx, 95, 14.5, 5)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	deleted := report("deleted", 46.05, 14.5)
	require.NoError(t, store.DeleteItem(ctx, database, deleted.ID))
	got, _, err = svc.Nearby(ctx, 46.05, 14.5, 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
