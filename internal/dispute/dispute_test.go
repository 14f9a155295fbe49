package dispute

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/db"
	"github.com/campuslf/lostfound/internal/fixture"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

type world struct {
	svc *Service
	db  *sql.DB

	owner, claimer, stranger, staff *model.User
	item                            *model.Item
}

func newWorld(t *testing.T) *world {
	t.Helper()
	database := db.NewTestDB(t)
	w := &world{
		svc:      NewService(database),
		db:       database,
		owner:    fixture.User(t, database, "owner"),
		claimer:  fixture.User(t, database, "claimer"),
		stranger: fixture.User(t, database, "stranger"),
		staff:    fixture.UserWithRole(t, database, "staff", model.RoleStaff),
	}
	w.item = fixture.FoundItem(t, database, w.owner.ID, "Camera")
	return w
}

func (w *world) pendingClaim(t *testing.T) *model.Claim {
	t.Helper()
	c, err := store.InsertClaim(context.Background(), w.db, w.item.ID, w.claimer.ID, "")
	require.NoError(t, err)
	return c
}

func (w *world) itemStatus(t *testing.T) model.ItemStatus {
	t.Helper()
	item, err := store.GetItem(context.Background(), w.db, w.item.ID)
	require.NoError(t, err)
	return item.Status
}

func (w *world) claimStatus(t *testing.T, id int64) model.ClaimStatus {
	t.Helper()
	c, err := store.GetClaim(context.Background(), w.db, id)
	require.NoError(t, err)
	return c.Status
}

func TestCreateDispute(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	claim := w.pendingClaim(t)

	_, err := w.svc.CreateDispute(ctx, claim.ID, w.claimer.ID, "  ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = w.svc.CreateDispute(ctx, 9999, w.claimer.ID, "reason")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = w.svc.CreateDispute(ctx, claim.ID, w.stranger.ID, "reason")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	d, err := w.svc.CreateDispute(ctx, claim.ID, w.claimer.ID, "owner is ignoring me")
	require.NoError(t, err)
	assert.Equal(t, model.DisputeOpen, d.Status)
	assert.Equal(t, w.owner.ID, d.ReporterID)
	assert.Equal(t, w.claimer.ID, d.ClaimerID)
	assert.Equal(t, w.claimer.ID, d.RaisedBy)

	_, err = w.svc.CreateDispute(ctx, claim.ID, w.owner.ID, "counter")
	assert.True(t, apperr.Is(err, apperr.KindDisputeExists))
}

func TestCreateDisputeNeedsOpenClaim(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	claim := fixture.AcceptedClaim(t, w.db, w.item.ID, w.claimer.ID)

	_, err := store.TransitionClaim(ctx, w.db, claim.ID, model.ClaimAccepted, model.ClaimCompleted, claim.ClaimedAt)
	require.NoError(t, err)

	_, err = w.svc.CreateDispute(ctx, claim.ID, w.owner.ID, "too late")
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestResolveFavorClaimer(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	claim := w.pendingClaim(t)
	d, err := w.svc.CreateDispute(ctx, claim.ID, w.claimer.ID, "please decide")
	require.NoError(t, err)

	_, err = w.svc.ResolveDispute(ctx, d.ID, model.ResolutionFavorClaimer, "", w.owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = w.svc.ResolveDispute(ctx, d.ID, "coin_flip", "", w.staff.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	resolved, err := w.svc.ResolveDispute(ctx, d.ID, model.ResolutionFavorClaimer, "receipt checked", w.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DisputeResolved, resolved.Status)
	assert.Equal(t, model.ResolutionFavorClaimer, resolved.Resolution)
	assert.NotNil(t, resolved.ResolvedAt)

	assert.Equal(t, model.ClaimAccepted, w.claimStatus(t, claim.ID))
	assert.Equal(t, model.ItemClaimed, w.itemStatus(t))

	timeline, err := store.ListTimeline(ctx, w.db, w.item.ID)
	require.NoError(t, err)
	require.NotEmpty(t, timeline)
	assert.Equal(t, model.ItemClaimed, timeline[len(timeline)-1].Status)

	_, err = w.svc.ResolveDispute(ctx, d.ID, model.ResolutionNoResolution, "", w.staff.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestResolveFavorReporter(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	claim := fixture.AcceptedClaim(t, w.db, w.item.ID, w.claimer.ID)
	d, err := w.svc.CreateDispute(ctx, claim.ID, w.owner.ID, "wrong person")
	require.NoError(t, err)

	_, err = w.svc.AssignDispute(ctx, d.ID, w.stranger.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	assigned, err := w.svc.AssignDispute(ctx, d.ID, w.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DisputeInProgress, assigned.Status)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, w.staff.ID, *assigned.AssignedTo)

	_, err = w.svc.ResolveDispute(ctx, d.ID, model.ResolutionFavorReporter, "", w.staff.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ClaimRejected, w.claimStatus(t, claim.ID))
	assert.Equal(t, model.ItemReported, w.itemStatus(t))

	// The item is open for a fresh claim.
	_, err = store.InsertClaim(ctx, w.db, w.item.ID, w.stranger.ID, "")
	assert.NoError(t, err)
}

func TestResolveOtherLeavesClaimAlone(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	claim := fixture.AcceptedClaim(t, w.db, w.item.ID, w.claimer.ID)
	d, err := w.svc.CreateDispute(ctx, claim.ID, w.owner.ID, "talked it out")
	require.NoError(t, err)

	_, err = w.svc.ResolveDispute(ctx, d.ID, model.ResolutionMutualAgreement, "", w.staff.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ClaimAccepted, w.claimStatus(t, claim.ID))
	assert.Equal(t, model.ItemClaimed, w.itemStatus(t))
}

func TestCloseAndListDisputes(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	claim := w.pendingClaim(t)
	d, err := w.svc.CreateDispute(ctx, claim.ID, w.claimer.ID, "stalled")
	require.NoError(t, err)

	_, err = w.svc.ListDisputes(ctx, "", w.claimer.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	open, err := w.svc.ListDisputes(ctx, model.DisputeOpen, w.staff.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	closed, err := w.svc.CloseDispute(ctx, d.ID, "withdrawn", w.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DisputeClosed, closed.Status)
	assert.Equal(t, "withdrawn", closed.AdminNotes)

	_, err = w.svc.CloseDispute(ctx, d.ID, "", w.staff.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	open, err = w.svc.ListDisputes(ctx, model.DisputeOpen, w.staff.ID)
	require.NoError(t, err)
	assert.Empty(t, open)

	// Closing frees the claim for a new dispute.
	_, err = w.svc.CreateDispute(ctx, claim.ID, w.owner.ID, "second try")
	assert.NoError(t, err)
}

func TestAdminCountsAsStaff(t *testing.T) {
	w := newWorld(t)
	admin := fixture.UserWithRole(t, w.db, "admin", model.RoleAdmin)

	_, err := w.svc.ListDisputes(context.Background(), "", admin.ID)
	assert.NoError(t, err)
}
