package notify

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/db"
	"github.com/campuslf/lostfound/internal/fixture"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

type parties struct {
	owner, claimer, stranger *model.User
	item                     *model.Item
	claim                    *model.Claim
	ownerNote, claimerNote   *model.Notification
}

func setup(t *testing.T, database *sql.DB, accepted bool) parties {
	t.Helper()
	ctx := context.Background()
	p := parties{
		owner:    fixture.User(t, database, "owner"),
		claimer:  fixture.User(t, database, "claimer"),
		stranger: fixture.User(t, database, "stranger"),
	}
	p.item = fixture.FoundItem(t, database, p.owner.ID, "Blue backpack")

	var err error
	if accepted {
		p.claim = fixture.AcceptedClaim(t, database, p.item.ID, p.claimer.ID)
	} else {
		p.claim, err = store.InsertClaim(ctx, database, p.item.ID, p.claimer.ID, "has my name inside")
		require.NoError(t, err)
	}

	p.ownerNote, err = store.CreateNotification(ctx, database, p.owner.ID, p.claim.ID, "claimed")
	require.NoError(t, err)
	p.claimerNote, err = store.CreateNotification(ctx, database, p.claimer.ID, p.claim.ID, "accepted")
	require.NoError(t, err)
	return p
}

func TestRevealContactOwnerSeesClaimer(t *testing.T) {
	database := db.NewTestDB(t)
	svc := NewService(database, nil)
	p := setup(t, database, false)
	ctx := context.Background()

	contact, err := svc.RevealContact(ctx, p.ownerNote.ID, p.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "claimer@campus.test", contact.Email)
	assert.Equal(t, "claimer", contact.Username)
	assert.Equal(t, "First claimer", contact.DisplayName)

	claim, err := store.GetClaim(ctx, database, p.claim.ID)
	require.NoError(t, err)
	assert.True(t, claim.ContactRevealed)

	again, err := svc.RevealContact(ctx, p.ownerNote.ID, p.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, contact, again)
}

func TestRevealContactRequiresRecipient(t *testing.T) {
	database := db.NewTestDB(t)
	svc := NewService(database, nil)
	p := setup(t, database, false)
	ctx := context.Background()

	_, err := svc.RevealContact(ctx, p.ownerNote.ID, p.stranger.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.RevealContact(ctx, p.ownerNote.ID, p.claimer.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.RevealContact(ctx, 9999, p.owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	claim, err := store.GetClaim(ctx, database, p.claim.ID)
	require.NoError(t, err)
	assert.False(t, claim.ContactRevealed)
}

func TestRevealContactClaimerRecipientOnRejectedClaim(t *testing.T) {
	database := db.NewTestDB(t)
	svc := NewService(database, nil)
	p := setup(t, database, false)
	ctx := context.Background()

	ok, err := store.TransitionClaim(ctx, database, p.claim.ID, model.ClaimPending, model.ClaimRejected, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	contact, err := svc.RevealContact(ctx, p.claimerNote.ID, p.claimer.ID)
	require.NoError(t, err)
	assert.Equal(t, "claimer@campus.test", contact.Email)
	assert.Equal(t, "claimer", contact.Username)

	claim, err := store.GetClaim(ctx, database, p.claim.ID)
	require.NoError(t, err)
	assert.True(t, claim.ContactRevealed)
}

func TestOwnerContactWaitsForAcceptance(t *testing.T) {
	database := db.NewTestDB(t)
	svc := NewService(database, nil)
	ctx := context.Background()

	pending := setup(t, database, false)
	_, err := svc.OwnerContact(ctx, pending.claim.ID, pending.claimer.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	other := db.NewTestDB(t)
	accepted := setup(t, other, true)
	otherSvc := NewService(other, nil)

	_, err = otherSvc.OwnerContact(ctx, accepted.claim.ID, accepted.owner.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	contact, err := otherSvc.OwnerContact(ctx, accepted.claim.ID, accepted.claimer.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@campus.test", contact.Email)

	_, err = otherSvc.OwnerContact(ctx, 9999, accepted.claimer.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMarkRead(t *testing.T) {
	database := db.NewTestDB(t)
	svc := NewService(database, nil)
	p := setup(t, database, false)
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, p.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = svc.MarkRead(ctx, p.ownerNote.ID, p.claimer.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	require.NoError(t, svc.MarkRead(ctx, p.ownerNote.ID, p.owner.ID))
	require.NoError(t, svc.MarkRead(ctx, p.ownerNote.ID, p.owner.ID))

	count, err = svc.UnreadCount(ctx, p.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	unread, err := svc.List(ctx, p.owner.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
	assert.NotNil(t, unread)

	all, err := svc.List(ctx, p.owner.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsRead)
}

func TestNotifyOwner(t *testing.T) {
	database := db.NewTestDB(t)
	mailer := &recordingMailer{}
	dispatcher := NewDispatcher(mailer, 4, 0)
	svc := NewService(database, dispatcher)
	ctx := context.Background()

	owner := fixture.User(t, database, "owner")
	finder := fixture.User(t, database, "finder")
	lost := fixture.LostItem(t, database, owner.ID, "Keys")
	found := fixture.FoundItem(t, database, owner.ID, "Gloves")

	err := svc.NotifyOwner(ctx, found.ID, finder.ID, "I have them")
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))

	err = svc.NotifyOwner(ctx, lost.ID, owner.ID, "hello me")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.NotifyOwner(ctx, lost.ID, finder.ID, "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.NotifyOwner(ctx, lost.ID, finder.ID, "Found them at the gym"))
	dispatcher.Wait()

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@campus.test", sent[0].To)
	assert.Contains(t, sent[0].Body, "finder@campus.test")
	assert.Contains(t, sent[0].Subject, "Keys")
}
