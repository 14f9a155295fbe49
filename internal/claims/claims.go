// Package claims runs the claim workflow: a user claims a found item, the
// item's owner accepts or rejects, and both parties are notified.
package claims

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/notify"
	"github.com/campuslf/lostfound/internal/store"
)

// MaxMessageLength bounds the claimer's message to the owner.
const MaxMessageLength = 2000

// Options configures a Workflow.
type Options struct {
	// IncludeContactOnAccept puts the owner's email and name into the
	// acceptance email instead of leaving disclosure to RevealContact.
	IncludeContactOnAccept bool
}

// Workflow creates and decides claims.
type Workflow struct {
	db   *sql.DB
	mail *notify.Dispatcher
	opts Options
}

// NewWorkflow creates a claim workflow. mail may be nil.
func NewWorkflow(db *sql.DB, mail *notify.Dispatcher, opts Options) *Workflow {
	return &Workflow{db: db, mail: mail, opts: opts}
}

// ClaimReceipt identifies the rows written by CreateClaim.
type ClaimReceipt struct {
	ClaimID        int64 `json:"claim_id"`
	NotificationID int64 `json:"notification_id"`
}

// CreateClaim files a pending claim on a found item and notifies the owner.
// The item stays reported until the owner decides. Concurrent claims on the
// same item produce exactly one winner; the rest get AlreadyClaimed.
func (w *Workflow) CreateClaim(ctx context.Context, itemID, claimerID int64, message string) (*ClaimReceipt, error) {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, apperr.Validation("message must be at most %d characters", MaxMessageLength)
	}

	var (
		receipt ClaimReceipt
		mail    notify.Message
	)
	err := store.WithTx(ctx, w.db, func(ctx context.Context, tx store.DBTX) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return apperr.Wrap(err, "loading item")
		}
		if item == nil || item.DeletedAt != nil {
			return apperr.NotFound("item")
		}

		switch item.Status {
		case model.ItemClaimed:
			return apperr.New(apperr.KindAlreadyClaimed, "item already claimed")
		case model.ItemVerified, model.ItemReturned:
			return apperr.New(apperr.KindInvalidTransition, "item has already been returned")
		}
		if item.OwnerID == claimerID {
			return apperr.New(apperr.KindSelfClaim, "you cannot claim your own item")
		}
		if item.ItemType != model.ItemTypeFound {
			return apperr.New(apperr.KindInvalidTransition, "only found items can be claimed")
		}

		active, err := store.GetActiveClaim(ctx, tx, itemID)
		if err != nil {
			return apperr.Wrap(err, "checking active claim")
		}
		if active != nil {
			return apperr.New(apperr.KindAlreadyClaimed, "this item has already been claimed by someone else")
		}

		claimer, owner, err := loadParties(ctx, tx, claimerID, item.OwnerID)
		if err != nil {
			return err
		}

		claim, err := store.InsertClaim(ctx, tx, itemID, claimerID, message)
		if store.IsUniqueViolation(err) {
			return apperr.New(apperr.KindAlreadyClaimed, "this item has already been claimed by someone else")
		}
		if err != nil {
			return apperr.Wrap(err, "creating claim")
		}

		err = store.AddTimelineEntry(ctx, tx, itemID, item.Status, &claimerID,
			"New claim submitted by "+claimer.Username)
		if err != nil {
			return apperr.Wrap(err, "recording timeline")
		}

		n, err := store.CreateNotification(ctx, tx, owner.ID, claim.ID,
			notify.ClaimSubmittedText(claimer.Username, item.Title))
		if err != nil {
			return apperr.Wrap(err, "creating notification")
		}

		receipt = ClaimReceipt{ClaimID: claim.ID, NotificationID: n.ID}
		mail = notify.ClaimSubmittedMail(owner, claimer.Username, item.Title, message)
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.mail.Dispatch(mail)
	return &receipt, nil
}

// AcceptClaim accepts a pending claim on the actor's item. The item becomes
// claimed and the claimer is notified.
func (w *Workflow) AcceptClaim(ctx context.Context, claimID, actorID int64) (*model.Claim, error) {
	return w.decide(ctx, claimID, actorID, model.ClaimAccepted)
}

// RejectClaim rejects a pending claim on the actor's item. The item is open
// for new claims again and the claimer is notified.
func (w *Workflow) RejectClaim(ctx context.Context, claimID, actorID int64) (*model.Claim, error) {
	return w.decide(ctx, claimID, actorID, model.ClaimRejected)
}

func (w *Workflow) decide(ctx context.Context, claimID, actorID int64, to model.ClaimStatus) (*model.Claim, error) {
	var (
		result *model.Claim
		mail   notify.Message
	)
	err := store.WithTx(ctx, w.db, func(ctx context.Context, tx store.DBTX) error {
		claim, err := store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		if claim == nil {
			return apperr.NotFound("claim")
		}
		if claim.ItemOwnerID != actorID {
			return apperr.New(apperr.KindUnauthorized, "only the item owner can decide a claim")
		}
		if claim.Status != model.ClaimPending {
			return apperr.New(apperr.KindAlreadyProcessed, "claim already processed")
		}

		ok, err := store.TransitionClaim(ctx, tx, claimID, model.ClaimPending, to, time.Now())
		if err != nil {
			return apperr.Wrap(err, "updating claim")
		}
		if !ok {
			return apperr.New(apperr.KindAlreadyProcessed, "claim already processed")
		}

		item, err := store.GetItem(ctx, tx, claim.ItemID)
		if err != nil {
			return apperr.Wrap(err, "loading item")
		}
		if item == nil {
			return apperr.NotFound("item")
		}

		claimer, owner, err := loadParties(ctx, tx, claim.ClaimerID, actorID)
		if err != nil {
			return err
		}

		var (
			itemStatus model.ItemStatus
			text       string
		)
		if to == model.ClaimAccepted {
			if item.DeletedAt != nil || item.Status != model.ItemReported {
				return apperr.New(apperr.KindInvalidTransition, "item is no longer open for claims")
			}
			if _, err := store.SetItemStatus(ctx, tx, item.ID, model.ItemReported, model.ItemClaimed); err != nil {
				return apperr.Wrap(err, "updating item")
			}
			itemStatus = model.ItemClaimed
			text = notify.ClaimAcceptedText(item.Title)
			mail = notify.ClaimAcceptedMail(claimer, owner, item.Title, w.opts.IncludeContactOnAccept)
		} else {
			if item.Status == model.ItemClaimed {
				if _, err := store.SetItemStatus(ctx, tx, item.ID, model.ItemClaimed, model.ItemReported); err != nil {
					return apperr.Wrap(err, "updating item")
				}
			}
			itemStatus = model.ItemReported
			text = notify.ClaimRejectedText(item.Title)
			mail = notify.ClaimRejectedMail(claimer, item.Title)
		}

		note := fmt.Sprintf("Claim %s by owner %s", to, owner.Username)
		if err := store.AddTimelineEntry(ctx, tx, item.ID, itemStatus, &actorID, note); err != nil {
			return apperr.Wrap(err, "recording timeline")
		}
		if _, err := store.CreateNotification(ctx, tx, claimer.ID, claimID, text); err != nil {
			return apperr.Wrap(err, "creating notification")
		}

		result, err = store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.mail.Dispatch(mail)
	return result, nil
}

// GetClaim returns a claim visible to the actor: its claimer, the item owner,
// or staff.
func (w *Workflow) GetClaim(ctx context.Context, claimID, actorID int64, staff bool) (*model.Claim, error) {
	claim, err := store.GetClaim(ctx, w.db, claimID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading claim")
	}
	if claim == nil {
		return nil, apperr.NotFound("claim")
	}
	if !staff && claim.ClaimerID != actorID && claim.ItemOwnerID != actorID {
		return nil, apperr.New(apperr.KindUnauthorized, "not a party to this claim")
	}
	return claim, nil
}

// ListClaimsForItem returns the claim history of an item. The owner and staff
// see every claim; anyone else sees only their own.
func (w *Workflow) ListClaimsForItem(ctx context.Context, itemID, actorID int64, staff bool) ([]model.Claim, error) {
	item, err := store.GetItem(ctx, w.db, itemID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading item")
	}
	if item == nil {
		return nil, apperr.NotFound("item")
	}

	claims, err := store.ListClaimsForItem(ctx, w.db, itemID)
	if err != nil {
		return nil, apperr.Wrap(err, "listing claims")
	}

	visible := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		if staff || item.OwnerID == actorID || c.ClaimerID == actorID {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// ListMyClaims returns the claims a user has submitted.
func (w *Workflow) ListMyClaims(ctx context.Context, claimerID int64) ([]model.Claim, error) {
	claims, err := store.ListClaimsByClaimer(ctx, w.db, claimerID)
	if err != nil {
		return nil, apperr.Wrap(err, "listing claims")
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	return claims, nil
}

func loadParties(ctx context.Context, q store.DBTX, claimerID, ownerID int64) (claimer, owner *model.User, err error) {
	claimer, err = store.GetUser(ctx, q, claimerID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "loading claimer")
	}
	owner, err = store.GetUser(ctx, q, ownerID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "loading owner")
	}
	if claimer == nil || owner == nil {
		return nil, nil, apperr.NotFound("user")
	}
	return claimer, owner, nil
}
