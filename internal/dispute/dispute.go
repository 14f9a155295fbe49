// Package dispute lets claim parties escalate to staff and lets users flag
// items or claims for moderation.
package dispute

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// Text limits.
const (
	MaxReasonLength      = 2000
	MaxDescriptionLength = 1000
)

// Service manages disputes and moderation flags.
type Service struct {
	db *sql.DB
}

// NewService creates a dispute service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// CreateDispute opens a dispute on a pending or accepted claim. Only the item
// owner or the claimer may raise one, and a claim has at most one active
// dispute.
func (s *Service) CreateDispute(ctx context.Context, claimID, actorID int64, reason string) (*model.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, apperr.Validation("reason must be at most %d characters", MaxReasonLength)
	}

	var d *model.Dispute
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		claim, err := store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		if claim == nil {
			return apperr.NotFound("claim")
		}
		if actorID != claim.ItemOwnerID && actorID != claim.ClaimerID {
			return apperr.New(apperr.KindUnauthorized, "only the claim parties can open a dispute")
		}
		if !claim.Status.Disputable() {
			return apperr.New(apperr.KindInvalidTransition, "claims that are %s cannot be disputed", claim.Status)
		}

		active, err := store.GetActiveDispute(ctx, tx, claimID)
		if err != nil {
			return apperr.Wrap(err, "checking disputes")
		}
		if active != nil {
			return apperr.New(apperr.KindDisputeExists, "a dispute already exists for this claim")
		}

		d, err = store.CreateDispute(ctx, tx, &model.Dispute{
			ClaimID:    claimID,
			ReporterID: claim.ItemOwnerID,
			ClaimerID:  claim.ClaimerID,
			RaisedBy:   actorID,
			Reason:     reason,
		})
		if store.IsUniqueViolation(err) {
			return apperr.New(apperr.KindDisputeExists, "a dispute already exists for this claim")
		}
		if err != nil {
			return apperr.Wrap(err, "creating dispute")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// AssignDispute hands an active dispute to a staff member and marks it in
// progress.
func (s *Service) AssignDispute(ctx context.Context, disputeID, staffID int64) (*model.Dispute, error) {
	var d *model.Dispute
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		if err := requireStaff(ctx, tx, staffID); err != nil {
			return err
		}
		if _, err := loadDispute(ctx, tx, disputeID); err != nil {
			return err
		}

		ok, err := store.AssignDispute(ctx, tx, disputeID, staffID)
		if err != nil {
			return apperr.Wrap(err, "assigning dispute")
		}
		if !ok {
			return apperr.New(apperr.KindInvalidTransition, "dispute is no longer active")
		}

		d, err = loadDispute(ctx, tx, disputeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ResolveDispute settles an active dispute. favor_claimer accepts the claim
// and marks the item claimed; favor_reporter rejects the claim and reopens the
// item. Other resolutions leave the claim alone.
func (s *Service) ResolveDispute(ctx context.Context, disputeID int64, resolution, notes string, staffID int64) (*model.Dispute, error) {
	if !model.ValidResolution(resolution) {
		return nil, apperr.Validation("unknown resolution %q", resolution)
	}
	notes = strings.TrimSpace(notes)

	var d *model.Dispute
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		staff, err := loadStaff(ctx, tx, staffID)
		if err != nil {
			return err
		}
		d, err = loadDispute(ctx, tx, disputeID)
		if err != nil {
			return err
		}
		if !model.DisputeActive(d.Status) {
			return apperr.New(apperr.KindInvalidTransition, "dispute is already %s", d.Status)
		}

		switch resolution {
		case model.ResolutionFavorClaimer:
			err = favorClaimer(ctx, tx, d.ClaimID, staff)
		case model.ResolutionFavorReporter:
			err = favorReporter(ctx, tx, d.ClaimID, staff)
		}
		if err != nil {
			return err
		}

		ok, err := store.FinishDispute(ctx, tx, disputeID, model.DisputeResolved, resolution, notes, time.Now())
		if err != nil {
			return apperr.Wrap(err, "resolving dispute")
		}
		if !ok {
			return apperr.New(apperr.KindInvalidTransition, "dispute is no longer active")
		}

		d, err = loadDispute(ctx, tx, disputeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func disputedClaim(ctx context.Context, tx store.DBTX, claimID int64) (*model.Claim, *model.Item, error) {
	claim, err := store.GetClaim(ctx, tx, claimID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "loading claim")
	}
	if claim == nil {
		return nil, nil, apperr.NotFound("claim")
	}
	if !claim.Status.Disputable() {
		return nil, nil, apperr.New(apperr.KindInvalidTransition, "claim is already %s", claim.Status)
	}
	item, err := store.GetItem(ctx, tx, claim.ItemID)
	if err != nil {
		return nil, nil, apperr.Wrap(err, "loading item")
	}
	if item == nil {
		return nil, nil, apperr.NotFound("item")
	}
	return claim, item, nil
}

func favorClaimer(ctx context.Context, tx store.DBTX, claimID int64, staff *model.User) error {
	claim, item, err := disputedClaim(ctx, tx, claimID)
	if err != nil {
		return err
	}

	if claim.Status == model.ClaimPending {
		if _, err := store.TransitionClaim(ctx, tx, claimID, model.ClaimPending, model.ClaimAccepted, time.Now()); err != nil {
			return apperr.Wrap(err, "accepting claim")
		}
	}
	if item.Status == model.ItemReported {
		if _, err := store.SetItemStatus(ctx, tx, item.ID, model.ItemReported, model.ItemClaimed); err != nil {
			return apperr.Wrap(err, "updating item")
		}
	}

	note := fmt.Sprintf("Dispute resolved in favor of claimer %s by %s", claim.ClaimerName, staff.Username)
	if err := store.AddTimelineEntry(ctx, tx, item.ID, model.ItemClaimed, &staff.ID, note); err != nil {
		return apperr.Wrap(err, "recording timeline")
	}
	return nil
}

func favorReporter(ctx context.Context, tx store.DBTX, claimID int64, staff *model.User) error {
	claim, item, err := disputedClaim(ctx, tx, claimID)
	if err != nil {
		return err
	}
	return rejectClaim(ctx, tx, claim, item, staff.ID, "Dispute resolved in favor of reporter by "+staff.Username)
}

// rejectClaim rejects a pending or accepted claim and reopens its item.
func rejectClaim(ctx context.Context, tx store.DBTX, claim *model.Claim, item *model.Item, actorID int64, note string) error {
	if _, err := store.TransitionClaim(ctx, tx, claim.ID, claim.Status, model.ClaimRejected, time.Now()); err != nil {
		return apperr.Wrap(err, "rejecting claim")
	}
	if item.Status == model.ItemClaimed {
		if _, err := store.SetItemStatus(ctx, tx, item.ID, model.ItemClaimed, model.ItemReported); err != nil {
			return apperr.Wrap(err, "updating item")
		}
	}
	if err := store.AddTimelineEntry(ctx, tx, item.ID, model.ItemReported, &actorID, note); err != nil {
		return apperr.Wrap(err, "recording timeline")
	}
	return nil
}

// CloseDispute closes a dispute whether or not it was resolved.
func (s *Service) CloseDispute(ctx context.Context, disputeID int64, notes string, staffID int64) (*model.Dispute, error) {
	var d *model.Dispute
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		if err := requireStaff(ctx, tx, staffID); err != nil {
			return err
		}
		if _, err := loadDispute(ctx, tx, disputeID); err != nil {
			return err
		}

		ok, err := store.CloseDispute(ctx, tx, disputeID, strings.TrimSpace(notes), time.Now())
		if err != nil {
			return apperr.Wrap(err, "closing dispute")
		}
		if !ok {
			return apperr.New(apperr.KindInvalidTransition, "dispute is already closed")
		}

		d, err = loadDispute(ctx, tx, disputeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDisputes returns disputes for staff, optionally filtered by status.
func (s *Service) ListDisputes(ctx context.Context, status string, staffID int64) ([]model.Dispute, error) {
	if err := requireStaff(ctx, s.db, staffID); err != nil {
		return nil, err
	}
	disputes, err := store.ListDisputes(ctx, s.db, status)
	if err != nil {
		return nil, apperr.Wrap(err, "listing disputes")
	}
	if disputes == nil {
		disputes = []model.Dispute{}
	}
	return disputes, nil
}

func loadDispute(ctx context.Context, q store.DBTX, id int64) (*model.Dispute, error) {
	d, err := store.GetDispute(ctx, q, id)
	if err != nil {
		return nil, apperr.Wrap(err, "loading dispute")
	}
	if d == nil {
		return nil, apperr.NotFound("dispute")
	}
	return d, nil
}

func loadStaff(ctx context.Context, q store.DBTX, userID int64) (*model.User, error) {
	u, err := store.GetUser(ctx, q, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading user")
	}
	if u == nil || u.DeletedAt != nil || !model.RoleAtLeast(u.Role, model.RoleStaff) {
		return nil, apperr.New(apperr.KindUnauthorized, "staff only")
	}
	return u, nil
}

func requireStaff(ctx context.Context, q store.DBTX, userID int64) error {
	_, err := loadStaff(ctx, q, userID)
	return err
}
