package dispute

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// FlagInput is a user report on an item or a claim. Exactly one target must
// be set.
type FlagInput struct {
	ItemID      *int64 `json:"item_id,omitempty"`
	ClaimID     *int64 `json:"claim_id,omitempty"`
	FlaggedBy   int64  `json:"-"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// Review actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionRemove  = "remove"
)

var actionStatus = map[string]string{
	ActionApprove: model.FlagApproved,
	ActionReject:  model.FlagRejected,
	ActionRemove:  model.FlagRemoved,
}

// FlagContent records a moderation flag. A user can have only one pending
// flag per target.
func (s *Service) FlagContent(ctx context.Context, in FlagInput) (*model.Flag, error) {
	if (in.ItemID == nil) == (in.ClaimID == nil) {
		return nil, apperr.Validation("flag exactly one of item_id or claim_id")
	}
	if !model.ValidFlagReason(in.Reason) {
		return nil, apperr.Validation("unknown flag reason %q", in.Reason)
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, apperr.Validation("description is required")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return nil, apperr.Validation("description must be at most %d characters", MaxDescriptionLength)
	}

	var f *model.Flag
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		if in.ItemID != nil {
			item, err := store.GetItem(ctx, tx, *in.ItemID)
			if err != nil {
				return apperr.Wrap(err, "loading item")
			}
			if item == nil || item.DeletedAt != nil {
				return apperr.NotFound("item")
			}
		} else {
			claim, err := store.GetClaim(ctx, tx, *in.ClaimID)
			if err != nil {
				return apperr.Wrap(err, "loading claim")
			}
			if claim == nil {
				return apperr.NotFound("claim")
			}
		}

		dup, err := store.HasPendingFlag(ctx, tx, in.FlaggedBy, in.ItemID, in.ClaimID)
		if err != nil {
			return apperr.Wrap(err, "checking flags")
		}
		if dup {
			return apperr.New(apperr.KindAlreadyProcessed, "you have already flagged this content")
		}

		flaggedBy := in.FlaggedBy
		f, err = store.CreateFlag(ctx, tx, &model.Flag{
			ItemID:      in.ItemID,
			ClaimID:     in.ClaimID,
			FlaggedBy:   &flaggedBy,
			Reason:      in.Reason,
			Description: in.Description,
		})
		if err != nil {
			return apperr.Wrap(err, "creating flag")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReviewFlag settles a pending flag. remove soft-deletes a flagged item, or
// rejects a flagged claim and reopens its item.
func (s *Service) ReviewFlag(ctx context.Context, flagID int64, action, notes string, staffID int64) (*model.Flag, error) {
	status, ok := actionStatus[action]
	if !ok {
		return nil, apperr.Validation("unknown review action %q", action)
	}
	notes = strings.TrimSpace(notes)

	var f *model.Flag
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		staff, err := loadStaff(ctx, tx, staffID)
		if err != nil {
			return err
		}
		f, err = loadFlag(ctx, tx, flagID)
		if err != nil {
			return err
		}
		if f.Status != model.FlagPending {
			return apperr.New(apperr.KindAlreadyProcessed, "flag already reviewed")
		}

		if action == ActionRemove {
			if err := removeFlagged(ctx, tx, f, staff); err != nil {
				return err
			}
		}

		ok, err := store.ReviewFlag(ctx, tx, flagID, status, staff.ID, notes, time.Now())
		if err != nil {
			return apperr.Wrap(err, "reviewing flag")
		}
		if !ok {
			return apperr.New(apperr.KindAlreadyProcessed, "flag already reviewed")
		}

		f, err = loadFlag(ctx, tx, flagID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func removeFlagged(ctx context.Context, tx store.DBTX, f *model.Flag, staff *model.User) error {
	if f.ItemID != nil {
		if err := store.DeleteItem(ctx, tx, *f.ItemID); err != nil {
			return apperr.Wrap(err, "removing item")
		}
		return nil
	}

	claim, err := store.GetClaim(ctx, tx, *f.ClaimID)
	if err != nil {
		return apperr.Wrap(err, "loading claim")
	}
	if claim == nil || !claim.Status.Disputable() {
		return nil
	}
	item, err := store.GetItem(ctx, tx, claim.ItemID)
	if err != nil {
		return apperr.Wrap(err, "loading item")
	}
	if item == nil {
		return apperr.NotFound("item")
	}
	return rejectClaim(ctx, tx, claim, item, staff.ID, "Claim removed by moderator "+staff.Username)
}

// ListFlags returns flags for staff, optionally filtered by status.
func (s *Service) ListFlags(ctx context.Context, status string, staffID int64) ([]model.Flag, error) {
	if err := requireStaff(ctx, s.db, staffID); err != nil {
		return nil, err
	}
	flags, err := store.ListFlags(ctx, s.db, status)
	if err != nil {
		return nil, apperr.Wrap(err, "listing flags")
	}
	if flags == nil {
		flags = []model.Flag{}
	}
	return flags, nil
}

func loadFlag(ctx context.Context, q store.DBTX, id int64) (*model.Flag, error) {
	f, err := store.GetFlag(ctx, q, id)
	if err != nil {
		return nil, apperr.Wrap(err, "loading flag")
	}
	if f == nil {
		return nil, apperr.NotFound("flag")
	}
	return f, nil
}
