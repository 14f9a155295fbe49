// Package verify confirms that a claimed item has been handed back, either by
// scanning the claim's QR code or by the owner marking it returned.
package verify

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/imaging"
	"github.com/campuslf/lostfound/internal/karma"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/objstore"
	"github.com/campuslf/lostfound/internal/store"
)

// Service issues and redeems QR handoff codes.
type Service struct {
	db     *sql.DB
	karma  *karma.Ledger
	sink   objstore.Sink
	qrSize int
}

// NewService creates a verification service. A nil sink inlines QR images as
// data URLs.
func NewService(db *sql.DB, ledger *karma.Ledger, sink objstore.Sink) *Service {
	if sink == nil {
		sink = objstore.DataURLSink{}
	}
	return &Service{db: db, karma: ledger, sink: sink, qrSize: imaging.DefaultQRSize}
}

// Result describes a completed return.
type Result struct {
	ItemID       int64  `json:"item_id"`
	ItemTitle    string `json:"item_title"`
	ClaimID      int64  `json:"claim_id"`
	ClaimerID    int64  `json:"claimer_id"`
	KarmaAwarded int    `json:"karma_awarded"`
}

// GenerateQRCode returns the handoff code for an accepted claim, creating it
// on first call. Only the item owner may generate it. Image rendering is best
// effort: on failure the code is still returned without an image URL.
func (s *Service) GenerateQRCode(ctx context.Context, claimID, actorID int64) (*model.QRCode, error) {
	var qr *model.QRCode
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		claim, err := store.GetClaim(ctx, tx, claimID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		if claim == nil {
			return apperr.NotFound("claim")
		}
		if claim.ItemOwnerID != actorID {
			return apperr.New(apperr.KindUnauthorized, "only the item owner can issue a handoff code")
		}
		if claim.Status != model.ClaimAccepted {
			return apperr.New(apperr.KindInvalidTransition, "handoff codes are only issued for accepted claims")
		}

		qr, err = store.CreateQRCode(ctx, tx, claimID, uuid.NewString())
		if err != nil {
			return apperr.Wrap(err, "creating qr code")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if qr.ImageURL == "" {
		s.render(ctx, qr)
	}
	return qr, nil
}

func (s *Service) render(ctx context.Context, qr *model.QRCode) {
	img, err := imaging.RenderQR(qr.Code, s.qrSize)
	if err != nil {
		slog.Error("rendering qr code", "claim", qr.ClaimID, "error", err)
		return
	}

	url, err := s.sink.Put(ctx, objstore.Key("qr", ".png"), img.Data, img.MIME)
	if err != nil {
		slog.Error("storing qr image", "claim", qr.ClaimID, "error", err)
		return
	}

	if err := store.SetQRImageURL(ctx, s.db, qr.ID, url); err != nil {
		slog.Error("saving qr image url", "claim", qr.ClaimID, "error", err)
		return
	}
	qr.ImageURL = url
}

// VerifyQRCode redeems a handoff code: the code is consumed, the item is
// returned, the claim completes and the claimer earns karma. A code can be
// redeemed once.
func (s *Service) VerifyQRCode(ctx context.Context, code string, actorID int64) (*Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation("QR code required")
	}

	var result *Result
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		qr, err := store.GetQRCodeByCode(ctx, tx, code)
		if err != nil {
			return apperr.Wrap(err, "loading qr code")
		}
		if qr == nil {
			return apperr.New(apperr.KindInvalidCode, "invalid QR code")
		}
		if qr.Scanned {
			return apperr.New(apperr.KindAlreadyScanned, "QR code already scanned")
		}

		claim, err := store.GetClaim(ctx, tx, qr.ClaimID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		if claim == nil {
			return apperr.NotFound("claim")
		}
		if claim.Status != model.ClaimAccepted {
			return apperr.New(apperr.KindInvalidTransition, "claim is not awaiting handoff")
		}

		now := time.Now()
		ok, err := store.MarkQRScanned(ctx, tx, qr.ID, now)
		if err != nil {
			return apperr.Wrap(err, "marking qr code scanned")
		}
		if !ok {
			return apperr.New(apperr.KindAlreadyScanned, "QR code already scanned")
		}

		result, err = s.complete(ctx, tx, claim, actorID, now, "Item returned - QR code scanned")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.karma.Invalidate()
	return result, nil
}

// MarkItemReturned lets the owner record a handoff without a QR scan. Any
// outstanding QR code for the claim is retired.
func (s *Service) MarkItemReturned(ctx context.Context, itemID, actorID int64) (*Result, error) {
	var result *Result
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return apperr.Wrap(err, "loading item")
		}
		if item == nil || item.DeletedAt != nil {
			return apperr.NotFound("item")
		}
		if item.OwnerID != actorID {
			return apperr.New(apperr.KindUnauthorized, "only the item owner can mark it returned")
		}

		claim, err := store.GetActiveClaim(ctx, tx, itemID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		switch {
		case claim == nil:
			return apperr.New(apperr.KindInvalidTransition, "item has no accepted claim")
		case claim.Status == model.ClaimCompleted:
			return apperr.New(apperr.KindAlreadyProcessed, "item already returned")
		case claim.Status != model.ClaimAccepted:
			return apperr.New(apperr.KindInvalidTransition, "item has no accepted claim")
		}

		now := time.Now()
		if err := store.RetireQRCode(ctx, tx, claim.ID, now); err != nil {
			return apperr.Wrap(err, "retiring qr code")
		}

		result, err = s.complete(ctx, tx, claim, actorID, now, "Item marked as returned by owner")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.karma.Invalidate()
	return result, nil
}

// complete moves an accepted claim to completed and its item to returned, then
// credits the claimer. The accepted -> completed update only succeeds once
// per claim, which keeps the award single.
func (s *Service) complete(ctx context.Context, tx store.DBTX, claim *model.Claim, actorID int64, now time.Time, note string) (*Result, error) {
	ok, err := store.TransitionClaim(ctx, tx, claim.ID, model.ClaimAccepted, model.ClaimCompleted, now)
	if err != nil {
		return nil, apperr.Wrap(err, "completing claim")
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadyProcessed, "claim already completed")
	}

	item, err := store.GetItem(ctx, tx, claim.ItemID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading item")
	}
	if item == nil || item.DeletedAt != nil {
		return nil, apperr.NotFound("item")
	}
	if !item.Status.CanTransitionTo(model.ItemReturned) {
		return nil, apperr.New(apperr.KindInvalidTransition, "item cannot be returned from status %s", item.Status)
	}
	ok, err = store.SetItemStatus(ctx, tx, item.ID, item.Status, model.ItemReturned)
	if err != nil {
		return nil, apperr.Wrap(err, "updating item")
	}
	if !ok {
		return nil, apperr.New(apperr.KindInvalidTransition, "item is no longer available")
	}

	if err := store.AddTimelineEntry(ctx, tx, item.ID, model.ItemReturned, &actorID, note); err != nil {
		return nil, apperr.Wrap(err, "recording timeline")
	}

	points := s.karma.Points()
	if err := s.karma.Award(ctx, tx, claim.ClaimerID, points); err != nil {
		return nil, err
	}

	return &Result{
		ItemID:       item.ID,
		ItemTitle:    item.Title,
		ClaimID:      claim.ID,
		ClaimerID:    claim.ClaimerID,
		KarmaAwarded: points,
	}, nil
}
