// Package notify owns claim notifications, the contact-disclosure gate and
// best-effort email delivery.
package notify

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// MaxMessageLength bounds free-text messages sent to item owners.
const MaxMessageLength = 2000

// Service reads notifications and discloses contact details on request.
type Service struct {
	db   *sql.DB
	mail *Dispatcher
}

// NewService creates a notification service. mail may be nil.
func NewService(db *sql.DB, mail *Dispatcher) *Service {
	return &Service{db: db, mail: mail}
}

// RevealContact returns the claimer's contact details to the recipient of a
// notification on the claim and marks the claim's contact as revealed.
// Repeated reveals succeed without further changes.
func (s *Service) RevealContact(ctx context.Context, notificationID, viewerID int64) (*model.Contact, error) {
	var contact *model.Contact
	err := store.WithTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		n, err := s.recipientNotification(ctx, tx, notificationID, viewerID)
		if err != nil {
			return err
		}

		claim, err := store.GetClaim(ctx, tx, n.ClaimID)
		if err != nil {
			return apperr.Wrap(err, "loading claim")
		}
		if claim == nil {
			return apperr.NotFound("claim")
		}

		contact, err = userContact(ctx, tx, claim.ClaimerID)
		if err != nil {
			return err
		}

		if !claim.ContactRevealed {
			if err := store.SetContactRevealed(ctx, tx, claim.ID); err != nil {
				return apperr.Wrap(err, "revealing contact")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// OwnerContact returns the item owner's contact details to the claimer once
// the owner has accepted the claim.
func (s *Service) OwnerContact(ctx context.Context, claimID, viewerID int64) (*model.Contact, error) {
	claim, err := store.GetClaim(ctx, s.db, claimID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading claim")
	}
	if claim == nil {
		return nil, apperr.NotFound("claim")
	}
	if claim.ClaimerID != viewerID {
		return nil, apperr.New(apperr.KindUnauthorized, "only the claimer can see the owner's contact")
	}
	if claim.Status != model.ClaimAccepted && claim.Status != model.ClaimCompleted {
		return nil, apperr.New(apperr.KindInvalidTransition, "owner contact is only available once the claim is accepted")
	}
	return userContact(ctx, s.db, claim.ItemOwnerID)
}

func userContact(ctx context.Context, q store.DBTX, userID int64) (*model.Contact, error) {
	u, err := store.GetUser(ctx, q, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading contact")
	}
	if u == nil {
		return nil, apperr.NotFound("user")
	}
	return &model.Contact{
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
	}, nil
}

// MarkRead marks a notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, notificationID, viewerID int64) error {
	if _, err := s.recipientNotification(ctx, s.db, notificationID, viewerID); err != nil {
		return err
	}
	if err := store.MarkNotificationRead(ctx, s.db, notificationID); err != nil {
		return apperr.Wrap(err, "marking notification read")
	}
	return nil
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	notifications, err := store.ListNotifications(ctx, s.db, userID, unreadOnly)
	if err != nil {
		return nil, apperr.Wrap(err, "listing notifications")
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return notifications, nil
}

// UnreadCount returns how many unread notifications a user has.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := store.CountUnread(ctx, s.db, userID)
	if err != nil {
		return 0, apperr.Wrap(err, "counting notifications")
	}
	return n, nil
}

// NotifyOwner emails the owner of a lost item on behalf of someone who found
// it. No notification row is written since there is no claim.
func (s *Service) NotifyOwner(ctx context.Context, itemID, senderID int64, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return apperr.Validation("message is required")
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return apperr.Validation("message must be at most %d characters", MaxMessageLength)
	}

	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil {
		return apperr.Wrap(err, "loading item")
	}
	if item == nil || item.DeletedAt != nil {
		return apperr.NotFound("item")
	}
	if item.ItemType != model.ItemTypeLost {
		return apperr.New(apperr.KindInvalidTransition, "only owners of lost items can be notified")
	}
	if item.OwnerID == senderID {
		return apperr.Validation("you cannot notify yourself")
	}

	owner, err := store.GetUser(ctx, s.db, item.OwnerID)
	if err != nil {
		return apperr.Wrap(err, "loading owner")
	}
	sender, err := store.GetUser(ctx, s.db, senderID)
	if err != nil {
		return apperr.Wrap(err, "loading sender")
	}
	if owner == nil || sender == nil {
		return apperr.NotFound("user")
	}

	s.mail.Dispatch(FoundItemMail(owner, sender, item.Title, message))
	return nil
}

func (s *Service) recipientNotification(ctx context.Context, q store.DBTX, notificationID, viewerID int64) (*model.Notification, error) {
	n, err := store.GetNotification(ctx, q, notificationID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading notification")
	}
	if n == nil {
		return nil, apperr.NotFound("notification")
	}
	if n.RecipientID != viewerID {
		return nil, apperr.New(apperr.KindUnauthorized, "notification belongs to another user")
	}
	return n, nil
}
