package api

import (
	"net/http"

	"github.com/campuslf/lostfound/internal/notify"
)

// NotificationsHandler handles notification endpoints.
type NotificationsHandler struct {
	Notify *notify.Service
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetClaims(r.Context()).UserID
	list, err := h.Notify.List(r.Context(), userID, r.URL.Query().Get("unread") == "1")
	if err != nil {
		serviceError(w, r, err)
		return
	}
	unread, err := h.Notify.UnreadCount(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"notifications": list,
		"unread":        unread,
	})
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.Notify.MarkRead(r.Context(), id, GetClaims(r.Context()).UserID); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "marked as read"})
}

// Reveal handles POST /api/notifications/{id}/reveal.
func (h *NotificationsHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	contact, err := h.Notify.RevealContact(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, contact)
}

// OwnerContact handles GET /api/claims/{id}/owner-contact.
func (h *NotificationsHandler) OwnerContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	contact, err := h.Notify.OwnerContact(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, contact)
}
