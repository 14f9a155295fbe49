package api

import (
	"net/http"

	"github.com/campuslf/lostfound/internal/dispute"
)

// DisputesHandler handles dispute and moderation endpoints.
type DisputesHandler struct {
	Disputes *dispute.Service
}

type createDisputeRequest struct {
	Reason string `json:"reason"`
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type reviewFlagRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

// Create handles POST /api/claims/{id}/disputes.
func (h *DisputesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claimID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req createDisputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Disputes.CreateDispute(r.Context(), claimID, GetClaims(r.Context()).UserID, req.Reason)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, d)
}

// List handles GET /api/disputes.
func (h *DisputesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Disputes.ListDisputes(r.Context(), r.URL.Query().Get("status"), GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Assign handles POST /api/disputes/{id}/assign. The caller takes the dispute.
func (h *DisputesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid dispute id")
		return
	}

	d, err := h.Disputes.AssignDispute(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Resolve handles POST /api/disputes/{id}/resolve.
func (h *DisputesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid dispute id")
		return
	}

	var req resolveDisputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Disputes.ResolveDispute(r.Context(), id, req.Resolution, req.Notes, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Close handles POST /api/disputes/{id}/close.
func (h *DisputesHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid dispute id")
		return
	}

	var req notesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.Disputes.CloseDispute(r.Context(), id, req.Notes, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, d)
}

// Flag handles POST /api/flags.
func (h *DisputesHandler) Flag(w http.ResponseWriter, r *http.Request) {
	var req dispute.FlagInput
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.FlaggedBy = GetClaims(r.Context()).UserID

	f, err := h.Disputes.FlagContent(r.Context(), req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, f)
}

// ListFlags handles GET /api/flags.
func (h *DisputesHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	list, err := h.Disputes.ListFlags(r.Context(), r.URL.Query().Get("status"), GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Review handles POST /api/flags/{id}/review.
func (h *DisputesHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid flag id")
		return
	}

	var req reviewFlagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := h.Disputes.ReviewFlag(r.Context(), id, req.Action, req.Notes, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, f)
}
