package api

import (
	"net/http"

	"github.com/campuslf/lostfound/internal/claims"
	"github.com/campuslf/lostfound/internal/verify"
)

// ClaimsHandler handles claim and QR handoff endpoints.
type ClaimsHandler struct {
	Claims *claims.Workflow
	Verify *verify.Service
}

type createClaimRequest struct {
	Message string `json:"message"`
}

type verifyQRRequest struct {
	Code string `json:"code"`
}

// Create handles POST /api/items/{id}/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req createClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.Claims.CreateClaim(r.Context(), itemID, GetClaims(r.Context()).UserID, req.Message)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, receipt)
}

// Mine handles GET /api/claims/mine.
func (h *ClaimsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Claims.ListMyClaims(r.Context(), GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Get handles GET /api/claims/{id}.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	user := GetClaims(r.Context())
	claim, err := h.Claims.GetClaim(r.Context(), id, user.UserID, isStaff(user))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}

// Accept handles POST /api/claims/{id}/accept.
func (h *ClaimsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	claim, err := h.Claims.AcceptClaim(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}

// Reject handles POST /api/claims/{id}/reject.
func (h *ClaimsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	claim, err := h.Claims.RejectClaim(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}

// GenerateQR handles POST /api/claims/{id}/qr.
func (h *ClaimsHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	qr, err := h.Verify.GenerateQRCode(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, qr)
}

// VerifyQR handles POST /api/qr/verify.
func (h *ClaimsHandler) VerifyQR(w http.ResponseWriter, r *http.Request) {
	var req verifyQRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Verify.VerifyQRCode(r.Context(), req.Code, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}
