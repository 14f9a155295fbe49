package api

import (
	"net/http"
	"strconv"

	"github.com/campuslf/lostfound/internal/catalog"
	"github.com/campuslf/lostfound/internal/claims"
	"github.com/campuslf/lostfound/internal/imaging"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/notify"
	"github.com/campuslf/lostfound/internal/verify"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Catalog *catalog.Service
	Claims  *claims.Workflow
	Notify  *notify.Service
	Verify  *verify.Service
}

type notifyOwnerRequest struct {
	Message string `json:"message"`
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.ItemInput
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Catalog.ReportItem(r.Context(), GetClaims(r.Context()).UserID, req)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, item)
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Text:     q.Get("q"),
		Status:   model.ItemStatus(q.Get("status")),
		ItemType: q.Get("type"),
		Category: q.Get("category"),
	}
	if q.Get("mine") == "1" {
		query.OwnerID = GetClaims(r.Context()).UserID
	}

	items, err := h.Catalog.Search(r.Context(), query)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Nearby handles GET /api/items/nearby.
func (h *ItemsHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		jsonError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := float64(catalog.DefaultRadiusKm)
	if v := q.Get("radius"); v != "" {
		var err error
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid radius")
			return
		}
	}

	items, radius, err := h.Catalog.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"items":     items,
		"radius_km": radius,
	})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Catalog.GetItem(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Catalog.DeleteItem(r.Context(), id, GetClaims(r.Context()).UserID); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Timeline handles GET /api/items/{id}/timeline.
func (h *ItemsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	entries, err := h.Catalog.Timeline(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entries)
}

// ListClaims handles GET /api/items/{id}/claims.
func (h *ItemsHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	user := GetClaims(r.Context())
	list, err := h.Claims.ListClaimsForItem(r.Context(), id, user.UserID, isStaff(user))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	if err := h.Catalog.SetImage(r.Context(), id, GetClaims(r.Context()).UserID, file); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := h.Catalog.Image(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// MarkReturned handles POST /api/items/{id}/returned.
func (h *ItemsHandler) MarkReturned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	result, err := h.Verify.MarkItemReturned(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// NotifyOwner handles POST /api/items/{id}/notify-owner.
func (h *ItemsHandler) NotifyOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req notifyOwnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Notify.NotifyOwner(r.Context(), id, GetClaims(r.Context()).UserID, req.Message); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusAccepted, map[string]string{"message": "owner notified"})
}
