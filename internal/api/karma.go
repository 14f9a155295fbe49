package api

import (
	"net/http"
	"strconv"

	"github.com/campuslf/lostfound/internal/karma"
)

// KarmaHandler handles karma endpoints.
type KarmaHandler struct {
	Karma *karma.Ledger
}

// Leaderboard handles GET /api/karma/leaderboard.
func (h *KarmaHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	leaders, err := h.Karma.Leaderboard(r.Context(), limit)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	stats, err := h.Karma.Stats(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"leaders": leaders,
		"stats":   stats,
	})
}

// Me handles GET /api/karma/me.
func (h *KarmaHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := GetClaims(r.Context()).UserID
	profile, err := h.Karma.Profile(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	rank, err := h.Karma.Rank(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"profile": profile,
		"rank":    rank,
	})
}
