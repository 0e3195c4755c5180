package analytics

import (
	"errors"
	"net/http"

	"github.com/noah-isme/cafe-cart/internal/cafeapi"
	"github.com/noah-isme/cafe-cart/internal/common"
)

// Handler exposes statistics read endpoints.
type Handler struct {
	Svc *Service
}

// Stats handles GET /api/v1/stats?by=&limit=.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	token, ok := h.ready(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	by := q.Get("by")
	if by == "" {
		by = "individual"
	}
	agg, err := h.Svc.Stats(r.Context(), by, common.QueryInt(r, "limit", 0), token)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": agg})
}

// Export handles GET /api/v1/stats/export?type=&by=&limit=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	token, ok := h.ready(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	by := q.Get("by")
	if by == "" {
		by = "individual"
	}
	dl, err := h.Svc.ExportToken(r.Context(), q.Get("type"), by, common.QueryInt(r, "limit", 0), token)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": dl}})
}

// Personal handles GET /api/v1/me/statistics.
func (h *Handler) Personal(w http.ResponseWriter, r *http.Request) {
	token, ok := h.ready(w, r)
	if !ok {
		return
	}
	stats, err := h.Svc.Personal(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return "", false
	}
	token, ok := common.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return token, true
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidGrouping) || errors.Is(err, ErrInvalidExport) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.WriteError(w, cafeapi.ToAppError(err))
}
