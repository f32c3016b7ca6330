package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/noah-isme/backend-showroom/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Snapshot handles GET /api/v1/catalog.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	snap, err := h.service.Current(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Catalog-Generation", strconv.FormatInt(snap.Generation, 10))
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// Refresh handles POST /api/v1/catalog/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"generation": snap.Generation,
			"fetchedAt":  snap.FetchedAt,
		},
	})
}

// RegistrationServices handles GET /api/v1/catalog/registration-services?q=.
func (h *Handler) RegistrationServices(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	snap, err := h.service.Current(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": SearchRegistrationServices(snap, r.URL.Query().Get("q"))})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		common.WriteAppError(w, appErr)
		return
	}
	if errors.Is(err, ErrNotLoaded) {
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeCatalogUnavailable, "catalog is not loaded yet", nil)
		return
	}
	common.JSONError(w, http.StatusBadGateway, common.CodeCatalogRefreshFailed, "catalog refresh failed", nil)
}
