package handlers

import (
	"net/http"

	"solar-quote/internal/api/models"
	"solar-quote/internal/refdata"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles reference-data operations
type AdminHandler struct {
	store *refdata.Store
}

func NewAdminHandler(store *refdata.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// Reseed handles POST /admin/reseed. On failure the previous snapshot stays
// in service.
func (h *AdminHandler) Reseed(c *gin.Context) {
	snap, err := h.store.Reseed(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ReseedResponse{Version: snap.Version, LoadedAt: snap.LoadedAt, Counts: snap.Counts()})
}

// Health handles GET /health. It reports 503 until reference data is loaded.
func (h *AdminHandler) Health(c *gin.Context) {
	snap := h.store.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot": snap.Version, "loadedAt": snap.LoadedAt})
}
