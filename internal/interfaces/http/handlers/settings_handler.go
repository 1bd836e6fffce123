package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/internal/domain/settings"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// SettingsHandler serves the engine configuration endpoints.
type SettingsHandler struct {
	store settings.Store
	log   logging.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(store settings.Store, log logging.Logger) *SettingsHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SettingsHandler{
		store: store,
		log:   log.Named("http.settings"),
	}
}

// Get handles GET /api/v1/settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.store.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// updateResponse carries the applied configuration plus an advisory when the
// caller's expected version was stale.  The update is never rejected for
// staleness: last writer wins, and history keeps both versions.
type updateResponse struct {
	settings.ConfigurationSet
	Conflict string `json:"conflict,omitempty"`
}

// Update handles PUT /api/v1/settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBindError(c, err)
		return
	}

	cfg, err := h.store.Update(patch)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeConfigurationConflict) {
			respondError(c, err)
			return
		}
		h.log.Warn("configuration update raced a concurrent writer",
			logging.Int64("expected_version", patch.ExpectedVersion),
			logging.Int64("applied_version", cfg.Version))
		c.JSON(http.StatusOK, updateResponse{ConfigurationSet: cfg, Conflict: err.Error()})
		return
	}
	c.JSON(http.StatusOK, updateResponse{ConfigurationSet: cfg})
}

// History handles GET /api/v1/settings/history: superseded configurations,
// newest first, for the audit export.
func (h *SettingsHandler) History(c *gin.Context) {
	history, err := h.store.History()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}
