package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/internal/domain/suspension"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
)

// PeriodPersister stores accepted suspension periods durably.  Nil disables
// persistence (in-memory deployments, tests).
type PeriodPersister interface {
	Save(ctx context.Context, p suspension.Period) error
}

// SuspensionHandler serves the suspension registry endpoints.
type SuspensionHandler struct {
	registry  *suspension.Registry
	persister PeriodPersister
	log       logging.Logger
}

// NewSuspensionHandler constructs the handler.
func NewSuspensionHandler(registry *suspension.Registry, persister PeriodPersister, log logging.Logger) *SuspensionHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SuspensionHandler{
		registry:  registry,
		persister: persister,
		log:       log.Named("http.suspensions"),
	}
}

// Add handles POST /api/v1/suspensions.  The period takes effect for every
// computation from the moment it is registered; already-computed deadlines
// are only revised through recompute.
func (h *SuspensionHandler) Add(c *gin.Context) {
	var period suspension.Period
	if err := c.ShouldBindJSON(&period); err != nil {
		respondBindError(c, err)
		return
	}

	accepted, err := h.registry.Add(period)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.persister != nil {
		if err := h.persister.Save(c.Request.Context(), accepted); err != nil {
			respondError(c, err)
			return
		}
	}
	h.log.Info("registered suspension period",
		logging.String("id", string(accepted.ID)),
		logging.String("scope", string(accepted.Scope)),
		logging.String("start", accepted.Start.String()),
		logging.String("end", accepted.End.String()))

	c.JSON(http.StatusCreated, accepted)
}

// List handles GET /api/v1/suspensions.
func (h *SuspensionHandler) List(c *gin.Context) {
	periods := h.registry.List()
	c.JSON(http.StatusOK, gin.H{"suspensions": periods, "count": len(periods)})
}
