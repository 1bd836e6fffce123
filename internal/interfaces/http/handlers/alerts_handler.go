package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/internal/domain/notify"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// Acknowledger is the slice of the scheduler the HTTP layer needs.
type Acknowledger interface {
	Ack(id common.ID) error
	State(id common.ID) notify.AlertState
}

// AlertsHandler serves the alert acknowledgement endpoint.
type AlertsHandler struct {
	scheduler Acknowledger
	log       logging.Logger
}

// NewAlertsHandler constructs the handler.
func NewAlertsHandler(scheduler Acknowledger, log logging.Logger) *AlertsHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AlertsHandler{
		scheduler: scheduler,
		log:       log.Named("http.alerts"),
	}
}

// Ack handles POST /api/v1/alerts/:deadlineID/ack.  Acknowledging is
// idempotent; acknowledging an expired or never-alerted deadline is a
// conflict.
func (h *AlertsHandler) Ack(c *gin.Context) {
	id := common.ID(c.Param("deadlineID"))
	if err := h.scheduler.Ack(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deadline_id": id,
		"state":       h.scheduler.State(id),
	})
}

// State handles GET /api/v1/alerts/:deadlineID.
func (h *AlertsHandler) State(c *gin.Context) {
	id := common.ID(c.Param("deadlineID"))
	c.JSON(http.StatusOK, gin.H{
		"deadline_id": id,
		"state":       h.scheduler.State(id),
	})
}
