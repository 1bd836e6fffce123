package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/internal/domain/deadline"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/prometheus"
	"github.com/jurisflow/prazo/pkg/errors"
	"github.com/jurisflow/prazo/pkg/types/common"
)

// DeadlineHandler serves the computation endpoints.  Every successful
// computation is persisted before it is returned, so the audit trail of a
// deadline the client has seen can always be re-fetched.
type DeadlineHandler struct {
	calc    *deadline.Calculator
	store   deadline.Store
	metrics *prometheus.Metrics
	log     logging.Logger
}

// NewDeadlineHandler constructs the handler.  metrics may be nil in tests.
func NewDeadlineHandler(calc *deadline.Calculator, store deadline.Store, metrics *prometheus.Metrics, log logging.Logger) *DeadlineHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DeadlineHandler{
		calc:    calc,
		store:   store,
		metrics: metrics,
		log:     log.Named("http.deadlines"),
	}
}

// Compute handles POST /api/v1/deadlines/compute.
func (h *DeadlineHandler) Compute(c *gin.Context) {
	var event deadline.TriggerEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		respondBindError(c, err)
		return
	}

	start := time.Now()
	result, err := h.calc.Compute(event)
	if h.metrics != nil {
		h.metrics.ObserveComputation(start, err, result.BestEffort)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.Save(result); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Get handles GET /api/v1/deadlines/:id.
func (h *DeadlineHandler) Get(c *gin.Context) {
	id := common.ID(c.Param("id"))
	result, err := h.store.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listResponse is the audit-export envelope: the full records including
// their audit trails, plus a count for quick sanity checks.
type listResponse struct {
	Deadlines []deadline.ComputedDeadline `json:"deadlines"`
	Count     int                         `json:"count"`
}

// List handles GET /api/v1/deadlines.  It is the audit-export endpoint:
// records are returned in due-date order with their full trails.
func (h *DeadlineHandler) List(c *gin.Context) {
	all, err := h.store.List()
	if err != nil {
		respondError(c, err)
		return
	}

	if due := c.Query("due_before"); due != "" {
		cutoff, err := common.ParseDate(due)
		if err != nil {
			respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid due_before date"))
			return
		}
		filtered := all[:0]
		for _, d := range all {
			if !d.DueDate.After(cutoff) {
				filtered = append(filtered, d)
			}
		}
		all = filtered
	}

	c.JSON(http.StatusOK, listResponse{Deadlines: all, Count: len(all)})
}
