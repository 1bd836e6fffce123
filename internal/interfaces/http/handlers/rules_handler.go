package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jurisflow/prazo/internal/domain/rules"
	"github.com/jurisflow/prazo/internal/infrastructure/messaging/kafka"
	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
)

// RecomputeNotifier requests a batch recompute after a publish.  The worker
// consumes these requests and re-derives open deadlines against the new
// version.
type RecomputeNotifier interface {
	Request(ctx context.Context, req kafka.RecomputeRequest) error
}

// RulesHandler serves the rule-set version endpoints.
type RulesHandler struct {
	repo     rules.Repository
	notifier RecomputeNotifier
	log      logging.Logger
}

// NewRulesHandler constructs the handler.  notifier may be nil when the
// deployment has no recompute worker.
func NewRulesHandler(repo rules.Repository, notifier RecomputeNotifier, log logging.Logger) *RulesHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RulesHandler{
		repo:     repo,
		notifier: notifier,
		log:      log.Named("http.rules"),
	}
}

// versionsResponse lists published versions and the active pointer.
type versionsResponse struct {
	Versions []int `json:"versions"`
	Active   int   `json:"active"`
}

// ListVersions handles GET /api/v1/rules/versions.
func (h *RulesHandler) ListVersions(c *gin.Context) {
	c.JSON(http.StatusOK, versionsResponse{
		Versions: h.repo.ListVersions(),
		Active:   h.repo.ActiveVersion(),
	})
}

// GetActive handles GET /api/v1/rules/active, returning the active rule-set
// document.
func (h *RulesHandler) GetActive(c *gin.Context) {
	rs, err := h.repo.RuleSet(0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules.ToDocument(rs))
}

// publishRequest is a draft plus the operator identity recorded with the
// recompute request.
type publishRequest struct {
	rules.Draft
	PublishedBy string `json:"published_by,omitempty"`
}

// Publish handles POST /api/v1/rules/publish.  The draft becomes the next
// immutable version; existing deadlines keep their pinned versions until the
// recompute worker supersedes them.
func (h *RulesHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rs, err := h.repo.Publish(req.Draft)
	if err != nil {
		respondError(c, err)
		return
	}
	h.log.Info("published rule-set version",
		logging.Int("version", rs.Version),
		logging.String("published_by", req.PublishedBy))

	if h.notifier != nil {
		err := h.notifier.Request(c.Request.Context(), kafka.RecomputeRequest{
			RuleVersion: rs.Version,
			RequestedBy: req.PublishedBy,
		})
		if err != nil {
			// The version is live; only the recompute request was lost.
			// Operators can re-trigger it from the CLI.
			h.log.Error("failed to request recompute after publish",
				logging.Int("version", rs.Version), logging.Err(err))
		}
	}

	c.JSON(http.StatusCreated, rules.ToDocument(rs))
}
