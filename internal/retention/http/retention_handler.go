// Package http provides HTTP handlers for retention administration: policies,
// legal holds, and purge runs. Every mutation requires an X-Actor-Id header and
// is recorded on the system audit chain before it takes effect.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	"github.com/allisson/auditchain/internal/httputil"
	"github.com/allisson/auditchain/internal/retention/http/dto"
	retentionUsecase "github.com/allisson/auditchain/internal/retention/usecase"
	customValidation "github.com/allisson/auditchain/internal/validation"
)

// RetentionHandler handles HTTP requests for retention administration.
type RetentionHandler struct {
	policyUseCase retentionUsecase.PolicyUseCase
	coordinator   retentionUsecase.CoordinatorUseCase
	logger        *slog.Logger
}

// NewRetentionHandler creates a new retention handler with required dependencies.
func NewRetentionHandler(
	policyUseCase retentionUsecase.PolicyUseCase,
	coordinator retentionUsecase.CoordinatorUseCase,
	logger *slog.Logger,
) *RetentionHandler {
	return &RetentionHandler{
		policyUseCase: policyUseCase,
		coordinator:   coordinator,
		logger:        logger,
	}
}

// actorID extracts the X-Actor-Id header that attributes the mutation on the
// system chain. Authentication itself is the deployment's concern; attribution
// is not optional.
func (h *RetentionHandler) actorID(c *gin.Context) (string, bool) {
	actorID := c.GetHeader("X-Actor-Id")
	if err := customValidation.NotBlank.Validate(actorID); actorID == "" || err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("missing X-Actor-Id header"),
			h.logger,
		)
		return "", false
	}
	return actorID, true
}

// SetPolicyHandler creates or replaces the retention policy for an event type.
// PUT /v1/retention-policies/:event_type
func (h *RetentionHandler) SetPolicyHandler(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	var req dto.SetPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	policy, err := h.policyUseCase.SetPolicy(c.Request.Context(), actorID, retentionUsecase.SetPolicyInput{
		EventType:    auditDomain.EventType(c.Param("event_type")),
		MinRetention: time.Duration(req.MinRetentionSeconds) * time.Second,
		LegalHold:    req.LegalHold,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// GetPolicyHandler retrieves the retention policy for an event type.
// GET /v1/retention-policies/:event_type
func (h *RetentionHandler) GetPolicyHandler(c *gin.Context) {
	policy, err := h.policyUseCase.GetPolicy(
		c.Request.Context(), auditDomain.EventType(c.Param("event_type")))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// ListPoliciesHandler retrieves all retention policies.
// GET /v1/retention-policies
func (h *RetentionHandler) ListPoliciesHandler(c *gin.Context) {
	policies, err := h.policyUseCase.ListPolicies(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPoliciesToListResponse(policies))
}

// SetLegalHoldHandler places or refreshes a hold on one resource.
// PUT /v1/legal-holds/:resource_id
func (h *RetentionHandler) SetLegalHoldHandler(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	var req dto.SetLegalHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	hold, err := h.policyUseCase.SetLegalHold(
		c.Request.Context(), actorID, c.Param("resource_id"), req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapHoldToResponse(hold))
}

// ReleaseLegalHoldHandler lifts the hold on one resource.
// DELETE /v1/legal-holds/:resource_id
func (h *RetentionHandler) ReleaseLegalHoldHandler(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.policyUseCase.ReleaseLegalHold(
		c.Request.Context(), actorID, c.Param("resource_id")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RunPurgeHandler triggers one purge pass, or a dry run that only evaluates scope.
// POST /v1/purge-runs
func (h *RetentionHandler) RunPurgeHandler(c *gin.Context) {
	if _, ok := h.actorID(c); !ok {
		return
	}

	var req dto.RunPurgeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	result, err := h.coordinator.RunOnce(c.Request.Context(), req.DryRun)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	status := http.StatusCreated
	if req.DryRun {
		status = http.StatusOK
	}
	c.JSON(status, dto.MapResultToResponse(result))
}

// GetRunHandler retrieves one purge run.
// GET /v1/purge-runs/:id
func (h *RetentionHandler) GetRunHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid purge run id"), h.logger)
		return
	}

	run, err := h.coordinator.GetRun(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRunToResponse(run))
}

// ListRunsHandler retrieves purge runs newest-first.
// GET /v1/purge-runs?offset=0&limit=50
func (h *RetentionHandler) ListRunsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	runs, err := h.coordinator.ListRuns(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRunsToListResponse(runs))
}

// ApproveRunHandler releases a run parked in awaiting_approval.
// POST /v1/purge-runs/:id/approve
func (h *RetentionHandler) ApproveRunHandler(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid purge run id"), h.logger)
		return
	}

	run, err := h.coordinator.Approve(c.Request.Context(), actorID, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRunToResponse(run))
}

// SuspendRunHandler emergency-stops a run.
// POST /v1/purge-runs/:id/suspend
func (h *RetentionHandler) SuspendRunHandler(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid purge run id"), h.logger)
		return
	}

	run, err := h.coordinator.Suspend(c.Request.Context(), actorID, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRunToResponse(run))
}
