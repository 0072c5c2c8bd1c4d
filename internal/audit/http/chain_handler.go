// Package http provides HTTP handlers for the audit chain API: appending events,
// reading chain state, verifying ranges, and streaming compliance exports.
package http

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/auditchain/internal/audit/http/dto"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
	"github.com/allisson/auditchain/internal/httputil"
	customValidation "github.com/allisson/auditchain/internal/validation"
)

// ChainHandler handles HTTP requests for audit chain operations.
type ChainHandler struct {
	appender auditUsecase.AppenderUseCase
	verifier auditUsecase.VerifierUseCase
	exporter auditUsecase.ExporterUseCase
	logger   *slog.Logger
}

// NewChainHandler creates a new chain handler with required dependencies.
func NewChainHandler(
	appender auditUsecase.AppenderUseCase,
	verifier auditUsecase.VerifierUseCase,
	exporter auditUsecase.ExporterUseCase,
	logger *slog.Logger,
) *ChainHandler {
	return &ChainHandler{
		appender: appender,
		verifier: verifier,
		exporter: exporter,
		logger:   logger,
	}
}

// chainID extracts and validates the chain_id URL parameter.
func (h *ChainHandler) chainID(c *gin.Context) (string, bool) {
	chainID := c.Param("chain_id")
	if err := customValidation.ChainID.Validate(chainID); err != nil || chainID == "" {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid chain_id parameter"),
			h.logger,
		)
		return "", false
	}
	return chainID, true
}

// RecordHandler appends one audit event to a chain.
// POST /v1/chains/:chain_id/events
// Returns 201 Created with the assigned block number and hashes.
func (h *ChainHandler) RecordHandler(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}

	var req dto.RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	event, err := h.appender.Record(c.Request.Context(), chainID, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapEventToResponse(event))
}

// ListHandler retrieves events for a chain, newest first.
// GET /v1/chains/:chain_id/events?offset=0&limit=50
func (h *ChainHandler) ListHandler(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	events, err := h.appender.List(c.Request.Context(), chainID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEventsToListResponse(events))
}

// StateHandler returns the current tail of a chain.
// GET /v1/chains/:chain_id/state
func (h *ChainHandler) StateHandler(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}

	state, err := h.appender.State(c.Request.Context(), chainID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapChainStateToResponse(state))
}

// VerifyHandler recomputes hashes over a block range and reports integrity.
// GET /v1/chains/:chain_id/verify?from_block=0&to_block=N&trusted_prior_hash=hex
// Returns 200 OK with the report whether or not the range is valid; broken
// chains are a report outcome, not a transport error.
func (h *ChainHandler) VerifyHandler(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}

	fromBlock, toBlock, err := httputil.ParseBlockRange(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var trustedPriorHash []byte
	if raw := c.Query("trusted_prior_hash"); raw != "" {
		if err := customValidation.HexHash.Validate(raw); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
		trustedPriorHash, _ = hex.DecodeString(raw)
	}

	report, err := h.verifier.Verify(c.Request.Context(), chainID, fromBlock, toBlock, trustedPriorHash)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReportToResponse(report))
}

// ExportHandler verifies a range and, only if it is intact, streams it in the
// requested format. The verification report travels in the X-Verification-Valid
// header; a range that fails verification returns 409 and no data.
// GET /v1/chains/:chain_id/export?from_block=0&to_block=N&format=json
func (h *ChainHandler) ExportHandler(c *gin.Context) {
	chainID, ok := h.chainID(c)
	if !ok {
		return
	}

	fromBlock, toBlock, err := httputil.ParseBlockRange(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	format := c.DefaultQuery("format", auditUsecase.ExportFormatJSON)

	contentType := "application/x-ndjson"
	extension := "jsonl"
	if format == auditUsecase.ExportFormatCSV {
		contentType = "text/csv"
		extension = "csv"
	}

	// The exporter verifies before writing a single byte, so a failed export can
	// still produce a clean JSON error response.
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=%s-%d-%d.%s", chainID, fromBlock, toBlock, extension))

	if _, err := h.exporter.Export(
		c.Request.Context(), chainID, fromBlock, toBlock, format, c.Writer,
	); err != nil {
		if !c.Writer.Written() {
			c.Header("Content-Type", "application/json")
			c.Header("Content-Disposition", "")
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		// The stream already started; all we can do is log and cut it short.
		if h.logger != nil {
			h.logger.Error("export stream aborted",
				slog.String("chain_id", chainID),
				slog.Any("error", err),
			)
		}
		c.Abort()
		return
	}

	c.Status(http.StatusOK)
}
