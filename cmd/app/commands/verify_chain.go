package commands

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/allisson/auditchain/internal/audit/domain"
	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
)

// RunVerifyChain verifies the hash chain over a block range and reports integrity.
// trustedPriorHashHex anchors ranges starting past block 0; leave empty to check
// internal consistency only. Returns an error when the chain is broken so the
// process exit code reflects the verification outcome.
func RunVerifyChain(
	ctx context.Context,
	verifier auditUsecase.VerifierUseCase,
	logger *slog.Logger,
	writer io.Writer,
	chainID string,
	fromBlock, toBlock int64,
	trustedPriorHashHex string,
	format string,
) error {
	var trustedPriorHash []byte
	if trustedPriorHashHex != "" {
		decoded, err := hex.DecodeString(trustedPriorHashHex)
		if err != nil {
			return fmt.Errorf("invalid trusted prior hash: expected hex: %w", err)
		}
		trustedPriorHash = decoded
	}

	logger.Info("verifying chain",
		slog.String("chain_id", chainID),
		slog.Int64("from_block", fromBlock),
		slog.Int64("to_block", toBlock),
	)

	report, err := verifier.Verify(ctx, chainID, fromBlock, toBlock, trustedPriorHash)
	if err != nil {
		return fmt.Errorf("failed to verify chain: %w", err)
	}

	if format == "json" {
		if err := outputReportJSON(writer, report); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputReportText(writer, report)
	}

	logger.Info("verification completed",
		slog.Bool("valid", report.Valid),
		slog.Int64("blocks_checked", report.BlocksChecked),
	)

	if !report.Valid {
		return fmt.Errorf("integrity check failed: %d broken block(s)", len(report.BrokenBlocks))
	}

	return nil
}

// outputReportText outputs the verification report in human-readable text format.
func outputReportText(writer io.Writer, report *auditDomain.VerificationReport) {
	_, _ = fmt.Fprintf(writer, "Chain Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "============================\n\n")
	_, _ = fmt.Fprintf(writer, "Chain ID:       %s\n", report.ChainID)
	_, _ = fmt.Fprintf(writer, "Block Range:    %d to %d\n\n", report.FromBlock, report.ToBlock)

	_, _ = fmt.Fprintf(writer, "Blocks Checked: %d\n", report.BlocksChecked)
	_, _ = fmt.Fprintf(writer, "Expected Gaps:  %d\n", len(report.ExpectedGaps))
	_, _ = fmt.Fprintf(writer, "Trusted Prior:  %t\n\n", report.LinkedToTrustedPrior)

	switch {
	case len(report.BrokenBlocks) > 0:
		_, _ = fmt.Fprintf(writer, "WARNING: %d block(s) failed integrity check!\n\n", len(report.BrokenBlocks))
		_, _ = fmt.Fprintf(writer, "Broken Blocks:\n")
		for _, block := range report.BrokenBlocks {
			_, _ = fmt.Fprintf(writer, "  - %d\n", block)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
	case report.BlocksChecked == 0:
		_, _ = fmt.Fprintf(writer, "Status: No blocks found in specified range\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}

// outputReportJSON outputs the verification report in JSON format for machine consumption.
func outputReportJSON(writer io.Writer, report *auditDomain.VerificationReport) error {
	result := map[string]interface{}{
		"chain_id":                report.ChainID,
		"from_block":              report.FromBlock,
		"to_block":                report.ToBlock,
		"valid":                   report.Valid,
		"broken_blocks":           report.BrokenBlocks,
		"linked_to_trusted_prior": report.LinkedToTrustedPrior,
		"expected_gaps":           len(report.ExpectedGaps),
		"blocks_checked":          report.BlocksChecked,
	}
	if report.FirstBrokenBlock != nil {
		result["first_broken_block"] = *report.FirstBrokenBlock
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
