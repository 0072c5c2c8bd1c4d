package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	auditUsecase "github.com/allisson/auditchain/internal/audit/usecase"
)

// RunExportChain verifies a block range and, only if it is intact, streams it to
// the output path in the requested format. "-" writes to stdout.
func RunExportChain(
	ctx context.Context,
	exporter auditUsecase.ExporterUseCase,
	logger *slog.Logger,
	chainID string,
	fromBlock, toBlock int64,
	format, outputPath string,
) error {
	if format != auditUsecase.ExportFormatJSON && format != auditUsecase.ExportFormatCSV {
		return fmt.Errorf("invalid format: %s (valid options: json, csv)", format)
	}

	var w io.Writer = os.Stdout
	if outputPath != "" && outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	logger.Info("exporting chain",
		slog.String("chain_id", chainID),
		slog.Int64("from_block", fromBlock),
		slog.Int64("to_block", toBlock),
		slog.String("format", format),
	)

	report, err := exporter.Export(ctx, chainID, fromBlock, toBlock, format, w)
	if err != nil {
		return fmt.Errorf("failed to export chain: %w", err)
	}

	logger.Info("export completed",
		slog.Int64("blocks_checked", report.BlocksChecked),
		slog.Bool("valid", report.Valid),
	)

	return nil
}
