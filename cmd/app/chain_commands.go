package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/auditchain/cmd/app/commands"
	"github.com/allisson/auditchain/internal/app"
	"github.com/allisson/auditchain/internal/config"
)

func getChainCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "record-event",
			Usage: "Append one audit event to a chain",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "chain-id",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Chain to append to (e.g., patient-42)",
				},
				&cli.StringFlag{
					Name:     "event-type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Event type (e.g., phi_accessed, login, record_updated)",
				},
				&cli.StringFlag{
					Name:     "actor-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Who performed the action",
				},
				&cli.StringFlag{
					Name:     "resource-type",
					Required: true,
					Usage:    "Type of the affected resource (e.g., medical_record)",
				},
				&cli.StringFlag{
					Name:     "resource-id",
					Required: true,
					Usage:    "ID of the affected resource",
				},
				&cli.StringFlag{
					Name:     "action",
					Required: true,
					Usage:    "Action performed (view, create, update, delete, export, purge, correction)",
				},
				&cli.StringFlag{
					Name:     "outcome",
					Required: true,
					Usage:    "Outcome (success, failure, denied)",
				},
				&cli.StringFlag{
					Name:  "payload",
					Usage: "Base64-encoded sensitive payload (encrypted at rest)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				appender, err := container.AppenderUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunRecordEvent(
					ctx,
					appender,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("chain-id"),
					cmd.String("event-type"),
					cmd.String("actor-id"),
					cmd.String("resource-type"),
					cmd.String("resource-id"),
					cmd.String("action"),
					cmd.String("outcome"),
					cmd.String("payload"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "verify-chain",
			Usage: "Verify the hash chain over a block range",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "chain-id",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Chain to verify",
				},
				&cli.IntFlag{
					Name:  "from-block",
					Value: 0,
					Usage: "First block of the range",
				},
				&cli.IntFlag{
					Name:     "to-block",
					Required: true,
					Usage:    "Last block of the range (inclusive)",
				},
				&cli.StringFlag{
					Name:  "trusted-prior-hash",
					Usage: "Hex-encoded trusted hash anchoring a range starting past block 0",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				verifier, err := container.VerifierUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyChain(
					ctx,
					verifier,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("chain-id"),
					int64(cmd.Int("from-block")),
					int64(cmd.Int("to-block")),
					cmd.String("trusted-prior-hash"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "export-chain",
			Usage: "Verify and export a block range for compliance",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "chain-id",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Chain to export",
				},
				&cli.IntFlag{
					Name:  "from-block",
					Value: 0,
					Usage: "First block of the range",
				},
				&cli.IntFlag{
					Name:     "to-block",
					Required: true,
					Usage:    "Last block of the range (inclusive)",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "json",
					Usage:   "Export format: 'json' (NDJSON) or 'csv'",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   "-",
					Usage:   "Output file path, or '-' for stdout",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				exporter, err := container.ExporterUseCase()
				if err != nil {
					return err
				}

				return commands.RunExportChain(
					ctx,
					exporter,
					container.Logger(),
					cmd.String("chain-id"),
					int64(cmd.Int("from-block")),
					int64(cmd.Int("to-block")),
					cmd.String("format"),
					cmd.String("output"),
				)
			},
		},
	}
}
