package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/auditchain/cmd/app/commands"
	"github.com/allisson/auditchain/internal/app"
	"github.com/allisson/auditchain/internal/config"
)

func getRetentionCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "set-retention-policy",
			Usage: "Create or replace the retention policy for an event type",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "actor-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Administrator performing the change",
				},
				&cli.StringFlag{
					Name:     "event-type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Event type the policy applies to",
				},
				&cli.IntFlag{
					Name:     "min-retention-days",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Minimum retention period in days",
				},
				&cli.BoolFlag{
					Name:  "legal-hold",
					Value: false,
					Usage: "Shield every event of this type from purges",
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

				policyUseCase, err := container.PolicyUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunSetRetentionPolicy(
					ctx,
					policyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor-id"),
					cmd.String("event-type"),
					int(cmd.Int("min-retention-days")),
					cmd.Bool("legal-hold"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "set-legal-hold",
			Usage: "Place a legal hold on one resource",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "actor-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Administrator placing the hold",
				},
				&cli.StringFlag{
					Name:     "resource-id",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Resource to hold",
				},
				&cli.StringFlag{
					Name:     "reason",
					Required: true,
					Usage:    "Why the hold is placed (e.g., litigation case number)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				policyUseCase, err := container.PolicyUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunSetLegalHold(
					ctx,
					policyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor-id"),
					cmd.String("resource-id"),
					cmd.String("reason"),
				)
			},
		},
		{
			Name:  "release-legal-hold",
			Usage: "Lift the legal hold on one resource",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "actor-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Administrator releasing the hold",
				},
				&cli.StringFlag{
					Name:     "resource-id",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Resource to release",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				policyUseCase, err := container.PolicyUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunReleaseLegalHold(
					ctx,
					policyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor-id"),
					cmd.String("resource-id"),
				)
			},
		},
		{
			Name:  "run-purge",
			Usage: "Run one purge coordinator pass",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Evaluate eligibility without deleting anything",
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

				coordinator, err := container.CoordinatorUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunPurge(
					ctx,
					coordinator,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "approve-purge-run",
			Usage: "Approve a purge run parked in awaiting_approval",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "actor-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Administrator approving the run",
				},
				&cli.StringFlag{
					Name:     "run-id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Purge run ID (UUID)",
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

				coordinator, err := container.CoordinatorUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunApprovePurgeRun(
					ctx,
					coordinator,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor-id"),
					cmd.String("run-id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "suspend-purge-run",
			Usage: "Emergency-stop a purge run",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "actor-id",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Administrator suspending the run",
				},
				&cli.StringFlag{
					Name:     "run-id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Purge run ID (UUID)",
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

				coordinator, err := container.CoordinatorUseCase(ctx)
				if err != nil {
					return err
				}

				return commands.RunSuspendPurgeRun(
					ctx,
					coordinator,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("actor-id"),
					cmd.String("run-id"),
					cmd.String("format"),
				)
			},
		},
	}
}
