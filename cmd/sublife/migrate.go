package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/pg"
)

func newMigrateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the event store schema migrations to Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log, err := c.cfg.logger()
			if err != nil {
				return err
			}
			logger.SetAsDefault(log)

			pool, pgCfg, err := c.connectPostgres(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			pgCfg.MigrationsPath = eventstore.MigrationsDir
			if err := pg.Migrate(ctx, pool, pgCfg, eventstore.Migrations, log); err != nil {
				return err
			}
			log.InfoContext(ctx, "migrations applied", "table", pgCfg.MigrationsTable)
			return nil
		},
	}
}
