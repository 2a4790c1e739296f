package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/svc/scheduler"
)

func newTickCommand(c *cli) *cobra.Command {
	var (
		asOfFlag string
		drain    bool
	)

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run scheduler ticks once and print the result",
		Long: `Claims and publishes every transition due at --as-of (default: now).
With --drain, ticks repeat while a batch comes back full.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asOf, err := parseAsOf(asOfFlag, time.Now)
			if err != nil {
				return err
			}

			d, err := c.buildDeps(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			sched := scheduler.New(d.store, d.pub,
				scheduler.WithBatchSize(c.cfg.Scheduler.BatchSize),
				scheduler.WithClaimLimit(c.cfg.Scheduler.ClaimLimit),
				scheduler.WithLogger(d.log),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for {
				res, err := sched.Tick(ctx, asOf)
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
				if err != nil {
					d.log.ErrorContext(ctx, "tick failed", logger.AsOf(asOf), logger.Error(err))
					return err
				}
				if !drain || !res.More {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "business instant in RFC 3339; defaults to now")
	cmd.Flags().BoolVar(&drain, "drain", false, "repeat until no full batch remains")
	return cmd
}

func parseAsOf(raw string, now func() time.Time) (time.Time, error) {
	if raw == "" {
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", raw, err)
	}
	return t.UTC(), nil
}
