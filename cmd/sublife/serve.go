package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sublife/pkg/httpserver"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/svc/api"
	"github.com/dmitrymomot/sublife/svc/scheduler"
	"github.com/dmitrymomot/sublife/svc/subscription"
)

func newServeCommand(c *cli) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the transition scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				c.cfg.Scheduler.Workers = workers
			}
			return c.serve(cmd)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 1, "scheduler workers in this process; 0 runs the API only")
	return cmd
}

func (c *cli) serve(cmd *cobra.Command) error {
	ctx := cmd.Context()

	d, err := c.buildDeps(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			d.log.ErrorContext(ctx, "failed to release resources", logger.Error(err))
		}
	}()

	policy, err := c.cfg.changePolicy()
	if err != nil {
		return err
	}
	svc := subscription.NewService(d.store, d.catalog,
		subscription.WithChangePolicy(policy),
		subscription.WithPublisher(d.pub),
		subscription.WithLogger(d.log.With(logger.Component("subscription"))),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := scheduler.MustNewMetrics(reg)

	router := api.NewRouter(svc,
		api.WithLogger(d.log.With(logger.Component("api"))),
		api.WithHealthChecks(d.checks...),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		api.WithRequestTimeout(c.cfg.HTTP.WriteTimeout),
	)
	srv := httpserver.NewFromConfig(router, c.cfg.HTTP, httpserver.WithLogger(d.log.With(logger.Component("http"))))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run(ctx))

	sched := scheduler.New(d.store, d.pub,
		scheduler.WithBatchSize(c.cfg.Scheduler.BatchSize),
		scheduler.WithClaimLimit(c.cfg.Scheduler.ClaimLimit),
		scheduler.WithMetrics(metrics),
		scheduler.WithLogger(d.log.With(logger.Component("scheduler"))),
	)
	for i := range c.cfg.Scheduler.Workers {
		w := scheduler.NewWorker(sched,
			scheduler.WithInterval(c.cfg.Scheduler.Interval),
			scheduler.WithWorkerID(fmt.Sprintf("%s-%d", c.cfg.ServiceName, i)),
			scheduler.WithWorkerLogger(d.log.With(logger.Component("scheduler"))),
		)
		g.Go(w.Run(ctx))
	}

	d.log.InfoContext(ctx, "sublife started",
		logger.Count(c.cfg.Scheduler.Workers),
		logger.Operation("serve"),
	)
	return g.Wait()
}
