package main

import (
	"context"
	"fmt"
	"net/http"

	"investor-matching/internal/api"
	"investor-matching/internal/common/camunda"
	"investor-matching/internal/common/config"
	"investor-matching/internal/common/logger"
	cms "investor-matching/internal/workers/matching/calculate-match-score"
	rcm "investor-matching/internal/workers/matching/recompute-matches"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the Zeebe job workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			zapLog, log := newLogger()
			defer func() { _ = zapLog.Sync() }()
			ctx := cmd.Context()

			a, err := buildApp(ctx, log, opts)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			if cfg.Camunda.Enabled {
				stop, err := startWorkers(ctx, a, log)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				defer stop()
			}

			srv := api.NewServer(a.engine, a.auth, a.checks, log)
			httpSrv := &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      srv.Handler(),
				ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
				WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("http server starting", map[string]interface{}{"addr": cfg.Server.Address, "inMemory": opts.inMemory})
				if listenErr := httpSrv.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
					errCh <- fmt.Errorf("serve: http server: %w", listenErr)
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				log.Info("shutting down", nil)
			case startErr := <-errCh:
				return startErr
			}

			if err := api.Shutdown(httpSrv, config.GetDuration(cfg.Server.ShutdownTimeout)); err != nil {
				return fmt.Errorf("serve: graceful shutdown: %w", err)
			}
			return <-errCh
		},
	}
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "use the in-memory store instead of postgres")
	cmd.Flags().StringVar(&opts.seedFile, "seed", "", "JSON file of startups to load into the in-memory store")
	return cmd
}

// startWorkers connects to the broker and opens one job worker per enabled task type.
func startWorkers(ctx context.Context, a *app, log logger.Logger) (func(), error) {
	client, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		Retry:                  a.policy,
	})
	if err != nil {
		return nil, err
	}
	a.checks["zeebe"] = client.HealthCheck

	var regs []camunda.Registration
	if c := cms.LoadConfig(cfg); c.Enabled {
		regs = append(regs, camunda.Registration{
			TaskType:      cms.TaskType,
			Handler:       cms.NewHandler(c, a.engine, log),
			MaxJobsActive: c.MaxJobsActive,
			Timeout:       c.Timeout,
		})
	}
	if c := rcm.LoadConfig(cfg); c.Enabled {
		regs = append(regs, camunda.Registration{
			TaskType:      rcm.TaskType,
			Handler:       rcm.NewHandler(c, a.engine, log),
			MaxJobsActive: c.MaxJobsActive,
			Timeout:       c.Timeout,
		})
	}

	pool := camunda.StartPool(client.Zeebe(), regs, log)
	log.Info("zeebe workers registered", map[string]interface{}{"count": len(regs)})
	return func() {
		pool.Stop()
		_ = client.Close()
	}, nil
}
