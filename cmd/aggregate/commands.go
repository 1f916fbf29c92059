package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"case-metrics/internal/config"
	"case-metrics/internal/cron"
	"case-metrics/internal/normalization"
	"case-metrics/internal/observability"
	"case-metrics/internal/pipeline"
	"case-metrics/internal/storage"
)

func runCommand() cli.Command {
	return cli.Command{
		Name:  "run",
		Usage: "run one aggregation pass and write the snapshot files",
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()

			st, err := openStores(ctx, app.cfg.Store)
			if err != nil {
				return err
			}
			defer closeStores(st)

			m := observability.NewMetrics(app.cfg.Metrics.Namespace)
			pass, err := newPass(app.cfg, st, m, app.logger)
			if err != nil {
				return err
			}

			res, runErr := pass.Run(ctx)
			if path := app.cfg.Metrics.Textfile; path != "" {
				if err := m.WriteTextfile(path); err != nil {
					app.logger.Warn("write metrics textfile", zap.String("path", path), zap.Error(err))
				}
			}
			if runErr != nil {
				return runErr
			}

			printResult(res)
			return nil
		},
	}
}

func scheduleCommand() cli.Command {
	return cli.Command{
		Name:  "schedule",
		Usage: "run aggregation passes on schedule.spec and serve /metrics",
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()

			st, err := openStores(ctx, app.cfg.Store)
			if err != nil {
				return err
			}
			defer closeStores(st)

			m := observability.NewMetrics(app.cfg.Metrics.Namespace)
			pass, err := newPass(app.cfg, st, m, app.logger)
			if err != nil {
				return err
			}

			srv := observability.NewServer(app.cfg.Schedule.MetricsAddr, m, app.logger)
			srv.Start()

			runner := cron.New(app.logger, ctx)
			if _, err := runner.Add(app.cfg.Schedule.Spec, func(ctx context.Context) {
				// Errors are already logged and counted by the pass.
				_, _ = pass.Run(ctx)
			}); err != nil {
				return fmt.Errorf("schedule %q: %w", app.cfg.Schedule.Spec, err)
			}
			runner.Start()
			app.logger.Info("scheduler started", zap.String("spec", app.cfg.Schedule.Spec))

			<-ctx.Done()

			runner.Stop()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func seriesCommand() cli.Command {
	return cli.Command{
		Name:  "series",
		Usage: "list stored series with their latest value and all-time peak",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "key, k",
				Usage: "only show the series with this key (kind:source:item)",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()

			st, err := openStores(ctx, app.cfg.Store)
			if err != nil {
				return err
			}
			defer closeStores(st)

			return listSeries(ctx, st.series, c.String("key"))
		},
	}
}

func stateCommand() cli.Command {
	return cli.Command{
		Name:  "state",
		Usage: "print the state of the last completed pass",
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()

			st, err := openStores(ctx, app.cfg.Store)
			if err != nil {
				return err
			}
			defer closeStores(st)

			state, err := storage.LoadRunState(ctx, st.kv)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Println("No completed pass recorded.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("load run state: %w", err)
			}

			fmt.Printf("Run ID:    %s\n", state.RunID)
			fmt.Printf("Started:   %s\n", state.Start.Format(time.RFC3339Nano))
			fmt.Printf("Snapshot:  %s\n", state.Snapshot)
			fmt.Printf("Rows:      %d\n", state.Rows)
			return nil
		},
	}
}

// newPass wires a pipeline.Pass from configuration.
func newPass(cfg config.Config, st *stores, m *observability.Metrics, logger *zap.Logger) (*pipeline.Pass, error) {
	policy, err := normalization.ParseTimePolicy(cfg.Normalizer.TimePolicy)
	if err != nil {
		return nil, err
	}

	norm := normalization.New(normalization.Options{
		TimePolicy: policy,
		PriceNames: cfg.Normalizer.PriceNames,
		GlobalItem: cfg.Normalizer.GlobalItem,
	})

	return pipeline.NewPass(st.series, st.kv, norm, pipeline.Options{
		InputDir:         cfg.Data.InputDir,
		OutputDir:        cfg.Data.OutputDir,
		SnapshotBase:     cfg.Data.SnapshotBase,
		PopularitySource: cfg.Normalizer.PopularitySource,
	}).WithLogger(logger).WithMetrics(m), nil
}

func closeStores(st *stores) {
	if err := st.close(); err != nil {
		app.logger.Warn("close store", zap.Error(err))
	}
}

func printResult(res *pipeline.Result) {
	fmt.Printf("Pass %s completed in %s\n", res.RunID, res.Duration.Round(time.Millisecond))
	fmt.Printf("  Feeds:        %d\n", res.Feeds)
	fmt.Printf("  Records:      %d\n", res.Records)
	fmt.Printf("  Observations: %d\n", res.Observations)
	if res.TimeFallbacks > 0 {
		fmt.Printf("  Time fallbacks: %d (stamped with the pass start)\n", res.TimeFallbacks)
	}
	fmt.Printf("  Ticks:        %d inserted, %d duplicate\n", res.TicksInserted, res.TicksDuplicate)
	fmt.Printf("  Rows:         %d\n", res.Rows)

	if len(res.Skipped) > 0 {
		reasons := make([]string, 0, len(res.Skipped))
		for reason := range res.Skipped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		fmt.Println("  Skipped:")
		for _, reason := range reasons {
			fmt.Printf("    - %s: %d\n", reason, res.Skipped[reason])
		}
	}

	if res.Output != nil {
		fmt.Printf("  Snapshot:     %s\n", res.Output.SnapshotPath)
		fmt.Printf("  Latest:       %s\n", res.Output.LatestPath)
	}
}

func listSeries(ctx context.Context, store storage.TimeSeriesStore, key string) error {
	var series []string
	if key != "" {
		s, err := store.GetSeries(ctx, key)
		if err != nil {
			return fmt.Errorf("get series %s: %w", key, err)
		}
		series = []string{s.Key}
	} else {
		all, err := store.ListSeries(ctx)
		if err != nil {
			return fmt.Errorf("list series: %w", err)
		}
		for _, s := range all {
			series = append(series, s.Key)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tLATEST\tPEAK")
	for _, k := range series {
		latest, err := store.LatestValue(ctx, k)
		if err != nil {
			return fmt.Errorf("latest %s: %w", k, err)
		}
		peak, err := store.PeakAllTime(ctx, k)
		if err != nil {
			return fmt.Errorf("peak %s: %w", k, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", k, formatValue(latest), formatValue(peak))
	}
	return w.Flush()
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
