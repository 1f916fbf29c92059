// Package main provides the aggregate CLI: batch aggregation passes over
// the producer feeds, scheduled passes, and inspection of the metric store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"case-metrics/internal/config"
	"case-metrics/internal/logger"
)

// env is populated by the Before hook and shared by every command.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

var app = &env{logger: zap.NewNop()}

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "aggregate"
	cliApp.Usage = "windowed metrics over CS:GO case prices, popularity and player counts"

	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "config file path (YAML); AGG_* environment variables override it",
		},
		cli.StringFlag{
			Name:  "log-level, l",
			Usage: "log level: debug,info,warn,error (overrides log.level)",
		},
	}

	cliApp.Before = func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		if lv := c.String("log-level"); lv != "" {
			cfg.Log.Level = lv
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		app.cfg = cfg
		app.logger = log
		return nil
	}

	cliApp.After = func(*cli.Context) error {
		_ = app.logger.Sync()
		return nil
	}

	cliApp.Commands = []cli.Command{
		runCommand(),
		scheduleCommand(),
		seriesCommand(),
		stateCommand(),
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go exitSignal(ctx, cancel)
	return ctx, cancel
}

func exitSignal(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		app.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case <-ctx.Done():
	}
}
