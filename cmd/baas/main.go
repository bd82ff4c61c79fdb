package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/baaskit/internal/cli"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/logging"
	"github.com/dmitrijs2005/baaskit/internal/metrics"
	"github.com/dmitrijs2005/baaskit/internal/sdk"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, args, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	reg := prometheus.NewRegistry()
	m, err := metrics.NewRequestMetrics(reg)
	if err != nil {
		logger.Error(ctx, "metrics setup failed", "error", err)
		return 1
	}

	client, err := sdk.New(ctx, cfg, sdk.WithLogger(logger), sdk.WithObserver(m))
	if err != nil {
		logger.Error(ctx, "client setup failed", "error", err)
		return 1
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn(ctx, "close failed", "error", err)
		}
	}()

	code := cli.NewApp(client, os.Stdin, os.Stdout, os.Stderr).Run(ctx, args)
	if cfg.PrintMetrics {
		if err := metrics.WriteText(os.Stderr, reg); err != nil {
			logger.Warn(ctx, "metrics output failed", "error", err)
		}
	}
	return code
}
