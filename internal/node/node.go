// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/quorum"
	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/internal/config"
	"github.com/blinklabs-io/quorum/keeper"
	"github.com/blinklabs-io/quorum/types"
)

// NodeOptions translates the loaded config into node options
func NodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) ([]quorum.ConfigOptionFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	slotLength, err := cfg.SlotLengthDuration()
	if err != nil {
		return nil, err
	}
	opts := []quorum.ConfigOptionFunc{
		quorum.WithLogger(logger),
		quorum.WithDatabasePath(cfg.DatabasePath),
		quorum.WithAdmins(cfg.Admins...),
		quorum.WithParams(cfg.Governance),
		quorum.WithMaxSupply(cfg.MaxSupply),
		quorum.WithClock(clock.NewSlotClock(cfg.SystemStartTime(), slotLength)),
		quorum.WithShutdownTimeout(shutdownTimeout),
		quorum.WithTracing(cfg.Tracing),
		quorum.WithTracingStdout(cfg.TracingStdout),
	}
	if promRegistry != nil {
		opts = append(opts, quorum.WithPrometheusRegistry(promRegistry))
	}
	if cfg.GovernorAddress != types.ZeroAddress {
		opts = append(opts, quorum.WithGovernorAddress(cfg.GovernorAddress))
	}
	if cfg.TreasuryAddress != types.ZeroAddress {
		opts = append(opts, quorum.WithTreasuryAddress(cfg.TreasuryAddress))
	}
	if cfg.WithdrawalDelay != nil {
		opts = append(opts, quorum.WithWithdrawalDelay(*cfg.WithdrawalDelay))
	}
	if len(cfg.AllowedTargets) > 0 {
		opts = append(opts, quorum.WithAllowedTargets(cfg.AllowedTargets...))
	}
	return opts, nil
}

// Open creates and starts a node from the loaded config
func Open(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*quorum.Node, error) {
	opts, err := NodeOptions(cfg, logger, promRegistry)
	if err != nil {
		return nil, err
	}
	n, err := quorum.New(quorum.NewConfig(opts...))
	if err != nil {
		return nil, err
	}
	if err := n.Start(ctx); err != nil {
		if stopErr := n.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return nil, err
	}
	return n, nil
}

// Run serves the node with its keeper and metrics listener until a signal
// is received
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	keeperInterval, err := cfg.KeeperIntervalDuration()
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	// Enable metrics with default prometheus registry
	n, err := Open(signalCtx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	k, err := keeper.NewKeeper(keeper.KeeperConfig{
		Logger:       logger,
		PromRegistry: prometheus.DefaultRegisterer,
		Target:       n,
		Interval:     keeperInterval,
		AutoQueue:    cfg.AutoQueue,
		AutoExecute:  cfg.AutoExecute,
	})
	if err != nil {
		return errors.Join(err, n.Stop())
	}
	k.Start()

	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.MetricsBindAddr, cfg.MetricsPort)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	g, gctx := errgroup.WithContext(signalCtx)
	if cfg.MetricsPort > 0 {
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if signalCtx.Err() != nil {
			logger.Info("signal received, initiating graceful shutdown", "component", "node")
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "component", "node", "error", err)
		}
		return nil
	})
	runErr := g.Wait()

	k.Stop()
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		logger.Error("node error", "component", "node", "error", runErr)
		return runErr
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
