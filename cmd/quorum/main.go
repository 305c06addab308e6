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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/blinklabs-io/quorum/internal/config"
	"github.com/blinklabs-io/quorum/internal/version"
)

const (
	programName = "quorum"
)

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...),
		"component", programName,
	)
}

var (
	globalFlags = struct {
		debug   bool
		noColor bool
	}{}
	configFile string
)

func commonRun() *slog.Logger {
	// Configure logger
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	// Configure max processes with our logger wrapper, toss undo func
	_, err := maxprocs.Set(maxprocs.Logger(slogPrintf))
	if err != nil {
		// If we hit this, something really wrong happened
		slog.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return logger
}

// quietLogger is used by the read commands, whose stdout is the rendered
// output. Logs go to stderr at debug level only.
func quietLogger() *slog.Logger {
	logLevel := slog.LevelWarn
	if globalFlags.debug {
		logLevel = slog.LevelDebug
	}
	return slog.New(
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}),
	)
}

func configFromCommand(cmd *cobra.Command) *config.Config {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		slog.Error("no config found in context")
		os.Exit(1)
	}
	return cfg
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Token-weighted governance engine with a timelocked treasury",
		SilenceUsage:  true,
		SilenceErrors: false,
		Run: func(cmd *cobra.Command, args []string) {
			serveRun(cmd, args, configFromCommand(cmd))
		},
	}

	// Global flags
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		BoolVar(&globalFlags.noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().
		String("database-path", "", "data directory, overrides the config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with command line flags
		if dbPath, _ := cmd.Root().PersistentFlags().GetString("database-path"); dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		setupColor()

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	// Subcommands
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(applyCommand())
	rootCmd.AddCommand(proposalsCommand())
	rootCmd.AddCommand(proposalCommand())
	rootCmd.AddCommand(powerCommand())
	rootCmd.AddCommand(treasuryCommand())
	rootCmd.AddCommand(versionCommand())

	// Execute cobra command
	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
