// Package main provides the mwa CLI: the contact review dashboard and its supporting tools.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mwa-review/src/api"
	"mwa-review/src/config"
	"mwa-review/src/logger"
)

var version = "dev"

var (
	// Application configuration, loaded before any subcommand runs
	appConfig *config.Config
	// Path of an optional YAML config file
	configPath string
	// Log file for commands that own the terminal
	logFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mwa",
	Short: "mwa - review contacts discovered by the MWA scraper",
	Long: `mwa is a terminal client for reviewing contacts found by the MWA discovery pipeline.

It loads contacts from the contact API (or directly from Postgres), keeps them current through
the realtime push channel, and lets reviewers search, filter, verify, reject, export and delete
contacts in bulk.

Configuration comes from an optional YAML file (--config) and MWA_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return &api.UserError{
				Message: "Configuration error",
				Hint:    "Set MWA_API_URL (or POSTGRES_DSN) or pass --config with a YAML file.",
				Err:     err,
			}
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		appConfig = cfg
		return nil
	},
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// consoleLogger logs to stderr at the configured level.
func consoleLogger() logger.Logger {
	return logger.NewConsoleLogger(appConfig.LogLevel)
}

// quietLogger is for commands that own the terminal: a file logger when --log-file is set,
// silent otherwise.
func quietLogger() (logger.Logger, io.Closer, error) {
	if logFile == "" {
		return logger.NewSilentLogger(), io.NopCloser(nil), nil
	}
	l, closer, err := logger.NewFileLogger(logFile, appConfig.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return l, closer, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file (dashboard and mcp)")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, api.WrapError(err))
		os.Exit(1)
	}
}
