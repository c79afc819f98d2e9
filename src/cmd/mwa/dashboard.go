package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mwa-review/src/metrics"
	"mwa-review/src/tui"
)

// dashboardCmd runs the interactive review dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive contact review dashboard",
	Long: `Load every contact, subscribe to realtime updates and open the review dashboard.

The dashboard owns the terminal, so logs are discarded unless --log-file is set.`,
	Aliases: []string{"ui"},
	RunE: func(cmd *cobra.Command, args []string) error {
		log, logCloser, err := quietLogger()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		ctx, cancel := signalContext()
		defer cancel()

		sess, dialerCloser, err := newSession(appConfig, log, metrics.New())
		if err != nil {
			return err
		}
		defer dialerCloser.Close()

		if err := sess.Start(ctx); err != nil {
			sess.Close()
			return fmt.Errorf("failed to start session: %w", err)
		}

		uiErr := tui.Start(ctx, sess)
		if closeErr := sess.Close(); closeErr != nil {
			log.Warn("session closed with error", "error", closeErr)
		}
		return uiErr
	},
}
