package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mwa-review/src/collection"
	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
)

var metricsAddr string

// watchCmd runs a headless session and logs what changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the contact collection without the dashboard",
	Long: `Run a headless session: load the collection, follow realtime updates and log
collection size, connection state and system notices as they change.

With --metrics-addr the session's Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := consoleLogger()
		m := metrics.New()

		ctx, cancel := signalContext()
		defer cancel()

		sess, dialerCloser, err := newSession(appConfig, log, m)
		if err != nil {
			return err
		}
		defer dialerCloser.Close()

		unsubscribe := sess.Store().Subscribe(snapshotLogger(log))
		defer unsubscribe()

		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				log.Info("serving metrics", "addr", metricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelShutdown()
				srv.Shutdown(shutdownCtx)
			}()
		}

		if err := sess.Start(ctx); err != nil {
			sess.Close()
			return fmt.Errorf("failed to start session: %w", err)
		}
		<-ctx.Done()
		log.Info("shutting down")
		return sess.Close()
	},
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// snapshotLogger logs the parts of a snapshot that changed since the previous one. Store
// listeners are called one at a time, so the closure state needs no lock.
func snapshotLogger(log logger.Logger) func(*collection.Snapshot) {
	var (
		lastCount  = -1
		lastState  string
		lastNotice *collection.Notice
		lastErr    *collection.OpError
	)
	return func(snap *collection.Snapshot) {
		if !snap.Loading && len(snap.Contacts) != lastCount {
			lastCount = len(snap.Contacts)
			log.Info("collection changed", "contacts", lastCount, "pending", countPending(snap))
		}
		if snap.Realtime.State != lastState {
			lastState = snap.Realtime.State
			if snap.Realtime.Err != nil {
				log.Warn("realtime state", "state", lastState, "error", snap.Realtime.Err)
			} else {
				log.Info("realtime state", "state", lastState)
			}
		}
		if snap.Notice != nil && snap.Notice != lastNotice {
			log.Info("system notice", "level", snap.Notice.Level, "title", snap.Notice.Title, "message", snap.Notice.Message)
		}
		lastNotice = snap.Notice
		if snap.Err != nil && snap.Err != lastErr {
			log.Error("operation failed", "op", snap.Err.Op, "error", snap.Err.Err, "retryable", snap.Err.Retryable)
		}
		lastErr = snap.Err
	}
}

func countPending(snap *collection.Snapshot) int {
	n := 0
	for _, c := range snap.Contacts {
		if c.Status == contracts.StatusPending {
			n++
		}
	}
	return n
}

func init() {
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}
