package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mwa-review/src/broker"
	"mwa-review/src/metrics"
	"mwa-review/src/realtime"
)

// relayCmd mirrors the push endpoint into Redpanda
var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Mirror the realtime push endpoint into a Redpanda topic",
	Long: `Connect to the websocket push endpoint and publish every envelope to the events topic,
keyed by contact id. Dashboards configured with REDPANDA_BROKERS and no MWA_WS_URL follow
the stream from the topic instead of holding their own websocket.

Requires MWA_WS_URL and REDPANDA_BROKERS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.WSURL == "" || len(appConfig.RedpandaBrokers) == 0 {
			return errors.New("relay requires both MWA_WS_URL and REDPANDA_BROKERS")
		}
		log := consoleLogger()
		m := metrics.New()

		ctx, cancel := signalContext()
		defer cancel()

		b, err := broker.NewRedpandaBroker(appConfig.RedpandaBrokers, log)
		if err != nil {
			return fmt.Errorf("failed to connect to redpanda: %w", err)
		}
		defer b.Close()

		relay := realtime.NewRelay(realtime.RelayConfig{
			Broker:  b,
			Topic:   appConfig.EventsTopic,
			Logger:  log,
			Metrics: m,
		})
		ch := realtime.NewChannel(realtime.Config{
			Dialer:      relay.Dialer(&realtime.WebSocketDialer{URL: appConfig.WSURL, Token: appConfig.APIToken}),
			BaseDelay:   appConfig.Reconnect.BaseDelay,
			MaxDelay:    appConfig.Reconnect.MaxDelay,
			MaxAttempts: appConfig.Reconnect.MaxAttempts,
			Logger:      log,
			Metrics:     m,
		})
		ch.OnStateChange(func(state realtime.State, err error) {
			if err != nil {
				log.Warn("push connection", "state", state.String(), "error", err)
				return
			}
			log.Info("push connection", "state", state.String())
		})

		if err := ch.Connect(ctx); err != nil {
			return err
		}
		log.Info("relaying", "from", appConfig.WSURL, "topic", appConfig.EventsTopic)

		select {
		case <-ctx.Done():
			ch.Disconnect()
			<-ch.Done()
			log.Info("relay stopped")
			return nil
		case <-ch.Done():
			if err := ch.Err(); err != nil {
				return fmt.Errorf("push connection lost: %w", err)
			}
			return nil
		}
	},
}
