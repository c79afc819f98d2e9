package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"mwa-review/src/api"
	"mwa-review/src/broker"
	"mwa-review/src/config"
	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
	"mwa-review/src/realtime"
	"mwa-review/src/session"
	"mwa-review/src/store"
)

// newContactAPI returns the contact source: the REST API, or the contacts table when only
// a Postgres DSN is configured.
func newContactAPI(cfg *config.Config, log logger.Logger) (contracts.ContactAPI, error) {
	log = logger.OrSilent(log)
	if cfg.APIURL == "" {
		if cfg.PostgresDSN == "" {
			return nil, errors.New("neither an API URL nor a Postgres DSN is configured")
		}
		pg, err := store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, &api.UserError{
				Message: "Could not connect to Postgres",
				Hint:    "Check POSTGRES_DSN.",
				Err:     err,
			}
		}
		log.Info("reading contacts from postgres")
		return pg, nil
	}

	client, err := api.NewClient(cfg.APIURL,
		api.WithToken(cfg.APIToken),
		api.WithRateLimit(cfg.RequestsPerSecond, max(1, int(cfg.RequestsPerSecond))),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newDialer returns the realtime transport: the websocket endpoint when configured,
// otherwise the relayed broker topic. The closer releases the broker, if one was created.
// A nil dialer runs the session without realtime updates.
func newDialer(cfg *config.Config, log logger.Logger) (realtime.Dialer, io.Closer, error) {
	log = logger.OrSilent(log)
	switch {
	case cfg.WSURL != "":
		return &realtime.WebSocketDialer{URL: cfg.WSURL, Token: cfg.APIToken}, io.NopCloser(nil), nil
	case len(cfg.RedpandaBrokers) > 0:
		b, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redpanda: %w", err)
		}
		return &realtime.BrokerDialer{
			Broker: b,
			Topic:  cfg.EventsTopic,
			// every dashboard sees every event
			GroupID: "mwa-dashboard-" + uuid.NewString()[:8],
		}, b, nil
	default:
		log.Warn("no realtime endpoint configured; relying on periodic reloads")
		return nil, io.NopCloser(nil), nil
	}
}

// newSession wires a session from the configuration. Closing the returned session also
// closes the contact source; the closer releases the realtime transport.
func newSession(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*session.Session, io.Closer, error) {
	contactAPI, err := newContactAPI(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	dialer, closer, err := newDialer(cfg, log)
	if err != nil {
		contactAPI.Close()
		return nil, nil, err
	}

	s, err := session.New(session.Config{
		API:                  contactAPI,
		Dialer:               dialer,
		PageSize:             cfg.PageSize,
		LoadPageSize:         cfg.LoadPageSize,
		ReconnectBaseDelay:   cfg.Reconnect.BaseDelay,
		ReconnectMaxDelay:    cfg.Reconnect.MaxDelay,
		ReconnectMaxAttempts: cfg.Reconnect.MaxAttempts,
		ReconcileInterval:    cfg.ReconcileInterval,
		ExportDir:            cfg.ExportDir,
		Logger:               log,
		Metrics:              m,
	})
	if err != nil {
		closer.Close()
		contactAPI.Close()
		return nil, nil, err
	}
	return s, closer, nil
}

// shortTimeout bounds one-shot commands.
const shortTimeout = 60 * time.Second
