// Package session wires one dashboard session: the contact source, the collection store, the
// realtime channel and the bulk coordinator. It owns their goroutines and tears them down
// together.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mwa-review/src/bulk"
	"mwa-review/src/collection"
	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
	"mwa-review/src/realtime"
)

// ErrStarted is returned by Start on a session that was already started.
var ErrStarted = errors.New("session already started")

// Config configures a Session.
type Config struct {
	// API is the contact backend used for loads and bulk actions.
	API contracts.ContactAPI
	// Dialer opens the push connection. Nil runs without realtime updates.
	Dialer realtime.Dialer

	PageSize     int
	LoadPageSize int

	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int
	// ReconcileInterval reloads the collection periodically. Zero disables it.
	ReconcileInterval time.Duration

	// Exporter writes bulk exports. Nil writes CSV files into ExportDir.
	Exporter  bulk.Exporter
	ExportDir string

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Session is one running dashboard session.
type Session struct {
	api     contracts.ContactAPI
	store   *collection.Store
	channel *realtime.Channel
	bulk    *bulk.Coordinator
	log     logger.Logger

	reconcileInterval time.Duration
	reload            chan struct{}

	mu           sync.Mutex
	started      bool
	cancel       context.CancelFunc
	group        *errgroup.Group
	reconnecting bool
	closeOnce    sync.Once
	closeErr     error
}

// New builds the components of a session without starting anything.
func New(cfg Config) (*Session, error) {
	if cfg.API == nil {
		return nil, errors.New("session requires a contact API")
	}
	log := logger.OrSilent(cfg.Logger)

	st := collection.NewStore(collection.Config{
		Source:       cfg.API,
		PageSize:     cfg.PageSize,
		LoadPageSize: cfg.LoadPageSize,
		Logger:       log,
		Metrics:      cfg.Metrics,
	})

	exporter := cfg.Exporter
	if exporter == nil {
		exporter = bulk.CSVExporter{Dir: cfg.ExportDir}
	}

	s := &Session{
		api:   cfg.API,
		store: st,
		bulk: bulk.NewCoordinator(bulk.Config{
			API:      cfg.API,
			Store:    st,
			Exporter: exporter,
			Logger:   log,
			Metrics:  cfg.Metrics,
		}),
		log:               log,
		reconcileInterval: cfg.ReconcileInterval,
		reload:            make(chan struct{}, 1),
	}

	if cfg.Dialer != nil {
		s.channel = realtime.NewChannel(realtime.Config{
			Dialer:      cfg.Dialer,
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxDelay:    cfg.ReconnectMaxDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
			Logger:      log,
			Metrics:     cfg.Metrics,
		})
	}
	return s, nil
}

// Store returns the collection store.
func (s *Session) Store() *collection.Store { return s.store }

// Channel returns the realtime channel, or nil when the session runs without one.
func (s *Session) Channel() *realtime.Channel { return s.channel }

// API returns the contact backend.
func (s *Session) API() contracts.ContactAPI { return s.api }

// Start schedules the initial load, connects the realtime channel and starts the reconcile
// loop. It returns immediately; Close stops everything.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = g
	s.mu.Unlock()

	// State listeners take s.mu, so the channel is connected without holding it.
	if s.channel != nil {
		s.wireChannel()
		if err := s.channel.Connect(gctx); err != nil {
			cancel()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			s.channel.Disconnect()
			<-s.channel.Done()
			return nil
		})
	}

	g.Go(func() error {
		return s.reconcileLoop(gctx)
	})

	s.Reload()
	s.log.Info("session started", "realtime", s.channel != nil, "reconcile_interval", s.reconcileInterval)
	return nil
}

// wireChannel routes pushed events into the store and mirrors the channel state on the
// snapshot.
func (s *Session) wireChannel() {
	types := append([]contracts.MessageType{}, contracts.ContactMessageTypes...)
	types = append(types, contracts.MessageAnalyticsUpdated, contracts.MessageSystemNotification)
	for _, t := range types {
		s.channel.Subscribe(t, func(ev contracts.Event) {
			s.store.ApplyRemoteMutation(ev)
		})
	}

	s.channel.OnStateChange(func(state realtime.State, err error) {
		s.store.SetRealtimeStatus(RealtimeState(state), err)

		s.mu.Lock()
		reload := false
		switch state {
		case realtime.StateReconnecting:
			s.reconnecting = true
		case realtime.StateConnected:
			reload = s.reconnecting
			s.reconnecting = false
		}
		s.mu.Unlock()

		if reload {
			s.log.Info("realtime reconnected, reloading collection")
			s.Reload()
		}
	})
}

// RealtimeState maps a channel state onto the snapshot's realtime status.
func RealtimeState(state realtime.State) string {
	switch state {
	case realtime.StateConnecting:
		return collection.RealtimeConnecting
	case realtime.StateConnected:
		return collection.RealtimeConnected
	case realtime.StateReconnecting:
		return collection.RealtimeReconnecting
	case realtime.StateClosed:
		return collection.RealtimeClosed
	default:
		return collection.RealtimeOff
	}
}

// Reload requests a full reload. Requests made while one is pending are coalesced.
func (s *Session) Reload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Load reloads the collection synchronously.
func (s *Session) Load(ctx context.Context) collection.LoadResult {
	return s.store.Load(ctx)
}

// RunBulk applies action to the current selection.
func (s *Session) RunBulk(ctx context.Context, action contracts.BulkAction, opts bulk.Options) (bulk.Report, error) {
	return s.bulk.Run(ctx, action, opts)
}

func (s *Session) reconcileLoop(ctx context.Context) error {
	var tick <-chan time.Time
	if s.reconcileInterval > 0 {
		ticker := time.NewTicker(s.reconcileInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.reload:
			s.load(ctx, "requested")
		case <-tick:
			s.load(ctx, "reconcile")
		}
	}
}

func (s *Session) load(ctx context.Context, reason string) {
	res := s.store.Load(ctx)
	switch {
	case res.Superseded:
		s.log.Debug("load superseded", "reason", reason, "token", res.Token)
	case res.Err != nil:
		if ctx.Err() == nil {
			s.log.Warn("load failed", "reason", reason, "error", res.Err)
		}
	default:
		s.log.Debug("load finished", "reason", reason, "count", res.Count)
	}
}

// Wait blocks until the session goroutines exit.
func (s *Session) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Close stops the session and releases the contact backend. It is safe to call more than
// once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		} else if s.channel != nil {
			s.channel.Disconnect()
		}
		err := s.Wait()
		s.closeErr = errors.Join(err, s.api.Close())
		s.log.Info("session closed")
	})
	return s.closeErr
}
