// Package coordinator implements the process lifecycle (C8): startup
// ordering, read-only mode, shutdown fan-out with explicit drain
// points, and the admin-facing query contract (spec §4.8, §6).
package coordinator

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"loadgrid/internal/authn"
	"loadgrid/internal/configstore"
	"loadgrid/internal/housekeep"
	"loadgrid/internal/job"
	"loadgrid/internal/jobclass"
	"loadgrid/internal/logging"
	"loadgrid/internal/manager"
	"loadgrid/internal/monitor"
	"loadgrid/internal/stats"

	"loadgrid/internal/loadpool"
)

// Scheduler is the out-of-core-scope policy owner every listener
// ultimately reports completions to and consults for job-existence
// checks (spec §1 "The core of this specification is the connection &
// dispatch fabric" — scheduling policy itself is not; spec §4.6
// register-stat "if the job is not known to the scheduler").
type Scheduler interface {
	JobCompleted(job.Completion)
	JobKnown(job.ID) bool
	// Start begins scheduling; Stop drains in-flight dispatch work
	// (spec §4.8 shutdown step 2, "stop the scheduler; wait for it to
	// drain").
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Coordinator owns every listener, the stat store, the client-manager
// registry, and the scheduler, and sequences their startup and
// shutdown per spec §4.8.
type Coordinator struct {
	cfg    *configstore.Config
	store  configstore.Store
	logger *slog.Logger

	classes   *jobclass.FileProvider
	validator authn.Validator

	managerReg *manager.Registry
	loadPool   *loadpool.Pool
	monitorReg *monitor.Registry
	statListen *stats.Listener
	scheduler  Scheduler
	keeper     *housekeep.Keeper

	readOnly bool
}

// Options supplies everything New needs beyond what configstore.Config
// already carries declaratively.
type Options struct {
	Store     configstore.Store
	Validator authn.Validator
	Scheduler Scheduler
	TLS       map[string]*tls.Config // listener name -> TLS config, nil entries mean plaintext
	Logger    *slog.Logger
}

// New loads configuration and constructs every component in the
// documented order: configuration store -> job-class catalog -> logger
// -> C7, C4, C5, C6 (spec §4.8). It does not start accepting
// connections; call Run for that.
func New(ctx context.Context, opts Options) (*Coordinator, error) {
	cfg, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("coordinator: load config: %w", err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("coordinator: no configuration found")
	}

	logger := logging.Default(opts.Logger).With("component", "coordinator")

	c := &Coordinator{
		cfg:       cfg,
		store:     opts.Store,
		logger:    logger,
		validator: opts.Validator,
		scheduler: opts.Scheduler,
		readOnly:  cfg.ReadOnly,
	}

	if cfg.JobClassRoot != "" {
		classes, err := jobclass.NewFileProvider(cfg.JobClassRoot)
		if err != nil {
			return nil, fmt.Errorf("coordinator: job-class catalog: %w", err)
		}
		c.classes = classes
	}

	if c.readOnly {
		logger.Info("starting in read-only mode: no listeners or scheduler")
		return c, nil
	}

	c.managerReg = manager.New(manager.Options{
		Addr:        cfg.ManagerListener.Addr,
		TLSConfig:   opts.TLS["manager"],
		Validator:   opts.Validator,
		RequireAuth: cfg.RequireAuth,
		Logger:      logger,
	})

	// A typed-nil *jobclass.FileProvider boxed into the Provider
	// interface would be a non-nil interface whose methods panic on
	// call, so only assign it when a catalog was actually configured.
	var classes jobclass.Provider
	if c.classes != nil {
		classes = c.classes
	}

	c.loadPool = loadpool.New(loadpool.Options{
		Addr:         cfg.LoadListener.Addr,
		TLSConfig:    opts.TLS["load"],
		MaxClients:   cfg.MaxLoadClients,
		Validator:    opts.Validator,
		RequireAuth:  cfg.RequireAuth,
		Classes:      classes,
		Notifier:     opts.Scheduler,
		OnClientLost: c.managerReg.NotifyClientLost,
		Logger:       logger,
	})

	c.monitorReg = monitor.New(monitor.Options{
		Addr:        cfg.MonitorListener.Addr,
		TLSConfig:   opts.TLS["monitor"],
		Validator:   opts.Validator,
		RequireAuth: cfg.RequireAuth,
		Notifier:    opts.Scheduler,
		Logger:      logger,
	})

	c.statListen = stats.New(stats.Options{
		Addr:                  cfg.StatListener.Addr,
		TLSConfig:             opts.TLS["stat"],
		Validator:             opts.Validator,
		RequireAuth:           cfg.RequireAuth,
		RequireUniqueClientID: true,
		JobKnown:              opts.Scheduler.JobKnown,
		Logger:                logger,
	})

	keeper, err := housekeep.New(housekeep.Options{
		StatStore: c.statListen.Store(),
		Sizes: []housekeep.SizeSource{
			{Name: "load", Size: func() int { return len(c.loadPool.Snapshot()) }},
			{Name: "monitor", Size: func() int { return len(c.monitorReg.Snapshot()) }},
			{Name: "stat", Size: func() int { return len(c.statListen.Snapshot()) }},
			{Name: "manager", Size: func() int { return len(c.managerReg.Snapshot()) }},
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("coordinator: housekeep: %w", err)
	}
	c.keeper = keeper

	return c, nil
}

// Run starts every configured listener and the scheduler, then blocks
// until ctx is cancelled, at which point it runs the documented
// shutdown sequence (spec §4.8).
func (c *Coordinator) Run(ctx context.Context) error {
	if c.readOnly {
		<-ctx.Done()
		return c.store.Save(context.Background(), c.cfg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.managerReg.Serve(gctx) })
	g.Go(func() error { return c.loadPool.Serve(gctx) })
	g.Go(func() error { return c.monitorReg.Serve(gctx) })
	g.Go(func() error { return c.statListen.Serve(gctx) })

	if err := c.scheduler.Start(gctx); err != nil {
		return fmt.Errorf("coordinator: start scheduler: %w", err)
	}
	c.keeper.Start()

	<-ctx.Done()
	return c.shutdown(g)
}

// shutdown implements spec §4.8's reverse-order sequence with explicit
// drain points.
func (c *Coordinator) shutdown(g *errgroup.Group) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Stop accepting (listener Shutdown calls close the socket and
	// also drain + notify every live session, which covers step 4 too).
	if err := c.managerReg.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("manager shutdown error", "error", err)
	}
	if err := c.loadPool.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("load pool shutdown error", "error", err)
	}
	if err := c.monitorReg.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("monitor registry shutdown error", "error", err)
	}
	if err := c.statListen.Shutdown(shutdownCtx); err != nil {
		c.logger.Warn("stat listener shutdown error", "error", err)
	}

	// 2. Stop the scheduler; wait for it to drain.
	if err := c.scheduler.Stop(shutdownCtx); err != nil {
		c.logger.Warn("scheduler stop error", "error", err)
	}
	if err := c.keeper.Stop(); err != nil {
		c.logger.Warn("housekeeper stop error", "error", err)
	}

	// 3. Close the configuration store.
	if err := c.store.Save(context.Background(), c.cfg); err != nil {
		c.logger.Warn("config store save on shutdown failed", "error", err)
	}

	// 5. Wait for each listener's accept loop to signal it has
	// stopped.
	if err := g.Wait(); err != nil {
		c.logger.Warn("listener accept loop error", "error", err)
	}

	// 6. Logging in this codebase is synchronous (slog handlers write
	// inline), so there is no buffer to flush.
	return nil
}
