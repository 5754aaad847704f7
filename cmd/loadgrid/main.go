// Command loadgrid runs the load-generation coordinator.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"loadgrid/internal/authn"
	"loadgrid/internal/certs"
	"loadgrid/internal/configstore"
	"loadgrid/internal/coordinator"
	"loadgrid/internal/logging"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filter := logging.NewLevelFilter(baseHandler, slog.LevelInfo)
	logger := slog.New(filter)

	rootCmd := &cobra.Command{
		Use:   "loadgrid",
		Short: "Distributed load-generation coordinator",
	}
	rootCmd.PersistentFlags().String("config", "", "path to the configuration file (default: ./loadgrid.json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = "loadgrid.json"
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return run(ctx, logger, filter, configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, filter *logging.LevelFilter, configPath string) error {
	store := configstore.NewFileStore(configPath)

	cfg, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("no configuration found at %q; create one before starting", configPath)
	}

	if cfg.ForcedLogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.ForcedLogLevel)); err != nil {
			logger.Warn("ignoring invalid forced log level", "value", cfg.ForcedLogLevel, "error", err)
		} else {
			filter.SetLevel("coordinator", lvl)
		}
	}

	validator, err := buildValidator(cfg)
	if err != nil {
		return fmt.Errorf("build authn validator: %w", err)
	}

	tlsConfigs, err := buildTLSConfigs(logger, cfg)
	if err != nil {
		return fmt.Errorf("load TLS certificates: %w", err)
	}

	coord, err := coordinator.New(ctx, coordinator.Options{
		Store:     store,
		Validator: validator,
		Scheduler: newImmediateScheduler(logger),
		TLS:       tlsConfigs,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("construct coordinator: %w", err)
	}

	logger.Info("starting loadgrid", "version", version, "config", configPath)
	return coord.Run(ctx)
}

// buildValidator constructs the configured authentication scheme. An
// empty AuthScheme leaves validator nil: the listeners then refuse any
// hello that carries credentials, and accept a hello without
// credentials only while RequireAuth is false.
func buildValidator(cfg *configstore.Config) (authn.Validator, error) {
	switch cfg.AuthScheme {
	case "", "none":
		return nil, nil
	case "simple":
		// A production deployment populates this table from the config
		// store rather than starting empty; an empty table simply
		// rejects every credential until entries are added.
		return authn.NewStaticValidator(nil), nil
	default:
		return nil, fmt.Errorf("unknown auth scheme %q", cfg.AuthScheme)
	}
}

func buildTLSConfigs(logger *slog.Logger, cfg *configstore.Config) (map[string]*tls.Config, error) {
	mgr := certs.New(logger)
	sources := map[string]certs.Source{}
	for name, lc := range map[string]configstore.ListenerConfig{
		"load":    cfg.LoadListener,
		"monitor": cfg.MonitorListener,
		"stat":    cfg.StatListener,
		"manager": cfg.ManagerListener,
	} {
		if lc.CertFile == "" || lc.KeyFile == "" {
			continue
		}
		sources[name] = certs.Source{CertFile: lc.CertFile, KeyFile: lc.KeyFile}
	}
	if len(sources) == 0 {
		return nil, nil
	}
	if err := mgr.Load(sources); err != nil {
		return nil, err
	}

	out := make(map[string]*tls.Config, len(sources))
	for name := range sources {
		out[name] = mgr.TLSConfig(name)
	}
	return out, nil
}
