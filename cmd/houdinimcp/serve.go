package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nscrdesigns/houdini-mcp/internal/hostcmds"
	"github.com/nscrdesigns/houdini-mcp/pkg/dispatch"
	"github.com/nscrdesigns/houdini-mcp/pkg/listener"
	"github.com/nscrdesigns/houdini-mcp/pkg/log"
	"github.com/nscrdesigns/houdini-mcp/pkg/metrics"
	"github.com/nscrdesigns/houdini-mcp/pkg/registry"
	"github.com/nscrdesigns/houdini-mcp/plugins/registrysweep"
	"github.com/nscrdesigns/houdini-mcp/plugins/registrywatch"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a host instance until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	f := cmd.Flags()
	f.IntVar(&a.cfg.Port, "port", a.cfg.Port, "explicit port (0 scans the port range)")
	f.IntVar(&a.cfg.PortRangeStart, "port-start", a.cfg.PortRangeStart, "first port of the automatic range")
	f.IntVar(&a.cfg.PortRangeEnd, "port-end", a.cfg.PortRangeEnd, "last port of the automatic range")
	f.DurationVar(&a.cfg.PollInterval, "poll", a.cfg.PollInterval, "accept and idle read poll interval")
	f.DurationVar(&a.cfg.MessageTimeout, "message-timeout", a.cfg.MessageTimeout, "time allowed for a request once it has started")
	f.DurationVar(&a.cfg.WriteTimeout, "write-timeout", a.cfg.WriteTimeout, "time allowed to write a response")
	f.DurationVar(&a.cfg.ShutdownTimeout, "shutdown-timeout", a.cfg.ShutdownTimeout, "time allowed for a graceful stop")
	f.StringVar(&a.cfg.HipFile, "hip-file", a.cfg.HipFile, "scene file path to advertise")
	f.StringVar(&a.cfg.HipName, "hip-name", a.cfg.HipName, "scene name to advertise")
	f.StringVar(&a.cfg.AppVersion, "app-version", a.cfg.AppVersion, "application version to advertise")
	f.StringVar(&a.cfg.MetricsAddr, "metrics-addr", a.cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")
	f.DurationVar(&a.cfg.SweepInterval, "sweep-interval", a.cfg.SweepInterval, "stale descriptor sweep interval (0 disables)")
	f.BoolVar(&a.cfg.WatchPeers, "watch-peers", a.cfg.WatchPeers, "log other instances as they start and stop")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	m := metrics.New(nil)

	store := registry.NewStore(a.cfg.RegistryDir,
		registry.WithLogger(a.logger),
		registry.WithObserver(m),
	)

	table := dispatch.NewTable(dispatch.WithLogger(a.logger), dispatch.WithObserver(m))
	if err := hostcmds.Register(table, hostcmds.Info{
		HipFile:    a.cfg.HipFile,
		HipName:    a.cfg.HipName,
		AppVersion: a.cfg.AppVersion,
		StartedAt:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	opts := []listener.Option{
		listener.WithLogger(a.logger),
		listener.WithEventHandler(m),
		listener.WithObserver(m),
	}
	if a.cfg.SweepInterval > 0 {
		opts = append(opts, registrysweep.WithRegistrySweep(registrysweep.Config{
			Interval:   a.cfg.SweepInterval,
			RestoreOwn: true,
		}))
	}
	if a.cfg.WatchPeers {
		opts = append(opts, registrywatch.WithRegistryWatch(registrywatch.DefaultConfig()))
	}

	l, err := listener.New(a.cfg.ListenerConfig(), table, store, opts...)
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}

	if a.cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.cfg.MetricsAddr, m, a.logger); err != nil {
				a.logger.Error("metrics server failed", log.Err(err))
			}
		}()
	}

	if err := l.Start(ctx); err != nil {
		return fmt.Errorf("start listener: %w", err)
	}
	a.logger.Info("serving",
		log.Port(l.Port()),
		log.String("registry", store.Dir()),
		log.Int("commands", len(table.Commands())),
	)

	<-ctx.Done()
	a.logger.Info("received signal, stopping...")

	if err := l.Stop(); err != nil {
		return fmt.Errorf("stop listener: %w", err)
	}
	return nil
}
