package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/paddock/pkg/api"
	"github.com/cuemby/paddock/pkg/events"
	"github.com/cuemby/paddock/pkg/journal"
	"github.com/cuemby/paddock/pkg/lifecycle"
	"github.com/cuemby/paddock/pkg/log"
	"github.com/cuemby/paddock/pkg/monitor"
	"github.com/cuemby/paddock/pkg/patroni"
	"github.com/cuemby/paddock/pkg/raftadmin"
	"github.com/cuemby/paddock/pkg/render"
	"github.com/cuemby/paddock/pkg/systemd"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "paddock",
	Short: "Paddock - Cluster lifecycle controller for replicated PostgreSQL",
	Long: `Paddock drives one unit of a replicated PostgreSQL cluster: it renders
the HA manager configuration, supervises the manager's service, observes
the cluster through the manager's API, and edits raft membership when
units leave.

The database itself is owned by the HA manager; paddock only ever talks
to the manager and the service supervisor.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(level),
			JSONOutput: jsonOut,
		})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Paddock version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs instead of console output")
	rootCmd.PersistentFlags().String("ha-host", "localhost", "Host the HA manager API listens on")
	rootCmd.PersistentFlags().String("raft-conn", raftadmin.DefaultConn, "Raft admin endpoint")
	rootCmd.PersistentFlags().String("unit", "patroni", "Supervisor unit name for the HA manager")
	rootCmd.PersistentFlags().String("data-dir", "/var/lib/paddock", "Directory for the operation journal")

	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(raftCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(monitorCmd)
}

// buildController wires the controller from the root connection flags.
// A journal that cannot be opened is logged and left out; history is
// not worth failing an operation over.
func buildController(cmd *cobra.Command) (*lifecycle.Controller, func(), error) {
	haHost, _ := cmd.Flags().GetString("ha-host")
	raftConn, _ := cmd.Flags().GetString("raft-conn")
	unit, _ := cmd.Flags().GetString("unit")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cfg := lifecycle.Config{
		HA:       patroni.NewClient(haHost),
		Raft:     raftadmin.NewClient().WithConn(raftConn),
		Renderer: render.NewRenderer(),
		Service:  systemd.NewService(unit),
	}

	cleanup := func() {}
	if jnl, err := journal.Open(dataDir); err != nil {
		log.Logger.Warn().Err(err).Str("data_dir", dataDir).Msg("operation journal unavailable")
	} else {
		cfg.Journal = jnl
		cleanup = func() { _ = jnl.Close() }
	}

	ctrl, err := lifecycle.NewController(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctrl, cleanup, nil
}

// Cluster commands
var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Inspect and drive the running cluster",
}

var clusterIsReadyCmd = &cobra.Command{
	Use:   "is-ready",
	Short: "Check that every member is running and a leader is elected",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := ctrl.EnsureReady(context.Background()); err != nil {
			return err
		}
		fmt.Println("✓ Cluster is ready")
		return nil
	},
}

var clusterGetPrimaryCmd = &cobra.Command{
	Use:   "get-primary",
	Short: "Print the current primary member",
	RunE: func(cmd *cobra.Command, args []string) error {
		asUnit, _ := cmd.Flags().GetBool("unit-pattern")

		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		primary, err := ctrl.GetPrimary(context.Background(), asUnit)
		if err != nil {
			return err
		}
		fmt.Println(primary)
		return nil
	},
}

var clusterMemberAddressCmd = &cobra.Command{
	Use:   "member-address NAME",
	Short: "Print the address of a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		addr, err := ctrl.MemberAddress(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil
	},
}

var clusterSwitchoverCmd = &cobra.Command{
	Use:   "switchover",
	Short: "Move the primary role off the current leader",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := context.Background()
		before, err := ctrl.GetPrimary(ctx, false)
		if err != nil {
			return err
		}

		fmt.Printf("Requesting switchover away from %s...\n", before)
		if err := ctrl.Switchover(ctx); err != nil {
			return err
		}

		after, err := ctrl.GetPrimary(ctx, false)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Switchover complete: %s -> %s\n", before, after)
		return nil
	},
}

func init() {
	clusterCmd.AddCommand(clusterIsReadyCmd)
	clusterCmd.AddCommand(clusterGetPrimaryCmd)
	clusterCmd.AddCommand(clusterMemberAddressCmd)
	clusterCmd.AddCommand(clusterSwitchoverCmd)

	clusterGetPrimaryCmd.Flags().Bool("unit-pattern", false, "Print the name in unit form (name/N)")
}

// Raft commands
var raftCmd = &cobra.Command{
	Use:   "raft",
	Short: "Manage the HA manager's raft membership",
}

var raftStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the raft member status",
	RunE: func(cmd *cobra.Command, args []string) error {
		raftConn, _ := cmd.Flags().GetString("raft-conn")
		client := raftadmin.NewClient().WithConn(raftConn)

		status, err := client.Status(context.Background())
		if err != nil {
			return err
		}
		fmt.Print(status)
		return nil
	},
}

var raftRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member HOST",
	Short: "Remove a departed unit from the raft cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := ctrl.RemoveRaftMember(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Raft member removed: %s\n", args[0])
		return nil
	},
}

func init() {
	raftCmd.AddCommand(raftStatusCmd)
	raftCmd.AddCommand(raftRemoveMemberCmd)
}

// History command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent lifecycle operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		limit, _ := cmd.Flags().GetInt("limit")

		jnl, err := journal.Open(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open journal: %v", err)
		}
		defer jnl.Close()

		records, err := jnl.Recent(limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No operations recorded yet.")
			return nil
		}

		fmt.Printf("%-27s %-22s %-14s %-10s %s\n", "STARTED", "OPERATION", "MEMBER", "OUTCOME", "DURATION")
		for _, rec := range records {
			line := fmt.Sprintf("%-27s %-22s %-14s %-10s %s",
				rec.StartedAt.Format(time.RFC3339),
				rec.Operation, rec.Member, rec.Outcome, rec.Duration.Round(time.Millisecond))
			if rec.Error != "" {
				line += "  error: " + rec.Error
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of records to show")
}

// Monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the topology monitor and health endpoints",
	Long: `Run the long-lived observation daemon for this unit.

The monitor polls the HA manager's topology, keeps the Prometheus gauges
current, and publishes an event for every transition: leader moved or
lost, readiness flipped, members started or removed. The HTTP server
exposes /health, /ready and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		specFile, _ := cmd.Flags().GetString("file")
		listenAddr, _ := cmd.Flags().GetString("listen")
		interval, _ := cmd.Flags().GetDuration("interval")
		haHost, _ := cmd.Flags().GetString("ha-host")

		spec, err := loadClusterSpec(specFile)
		if err != nil {
			return err
		}

		client := patroni.NewClient(haHost)

		broker := events.NewBroker()
		broker.Start()

		mon, err := monitor.New(monitor.Config{
			Client:   client,
			Broker:   broker,
			Cluster:  spec.ClusterName,
			Member:   spec.MemberName,
			Interval: interval,
		})
		if err != nil {
			return err
		}

		// Log every published transition so the unit's journal tells
		// the cluster's story even with no subscriber attached.
		sub := broker.Subscribe()
		go func() {
			logger := log.WithComponent("events")
			for event := range sub {
				logger.Info().
					Str("type", string(event.Type)).
					Str("cluster", event.Cluster).
					Str("member", event.Member).
					Msg(event.Message)
			}
		}()

		mon.Start()
		fmt.Printf("✓ Monitor started (cluster=%s member=%s interval=%s)\n",
			spec.ClusterName, spec.MemberName, interval)

		healthServer := api.NewHealthServer(client).WithVersion(Version)
		errCh := make(chan error, 1)
		go func() {
			if err := healthServer.Start(listenAddr); err != nil {
				errCh <- fmt.Errorf("health server error: %v", err)
			}
		}()
		fmt.Printf("✓ Health endpoints listening on %s\n", listenAddr)
		fmt.Println()
		fmt.Println("Monitor is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		mon.Stop()
		broker.Unsubscribe(sub)
		broker.Stop()

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringP("file", "f", "", "Cluster spec YAML file (required)")
	monitorCmd.Flags().String("listen", "127.0.0.1:8080", "Address for health and metrics endpoints")
	monitorCmd.Flags().Duration("interval", monitor.DefaultInterval, "Topology observation interval")
	_ = monitorCmd.MarkFlagRequired("file")
}
