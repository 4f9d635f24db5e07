package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/paddock/pkg/types"
)

// loadClusterSpec reads and validates a cluster spec YAML file.
func loadClusterSpec(filename string) (*types.ClusterSpec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}

	var spec types.ClusterSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %v", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// specFileFlag attaches the shared -f flag to a spec-driven command.
func specFileFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Cluster spec YAML file (required)")
	_ = cmd.MarkFlagRequired("file")
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Configure this unit and start the HA manager",
	Long: `Configure this unit from a cluster spec and start the HA manager's
service.

Examples:
  # First unit of a fresh cluster
  paddock bootstrap -f cluster.yaml

  # A unit joining an existing cluster
  paddock bootstrap -f cluster.yaml --replica`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")
		asReplica, _ := cmd.Flags().GetBool("replica")

		spec, err := loadClusterSpec(filename)
		if err != nil {
			return err
		}

		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Printf("Bootstrapping cluster '%s' on member '%s'...\n", spec.ClusterName, spec.MemberName)

		active, err := ctrl.BootstrapCluster(context.Background(), spec, asReplica)
		if err != nil {
			return fmt.Errorf("failed to bootstrap cluster: %v", err)
		}
		if !active {
			return fmt.Errorf("service started but is not active yet")
		}

		fmt.Println("✓ Cluster bootstrapped")
		return nil
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Render this unit's configuration without starting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")
		asReplica, _ := cmd.Flags().GetBool("replica")

		spec, err := loadClusterSpec(filename)
		if err != nil {
			return err
		}

		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := ctrl.ConfigureOnUnit(context.Background(), spec, asReplica); err != nil {
			return fmt.Errorf("failed to configure unit: %v", err)
		}

		fmt.Printf("✓ Unit configured: %s\n", spec.MemberName)
		return nil
	},
}

var updateMembersCmd = &cobra.Command{
	Use:   "update-members",
	Short: "Re-render membership and reload the running HA manager",
	Long: `Re-render the HA manager configuration for the spec's current peer
list. A running manager is told to reload; a stopped one is left
stopped and picks the change up on its next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")

		spec, err := loadClusterSpec(filename)
		if err != nil {
			return err
		}

		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := ctrl.UpdateClusterMembers(context.Background(), spec); err != nil {
			return fmt.Errorf("failed to update members: %v", err)
		}

		fmt.Printf("✓ Membership updated (%d peers)\n", len(spec.PeerAddresses))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print this unit's lifecycle state",
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")

		spec, err := loadClusterSpec(filename)
		if err != nil {
			return err
		}

		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		state := ctrl.ObserveState(context.Background(), spec)
		fmt.Println(state)
		return nil
	},
}

func init() {
	specFileFlag(bootstrapCmd)
	bootstrapCmd.Flags().Bool("replica", false, "Join an existing cluster instead of initializing a new one")

	specFileFlag(configureCmd)
	configureCmd.Flags().Bool("replica", false, "Render without bootstrap configuration")

	specFileFlag(updateMembersCmd)
	specFileFlag(statusCmd)

	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(updateMembersCmd)
	rootCmd.AddCommand(statusCmd)
}
