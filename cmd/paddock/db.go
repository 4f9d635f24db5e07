package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/paddock/pkg/patroni"
	"github.com/cuemby/paddock/pkg/pgsql"
	"github.com/cuemby/paddock/pkg/types"
)

// Database commands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Administer databases and roles on the primary",
	Long: `Run administrative SQL against the cluster's primary.

The primary is resolved through the HA manager unless --host pins one.
Credentials come from files so they never show up in process listings:

  paddock db create-database orders --owner app --password-file /run/secrets/operator
  paddock db create-user app --user-password-file /run/secrets/app --password-file /run/secrets/operator`,
}

// readSecretFile loads a credential from a file, trimming the trailing
// newline editors and secret mounts leave behind.
func readSecretFile(path string) (types.Secret, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %v", err)
	}
	secret := types.Secret(strings.TrimSpace(string(data)))
	if secret.IsZero() {
		return "", fmt.Errorf("password file %s is empty", path)
	}
	return secret, nil
}

// buildAdmin resolves the primary host and constructs the SQL admin
// from the db group's flags.
func buildAdmin(cmd *cobra.Command) (*pgsql.Admin, string, error) {
	adminUser, _ := cmd.Flags().GetString("admin-user")
	passwordFile, _ := cmd.Flags().GetString("password-file")
	host, _ := cmd.Flags().GetString("host")
	haHost, _ := cmd.Flags().GetString("ha-host")

	password, err := readSecretFile(passwordFile)
	if err != nil {
		return nil, "", err
	}

	if host == "" {
		client := patroni.NewClient(haHost)
		ctx := context.Background()

		leader, err := client.GetLeader(ctx, false)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve primary: %v", err)
		}
		host, err = client.GetMemberAddress(ctx, leader)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve primary address: %v", err)
		}
	}

	return pgsql.NewAdmin(adminUser, password), host, nil
}

var dbCreateDatabaseCmd = &cobra.Command{
	Use:   "create-database NAME",
	Short: "Create a database and grant it to an owner role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database := args[0]
		owner, _ := cmd.Flags().GetString("owner")

		admin, host, err := buildAdmin(cmd)
		if err != nil {
			return err
		}

		if err := admin.CreateDatabase(context.Background(), host, database, owner); err != nil {
			return fmt.Errorf("failed to create database: %v", err)
		}

		fmt.Printf("✓ Database ensured: %s (owner: %s)\n", database, owner)
		return nil
	},
}

var dbCreateUserCmd = &cobra.Command{
	Use:   "create-user NAME",
	Short: "Create a role, or rotate its password when it exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		userPasswordFile, _ := cmd.Flags().GetString("user-password-file")
		superuser, _ := cmd.Flags().GetBool("superuser")

		userPassword, err := readSecretFile(userPasswordFile)
		if err != nil {
			return err
		}

		admin, host, err := buildAdmin(cmd)
		if err != nil {
			return err
		}

		if err := admin.CreateUser(context.Background(), host, username, userPassword, superuser); err != nil {
			return fmt.Errorf("failed to create user: %v", err)
		}

		fmt.Printf("✓ User ensured: %s\n", username)
		return nil
	},
}

var dbDeleteUserCmd = &cobra.Command{
	Use:   "delete-user NAME",
	Short: "Drop a role after reassigning everything it owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		admin, host, err := buildAdmin(cmd)
		if err != nil {
			return err
		}

		if err := admin.DeleteUser(context.Background(), host, username); err != nil {
			return fmt.Errorf("failed to delete user: %v", err)
		}

		fmt.Printf("✓ User deleted: %s\n", username)
		return nil
	},
}

var dbListUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List the cluster's roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, host, err := buildAdmin(cmd)
		if err != nil {
			return err
		}

		users, err := admin.ListUsers(context.Background(), host)
		if err != nil {
			return fmt.Errorf("failed to list users: %v", err)
		}

		for _, user := range users {
			fmt.Println(user)
		}
		return nil
	},
}

var dbVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version the primary reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, host, err := buildAdmin(cmd)
		if err != nil {
			return err
		}

		version, err := admin.Version(context.Background(), host)
		if err != nil {
			return fmt.Errorf("failed to get version: %v", err)
		}

		fmt.Println(version)
		return nil
	},
}

func init() {
	dbCmd.PersistentFlags().String("admin-user", "operator", "Role administrative SQL runs as")
	dbCmd.PersistentFlags().String("password-file", "", "File holding the admin role's password (required)")
	dbCmd.PersistentFlags().String("host", "", "Primary host (resolved through the HA manager when empty)")
	_ = dbCmd.MarkPersistentFlagRequired("password-file")

	dbCreateDatabaseCmd.Flags().String("owner", "operator", "Role granted all privileges on the database")

	dbCreateUserCmd.Flags().String("user-password-file", "", "File holding the new role's password (required)")
	dbCreateUserCmd.Flags().Bool("superuser", false, "Grant the role superuser")
	_ = dbCreateUserCmd.MarkFlagRequired("user-password-file")

	dbCmd.AddCommand(dbCreateDatabaseCmd)
	dbCmd.AddCommand(dbCreateUserCmd)
	dbCmd.AddCommand(dbDeleteUserCmd)
	dbCmd.AddCommand(dbListUsersCmd)
	dbCmd.AddCommand(dbVersionCmd)

	rootCmd.AddCommand(dbCmd)
}
