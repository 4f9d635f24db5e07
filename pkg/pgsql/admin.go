package pgsql

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/cuemby/paddock/pkg/log"
	"github.com/cuemby/paddock/pkg/types"
)

const (
	// enginePort is the database engine's listen port.
	enginePort = 5432

	// maintenanceDatabase is the database administrative connections
	// target when no other database is involved.
	maintenanceDatabase = "postgres"
)

// Admin runs administrative SQL against the cluster's primary. Every
// operation opens a short-lived connection to the host it is given: the
// primary moves during switchovers, so holding a pool against one
// address would go stale.
type Admin struct {
	username string
	password types.Secret
	database string
	logger   zerolog.Logger
}

// NewAdmin creates an admin that authenticates as the given role.
func NewAdmin(username string, password types.Secret) *Admin {
	return &Admin{
		username: username,
		password: password,
		database: maintenanceDatabase,
		logger:   log.WithComponent("pgsql"),
	}
}

// WithDatabase changes the maintenance database.
func (a *Admin) WithDatabase(database string) *Admin {
	a.database = database
	return a
}

// CreateDatabase creates the database when missing and grants the owner
// role all privileges on it. Safe to repeat.
func (a *Admin) CreateDatabase(ctx context.Context, host, database, owner string) error {
	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", database).Scan(&exists)
	if err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}

	if !exists {
		if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{database}.Sanitize()); err != nil {
			return fmt.Errorf("create database %s: %w", database, err)
		}
	}
	if _, err := conn.Exec(ctx, grantDatabaseSQL(database, owner)); err != nil {
		return fmt.Errorf("grant on database %s: %w", database, err)
	}

	a.logger.Info().Str("database", database).Str("owner", owner).Msg("database ensured")
	return nil
}

// CreateUser creates the role, or updates it when it already exists, so
// credential rotation and creation are the same call.
func (a *Admin) CreateUser(ctx context.Context, host, username string, password types.Secret, superuser bool) error {
	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", username).Scan(&exists)
	if err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}

	if _, err := conn.Exec(ctx, createUserSQL(username, password.Reveal(), superuser, exists)); err != nil {
		return fmt.Errorf("create user %s: %w", username, err)
	}

	a.logger.Info().Str("user", username).Bool("superuser", superuser).Msg("user ensured")
	return nil
}

// UpdateUserPassword rotates a role's password.
func (a *Admin) UpdateUserPassword(ctx context.Context, host, username string, password types.Secret) error {
	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return fmt.Errorf("update password for %s: %w", username, err)
	}
	defer conn.Close(ctx)

	sql := fmt.Sprintf("ALTER ROLE %s WITH ENCRYPTED PASSWORD %s",
		pgx.Identifier{username}.Sanitize(), quoteLiteral(password.Reveal()))
	if _, err := conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("update password for %s: %w", username, err)
	}
	return nil
}

// DeleteUser drops a role. Ownership must be handed off in every
// database first; DROP ROLE fails while the role still owns anything
// anywhere, so each database gets a REASSIGN OWNED and DROP OWNED pass.
func (a *Admin) DeleteUser(ctx context.Context, host, username string) error {
	databases, err := a.listDatabases(ctx, host)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	for _, database := range databases {
		if err := a.dropOwned(ctx, host, database, username); err != nil {
			return fmt.Errorf("delete user %s: %w", username, err)
		}
	}

	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "DROP ROLE IF EXISTS "+pgx.Identifier{username}.Sanitize()); err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	a.logger.Info().Str("user", username).Msg("user deleted")
	return nil
}

// ListUsers returns the role names known to the cluster.
func (a *Admin) ListUsers(ctx context.Context, host string) ([]string, error) {
	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT usename FROM pg_catalog.pg_user")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Version returns the engine version as reported by the server.
func (a *Admin) Version(ctx context.Context, host string) (string, error) {
	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	defer conn.Close(ctx)

	var raw string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&raw); err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	return parseServerVersion(raw)
}

func (a *Admin) listDatabases(ctx context.Context, host string) ([]string, error) {
	conn, err := a.connect(ctx, host, a.database)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT datname FROM pg_database WHERE NOT datistemplate")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list databases: %w", err)
		}
		databases = append(databases, name)
	}
	return databases, rows.Err()
}

func (a *Admin) dropOwned(ctx context.Context, host, database, username string) error {
	conn, err := a.connect(ctx, host, database)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	owner := pgx.Identifier{username}.Sanitize()
	heir := pgx.Identifier{a.username}.Sanitize()

	if _, err := conn.Exec(ctx, fmt.Sprintf("REASSIGN OWNED BY %s TO %s", owner, heir)); err != nil {
		return fmt.Errorf("reassign owned in %s: %w", database, err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("DROP OWNED BY %s", owner)); err != nil {
		return fmt.Errorf("drop owned in %s: %w", database, err)
	}
	return nil
}

func (a *Admin) connect(ctx context.Context, host, database string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, a.dsn(host, database))
	if err != nil {
		// The DSN never appears in errors or logs: it embeds the password.
		return nil, fmt.Errorf("connect to %s database %s: %w", host, database, err)
	}
	return conn, nil
}

// dsn builds the connection URL. url.URL handles the escaping, so
// passwords with reserved characters survive.
func (a *Admin) dsn(host, database string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(a.username, a.password.Reveal()),
		Host:     net.JoinHostPort(host, strconv.Itoa(enginePort)),
		Path:     "/" + database,
		RawQuery: "connect_timeout=10",
	}
	return u.String()
}

// createUserSQL builds the role statement. Role DDL cannot take bind
// parameters, so the password is inlined as a quoted literal.
func createUserSQL(username, password string, superuser, exists bool) string {
	verb := "CREATE"
	if exists {
		verb = "ALTER"
	}
	options := "LOGIN"
	if superuser {
		options += " SUPERUSER"
	}
	return fmt.Sprintf("%s ROLE %s WITH %s ENCRYPTED PASSWORD %s",
		verb, pgx.Identifier{username}.Sanitize(), options, quoteLiteral(password))
}

func grantDatabaseSQL(database, owner string) string {
	return fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s",
		pgx.Identifier{database}.Sanitize(), pgx.Identifier{owner}.Sanitize())
}

// quoteLiteral escapes a string literal for inlining into DDL.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// parseServerVersion extracts the version number from a "PostgreSQL
// 14.9 (Ubuntu ...) on x86_64..." banner.
func parseServerVersion(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected version banner %q", raw)
	}
	return fields[1], nil
}
