/*
Package pgsql runs administrative SQL against the cluster's primary:
database and role creation, password rotation, role teardown, and
version queries.

# Architecture

	┌───────────┐   per-call pgx.Connect   ┌──────────────────┐
	│   Admin   │ ───────────────────────▶ │ primary :5432    │
	│           │                          │ (moves on        │
	└───────────┘                          │  switchover)     │
	                                       └──────────────────┘

Connections are short-lived on purpose. The primary address is an input
to every call rather than state on the Admin, because a switchover can
move it between any two operations; callers resolve the current primary
first and pass it in.

Identifiers are sanitized with pgx.Identifier and string literals are
quote-escaped before inlining, since role DDL does not accept bind
parameters. Connection URLs embed the revealed password and therefore
never appear in errors or logs.

DeleteUser walks every database and runs REASSIGN OWNED / DROP OWNED
before dropping the role; the drop fails while the role owns anything
in any database.
*/
package pgsql
