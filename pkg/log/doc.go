/*
Package log provides structured logging for Paddock using zerolog.

One global logger is initialized at process start; components derive child
loggers carrying stable fields (component, cluster, member, operation) so
every event can be filtered by where it came from and what it was doing.

# Architecture

	┌────────────────────────────────────────────────┐
	│                log.Init(Config)                │
	│       level + JSON/console + destination       │
	└───────────────────────┬────────────────────────┘
	                        │ global Logger
	        ┌───────────────┼────────────────┐
	        ▼               ▼                ▼
	 WithComponent    WithCluster       WithMember
	 ("lifecycle")    ("postgresql")    ("postgresql-2")
	        │               │                │
	        └───────────────┴────────────────┘
	              child zerolog.Logger values

# Usage Examples

Initialize once in main:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component loggers:

	logger := log.WithComponent("patroni")
	logger.Info().Str("endpoint", "/cluster").Msg("topology fetched")

	logger = log.WithMember("postgresql-2")
	logger.Warn().Int("attempt", 4).Msg("switchover rejected, retrying")

Errors travel as fields, not formatted into the message:

	logger.Error().Err(err).Msg("config reload failed")

# Credential Safety

Nothing in this package redacts; redaction is the job of types.Secret,
which formats as a placeholder through every zerolog path. Log call sites
never call Reveal.

# Output Modes

  - JSONOutput true: one JSON object per line, for collectors
  - JSONOutput false: zerolog ConsoleWriter with RFC3339 timestamps, for
    interactive use

The default destination is stderr so CLI output on stdout stays
machine-readable.

# See Also

  - pkg/types - Secret redaction guarantees
  - cmd/paddock - flag wiring for level and format
*/
package log
