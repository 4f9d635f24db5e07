/*
Package systemd controls the service units that supervise the database
engine's HA manager on each unit.

The HA manager runs as a systemd service rendered by pkg/render. This
package covers the small slice of systemctl the lifecycle operations
need: reloading unit definitions after a render, starting and restarting
the service, and probing whether it is active.

# Core Components

Service wraps one named unit. Commands run through a scriptable Runner
under a per-command timeout, so tests never touch the host's service
manager and a wedged one cannot stall an operation forever.

# Design Notes

systemctl is-active reports state through both its output and its exit
code, and exits non-zero for inactive units. IsActive trusts the printed
state when there is one and only surfaces an error when the query itself
produced nothing.

# Usage

	svc := systemd.NewService("patroni")
	if err := svc.DaemonReload(ctx); err != nil {
		return err
	}
	if err := svc.Restart(ctx); err != nil {
		return err
	}

# See Also

  - pkg/render: writes the unit file this package reloads and starts
  - pkg/lifecycle: sequences render, reload, and restart
*/
package systemd
