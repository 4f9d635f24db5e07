/*
Package render writes the per-unit configuration the HA manager runs
from: its YAML config file, the database engine parameter fragment it
includes, and the systemd unit that supervises it.

Rendering is a pure function of the cluster spec. The same spec always
produces byte-identical files (peers are sorted before rendering), and
every write re-asserts mode and ownership, so a drifted or hand-edited
file heals on the next render.

# Architecture

	                ┌──────────────────────────────────────────────┐
	 ClusterSpec ──►│ Renderer                                     │
	                │                                              │
	                │ RenderHAConfig ──► <storage>/patroni.yml     │
	                │ RenderEngineConfig                           │
	                │     ──► <storage>/conf.d/postgresql-         │
	                │              operator.conf                   │
	                │ RenderSupervisorUnit                         │
	                │     ──► /etc/systemd/system/patroni.service  │
	                └──────────────────────────────────────────────┘

# Core Components

Renderer carries the injectable host edges: the chown to the engine
user, the command runner behind version detection, and the unit file
path. Tests run it entirely inside a temp directory.

RenderHAConfig builds a typed struct tree and marshals it with yaml.v3,
never string concatenation. asReplica omits the bootstrap section so a
joining unit clones from the leader instead of initializing a fresh
cluster. Credentials leave their Secret wrappers only while the tree is
built; the rendered file is the single place plaintext exists.

RenderEngineConfig emits the parameter fragment the manager hands the
engine. synchronous_commit is on exactly when more than one unit is
planned.

DetectEngineVersion reads the installed engine package version and trims
the distribution revision; the major version selects the engine's data
and binary directories.

# Error Handling

Filesystem and ownership failures return *Error carrying the operation,
the path, and the cause. Renders are never retried: a broken filesystem
needs an operator.

# See Also

  - pkg/lifecycle: sequences renders with systemd reloads and restarts
  - pkg/systemd: reloads and starts the rendered unit
  - pkg/types: the ClusterSpec and Secret inputs
*/
package render
