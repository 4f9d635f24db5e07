/*
Package raftadmin drives the raft membership cluster that backs leader
election, through the syncobj admin command-line tool.

The HA manager stores its consensus state in a raft cluster that spans
every unit on port 2222. Scale-down is the dangerous direction: a departed
unit that is never removed from the raft membership keeps counting toward
quorum, and enough of those strand the cluster without a promotable
leader. This package exists for that removal path.

# Architecture

	┌────────────┐   exec    ┌───────────────┐   tcp :2222   ┌──────────────┐
	│   Client    ├──────────►│ syncobj_admin ├──────────────►│ raft cluster │
	│             │           │  -status      │               │  (all units) │
	│ Status      │           │  -remove      │               └──────────────┘
	│ RemoveMember│           └───────────────┘
	└────────────┘

# Core Components

Client shells out to the admin tool against the local admin channel
(127.0.0.1:2222 by default). Commands run under a per-command timeout and
a scriptable Runner so tests never spawn processes.

Status returns the raw membership listing. It is the gate for every
mutation: when it cannot be read, the operation aborts rather than acting
on a guessed membership.

RemoveMember drops a departed unit's raft endpoint. Hosts already absent
from the status output are treated as removed, so the call is idempotent
and safe to retry.

# Design Notes

The admin tool does not use its exit code to signal command failure. A
removal is only trusted when the output carries the SUCCESS marker;
anything else becomes a RemoveMemberError carrying the address and the
raw output for the operator.

# Usage

	client := raftadmin.NewClient()
	if err := client.RemoveMember(ctx, "10.0.0.5"); err != nil {
		var rerr *raftadmin.RemoveMemberError
		if errors.As(err, &rerr) {
			fmt.Println(rerr.Output)
		}
	}

# See Also

  - pkg/patroni: HTTP client for the HA manager that owns this raft cluster
  - pkg/lifecycle: orchestrates removal during scale-down
*/
package raftadmin
