/*
Package types defines the core data structures used throughout Paddock.

This package contains the fundamental types that represent Paddock's domain
model: the cluster specification passed in by the orchestration layer, the
topology rows reported by the HA manager, the observed lifecycle state of
the local unit, and the credential wrapper that keeps passwords out of logs.
Every other package consumes these types; none of them import anything else
from this repository.

# Architecture

The types package is the foundation of Paddock's data model:

	┌──────────────────────────────────────────────────────┐
	│                 Orchestration Layer                   │
	│        (builds a ClusterSpec per lifecycle event)     │
	└──────────────────────┬───────────────────────────────┘
	                       │ ClusterSpec
	                       ▼
	┌──────────────────────────────────────────────────────┐
	│                  pkg/lifecycle                        │
	│   renders config, drives the HA manager, observes    │
	└───────┬──────────────────────────────┬───────────────┘
	        │ ClusterMember (topology)     │ NodeState
	        ▼                              ▼
	   pkg/patroni                    CLI / monitor

All types are designed to be:
  - Serializable (JSON and YAML, with redaction where it matters)
  - Plain data (no behavior beyond small derivations)
  - Validated before use (struct tags + Validate())

# Core Types

Cluster input:
  - ClusterSpec: one configuration request — identity, peers, planned unit
    count, credentials, storage path
  - Secret: credential wrapper; redacts on every output path

Topology:
  - ClusterMember: one member row as the HA manager reports it
  - MemberRole: leader, replica, sync_standby
  - MemberState: running, starting, restarting, stopped, crashed

Observation:
  - NodeState: unconfigured → configuring → starting → ready-replica /
    ready-leader → removed
  - OperationRecord / OperationOutcome: journal entries for completed
    lifecycle operations

# Usage Examples

Building and validating a spec:

	spec := &types.ClusterSpec{
		ClusterName:         "postgresql",
		MemberName:          "postgresql-0",
		SelfAddress:         "10.0.0.5",
		PeerAddresses:       []string{"10.0.0.6", "10.0.0.7"},
		PlannedUnitCount:    3,
		SuperuserPassword:   types.Secret("s3cr3t"),
		ReplicationPassword: types.Secret("r3plic4"),
		StoragePath:         "/var/lib/postgresql/data",
	}

	if err := spec.Validate(); err != nil {
		return err
	}

	if spec.SyncReplication() {
		// plannedUnits > 1: synchronous_commit will render as "on"
	}

Decoding a spec from a YAML file (the CLI path):

	data, err := os.ReadFile("cluster.yaml")
	if err != nil {
		return err
	}

	var spec types.ClusterSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return err
	}

Credentials never leak through formatting:

	fmt.Printf("%v %s %#v\n", spec.SuperuserPassword,
		spec.SuperuserPassword, spec.SuperuserPassword)
	// Output:
	// **REDACTED** **REDACTED** types.Secret(**REDACTED**)

	out, _ := json.Marshal(spec)
	// superuserPassword is "**REDACTED**" in out

	pw := spec.SuperuserPassword.Reveal() // the only plaintext path

Working with topology rows:

	for _, m := range members {
		if m.IsLeader() && m.State == types.StateRunning {
			// healthy primary
		}
	}

# Validation Rules

ClusterSpec.Validate enforces:

  - ClusterName, MemberName, StoragePath, both passwords: required
  - SelfAddress: IP or hostname
  - PeerAddresses: each an IP or hostname, self excluded
  - PlannedUnitCount: at least 1, and never below the known member count

Validation failures name every offending field in one error so the
orchestration layer can fix a spec in a single round trip.

# Design Patterns

## Spec As Value

A ClusterSpec describes one desired configuration at one point in time.
Operations never store it; re-running an operation with the same spec is
idempotent by construction because nothing accumulates between calls.

## Redact By Default

Secret implements fmt.Stringer, fmt.GoStringer, json.Marshaler and
yaml.Marshaler to return a fixed placeholder. Input decoding stays plain so
spec files remain ordinary YAML. The single escape hatch, Reveal, makes
every plaintext use grep-able.

## Observed, Not Stored

NodeState is computed from collaborator answers whenever someone asks.
There is no state file to drift from reality.

# See Also

  - pkg/lifecycle - consumes ClusterSpec, produces NodeState
  - pkg/patroni - produces ClusterMember rows
  - pkg/render - turns a ClusterSpec into files on disk
*/
package types
