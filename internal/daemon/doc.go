// Package daemon coordinates the long-running booksumd worker process.
//
// It wires configuration, the job store, the broker, and the workflow manager
// into a single lifecycle with flock-based locking so only one worker with a
// given name runs against a data directory. While running, the daemon stamps
// liveness, refreshes broker backlog gauges, and serves /metrics and /healthz.
//
// Keep orchestration logic here: stage behaviour lives in the pipeline and
// workflow packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
