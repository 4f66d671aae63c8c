// Package daemon coordinates the long-running micro-lesson process.
//
// It wires configuration, queue storage, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes queue maintenance helpers and reports external
// dependency availability alongside workflow status.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
