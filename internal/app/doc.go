// Package app assembles the pipeline and runs it.
//
// NewApplication loads nothing itself: it takes a validated config, builds the
// logger and OpenTelemetry providers, then registers the pipeline steps in
// order (workspace, acquire, materialize, extract, normalize, snapshot,
// publish) on an operations.Manager.
//
// Two modes are supported:
//
//	RunOnce   one run bounded by timing.run_timeout, used by the CLI
//	Serve     a cron schedule plus the HTTP surface (/healthz, /status, /metrics)
//
// In scheduled mode a trigger that fires while a run is active is skipped and
// counted in pipeline_runs_skipped_total. Cancelling the Serve context stops
// the scheduler, cancels the active run and waits up to
// scheduler.shutdown_timeout for its teardown.
//
// Errors are returned to the caller; main maps them to exit codes with
// errors.ExitCode.
package app
