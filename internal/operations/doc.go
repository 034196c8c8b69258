// Package operations runs a pipeline of steps for one sync run.
//
// Core Components:
//
// Manager: executes the registered steps strictly in order. The first failing
// step aborts the run and the remaining steps are marked skipped. There are
// no retries. A step may halt the run early without error, which completes
// the run as empty.
//
// Step: a single unit of work. Steps exchange values through the
// OperationState context and register cleanups on it.
//
// Registry: keeps the steps in registration order and rejects duplicates.
//
// State: tracks the run and each step (status, timing, error).
//
// Cleanups registered by steps run in reverse order once the run ends,
// whatever its outcome, on a context that is no longer cancelled.
//
// Usage:
//
//	manager := operations.NewManager(logger, tracer)
//	manager.RegisterStage(operations.NewWorkspaceStep(paths))
//	manager.RegisterStage(operations.NewAcquireStep(newSequencer, paths.DownloadDir))
//	resp, err := manager.Execute(ctx, operations.RunRequest{Trigger: "cli"})
package operations
