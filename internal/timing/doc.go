// Package timing implements the frame-synchronized timer scheduler.
//
// # Overview
//
// Callers register timers (one-shot or repeating) under opaque ids. Once per
// external tick the scheduler scans its registry, advances repeating timers,
// and hands the ids that came due to a consumer sink as a single batch. The
// consumer is expected to do its own fine-grained timing downstream; the only
// contract here is "due by this tick".
//
// # Scheduling model
//
// Everything runs on one serialized lane (a single goroutine). CreateTimer,
// DeleteTimer, lifecycle signals, and ticks are all marshaled onto that lane,
// so the registry needs no locking and a delete marshaled after a create for
// the same id is guaranteed to observe it. No operation on the lane blocks;
// a tick evaluation is bounded by the number of live timers.
//
// # Activation
//
// The scheduler only subscribes to the tick source while it has timers and a
// valid context. It unsubscribes the moment the registry empties, when a
// suspend-class lifecycle signal arrives, and permanently on Invalidate.
//
// # Degenerate timers
//
// A zero-duration non-repeating timer never enters the registry: its id is
// handed to the sink's immediate-fire path synchronously from CreateTimer.
package timing
