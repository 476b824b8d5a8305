// Package history provides an append-only audit trail of scheduler activity:
// timer creation/deletion, per-tick fire batches, immediate fires, and
// suspend/resume transitions.
//
// It is observability only. Nothing here is ever read back into the
// scheduler; timers do not survive a restart.
package history
