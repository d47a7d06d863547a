// Package reconcile applies asynchronous provider events back onto campaign,
// send-row, analytics, and contact state.
//
// The reconciler runs fully independently of any dispatch: it is invoked once
// per inbound webhook event (or drained queue message), resolves the event to
// a send row by provider message id, and applies row-scoped updates. Every
// write is safe to apply more than once — providers redeliver webhooks, and a
// redelivered event must be a no-op. Campaign open/click counters are derived
// from analytics row cardinality, never incremented per event.
package reconcile
