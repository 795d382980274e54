// Package notifications pushes terminal task states to ntfy.
//
// The service degrades to a no-op when no topic is configured, so workflow
// code can call it unconditionally. Delivery failures are the caller's to
// log; they never affect task state.
package notifications
