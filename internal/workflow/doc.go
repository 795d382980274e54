// Package workflow coordinates task processing across the pipeline stages.
//
// The Manager runs a fixed pool of workers. Each worker claims the oldest
// claimable task with an atomic status transition, then drives it through
// every remaining stage to a terminal state before picking up the next
// task. Claims are compare-and-set updates in SQLite, so multiple workers
// (or multiple daemons sharing a database) never double-process a task.
package workflow
