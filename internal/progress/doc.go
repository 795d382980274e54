// Package progress fans task lifecycle events out to live subscribers.
//
// The Hub keeps a per-task subscriber list with bounded backlogs. Publishing
// never blocks: a subscriber that falls behind loses the oldest undelivered
// events rather than stalling the pipeline. There is no replay; subscribers
// see only events published after they attach, and are expected to fetch the
// task record for current state first.
package progress
