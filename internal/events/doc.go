// Package events carries job lifecycle notifications from the job queue to
// whoever is interested in them.
//
// The queue emits a JobEvent whenever a job is submitted, starts, reports
// progress, finishes, is retried or removed. Handlers registered on the
// InMemoryEventEmitter receive every event: the LogHandler writes them to the
// structured log and the Buffer keeps a bounded, sequence-numbered history
// the UI polls to show completion and failure notices.
package events
