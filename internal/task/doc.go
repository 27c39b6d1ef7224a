// Package task runs clipscribe's background jobs. The Queue owns the ordered
// job list and the running count, admits queued jobs up to a live
// concurrency limit, and dispatches each admitted job to the Executor
// registered for its kind. Executors reach transcription, rewriting,
// downloading and history storage only through the narrow capability
// interfaces declared in this package.
package task
