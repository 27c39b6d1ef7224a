// Package domain contains the core entities of the job core: the job record
// with its lifecycle state machine, the media metadata snapshot a job carries,
// and the history record jobs write their results into. It has no dependency
// on any infrastructure or delivery mechanism.
package domain
