// Package api serves the job queue over HTTP. It translates requests into
// queue, history and settings operations, validates input with
// go-playground/validator and maps internal errors to status codes without
// leaking their details.
package api
