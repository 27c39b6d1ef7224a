// Package config loads clipscribe settings from defaults, an optional YAML
// file, a .env file and CLIPSCRIBE_-prefixed environment variables, and
// validates them before any component is built. It also owns the live
// concurrency limit that the job queue reads on every scheduling pass.
package config
