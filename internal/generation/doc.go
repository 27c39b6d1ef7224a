// Package generation turns rewrite requests into prompts and routes them to
// the configured language model backends. Backends themselves (Gemini and
// OpenAI-compatible chat APIs) live under internal/platform.
package generation
