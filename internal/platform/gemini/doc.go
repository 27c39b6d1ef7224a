// Package gemini provides a generation.Backend that sends rewrite prompts to
// Google's Gemini API through the google.golang.org/genai client.
//
// Transient API failures are retried with exponential backoff and jitter.
// Responses blocked by safety filters or carrying no text are permanent
// failures and are returned immediately.
package gemini
