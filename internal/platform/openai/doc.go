// Package openai adapts OpenAI-compatible HTTP APIs to the application's
// capabilities: ChatBackend serves rewrite models that speak the chat
// completions protocol (doubao, deepseek, qianwen), and Transcriber sends
// audio to a Whisper-style transcription endpoint.
package openai
