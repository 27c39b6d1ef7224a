package generation

import "strings"

// SystemPrompt frames every rewrite call.
const SystemPrompt = "You are a professional copywriting assistant who rewrites video " +
	"transcripts in different styles. Output only the rewritten text, " +
	"without explanations or prefixes."

// FallbackStyle is used when a style has no prompt.
const FallbackStyle = "professional"

// DefaultPrompts maps rewrite styles to their instruction prompts.
var DefaultPrompts = map[string]string{
	"professional": "Rewrite the following transcript in a professional, well-structured tone " +
		"suitable for a business audience. Keep every key fact.",
	"normal": "Clean up the following transcript into fluent, natural prose. Fix " +
		"recognition errors and punctuation but keep the speaker's voice.",
	"humorous": "Rewrite the following transcript in a light, humorous tone while keeping " +
		"the original meaning.",
	"concise": "Condense the following transcript into a short, clear summary that keeps " +
		"only the essential points.",
	"story": "Retell the following transcript as an engaging narrative with a clear " +
		"beginning, middle and end.",
}

// Prompts resolves style prompts, preferring configured overrides.
type Prompts struct {
	overrides map[string]string
}

// NewPrompts creates a Prompts with the given overrides. Blank overrides are ignored.
func NewPrompts(overrides map[string]string) *Prompts {
	clean := make(map[string]string, len(overrides))
	for style, prompt := range overrides {
		if strings.TrimSpace(prompt) != "" {
			clean[style] = prompt
		}
	}
	return &Prompts{overrides: clean}
}

// For returns the prompt for style: the override, then the built-in prompt,
// then the professional prompt.
func (p *Prompts) For(style string) string {
	if p != nil {
		if prompt, ok := p.overrides[style]; ok {
			return prompt
		}
	}
	if prompt, ok := DefaultPrompts[style]; ok {
		return prompt
	}
	if p != nil {
		if prompt, ok := p.overrides[FallbackStyle]; ok {
			return prompt
		}
	}
	return DefaultPrompts[FallbackStyle]
}

// Build returns the user message for one rewrite: the style prompt, any
// extra requirements, then the text.
func (p *Prompts) Build(style, extra, text string) string {
	prompt := p.For(style)
	if extra = strings.TrimSpace(extra); extra != "" {
		prompt += "\n\nExtra requirements: " + extra
	}
	return prompt + "\n\n" + text
}
