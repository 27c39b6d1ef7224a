package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/phrazzld/clipscribe/internal/task"
)

// Backend completes one chat exchange with a language model.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, system, user string) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// Router implements task.Rewriter by building the prompt for a request and
// sending it to the backend registered under the request's model name.
type Router struct {
	backends     map[string]Backend
	defaultModel string
	prompts      *Prompts
	logger       *slog.Logger
}

var _ task.Rewriter = (*Router)(nil)

// NewRouter creates a Router. Requests without a model use defaultModel.
func NewRouter(backends map[string]Backend, defaultModel string, prompts *Prompts, logger *slog.Logger) *Router {
	if prompts == nil {
		prompts = NewPrompts(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	copied := make(map[string]Backend, len(backends))
	for name, b := range backends {
		if b != nil {
			copied[name] = b
		}
	}
	return &Router{
		backends:     copied,
		defaultModel: defaultModel,
		prompts:      prompts,
		logger:       logger.With("component", "rewrite_router"),
	}
}

// Models returns the names of the configured models, sorted.
func (r *Router) Models() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rewrite implements task.Rewriter.
func (r *Router) Rewrite(ctx context.Context, req task.RewriteRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyInput
	}

	model := req.Model
	if model == "" {
		model = r.defaultModel
	}
	backend, ok := r.backends[model]
	if !ok {
		return "", fmt.Errorf("%w: model %s is not configured", ErrModelNotConfigured, model)
	}

	r.logger.Debug("rewriting text",
		"model", model,
		"style", req.Style,
		"text_length", len(req.Text))

	out, err := backend.Complete(ctx, SystemPrompt, r.prompts.Build(req.Style, req.ExtraInstructions, req.Text))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResult
	}
	return out, nil
}
