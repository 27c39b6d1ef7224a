package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
)

// Rewrite defaults
const (
	// DefaultLocalStyle applies to ad hoc text jobs.
	DefaultLocalStyle = "normal"
	// DefaultStyle applies to jobs rewriting extracted text.
	DefaultStyle = "professional"
	// DefaultModel is used when neither the job nor the executor names one.
	DefaultModel = "doubao"
)

// RewriteExecutor rewrites text with a Rewriter and stores the result in history.
type RewriteExecutor struct {
	rewriter     Rewriter
	history      HistoryStore
	defaultModel string
	logger       *slog.Logger
}

// NewRewriteExecutor creates a RewriteExecutor. An empty defaultModel uses
// DefaultModel.
func NewRewriteExecutor(
	rewriter Rewriter,
	history HistoryStore,
	defaultModel string,
	logger *slog.Logger,
) (*RewriteExecutor, error) {
	if rewriter == nil {
		return nil, ErrNilRewriter
	}
	if history == nil {
		return nil, ErrNilHistory
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	return &RewriteExecutor{
		rewriter:     rewriter,
		history:      history,
		defaultModel: defaultModel,
		logger:       logger.With("component", "rewrite_executor"),
	}, nil
}

// Execute implements Executor.
func (e *RewriteExecutor) Execute(ctx context.Context, job domain.Job, progress Progress) error {
	log := e.logger.With("job_id", job.ID, "job_kind", job.Kind)

	if job.LocalData.IsLocalText() {
		return e.rewriteLocal(ctx, job, progress, log)
	}
	return e.rewriteHistory(ctx, job, log)
}

func (e *RewriteExecutor) rewriteLocal(
	ctx context.Context,
	job domain.Job,
	progress Progress,
	log *slog.Logger,
) error {
	local := job.LocalData
	if strings.TrimSpace(local.OriginalText) == "" {
		return ErrEmptyText
	}

	req := RewriteRequest{
		Text:              local.OriginalText,
		Style:             orDefault(local.Style, DefaultLocalStyle),
		Model:             orDefault(local.Model, e.defaultModel),
		ExtraInstructions: local.CustomPrompt,
	}
	rewritten, err := e.rewriter.Rewrite(ctx, req)
	if err != nil {
		return err
	}

	id, err := e.history.Create(ctx, domain.HistoryFields{
		Title:           domain.Ptr(job.Title),
		Platform:        domain.Ptr(domain.PlatformLocal),
		OriginalText:    domain.Ptr(local.OriginalText),
		RewrittenText:   domain.Ptr(rewritten),
		IsLocal:         domain.Ptr(true),
		LocalType:       domain.Ptr(domain.LocalTypeText),
		LocalSourceType: domain.Ptr(local.LocalSourceType),
	})
	if err != nil {
		return err
	}
	progress.LinkHistory(id)

	log.Info("local text rewritten", "history_id", id, "style", req.Style, "model", req.Model)
	return nil
}

func (e *RewriteExecutor) rewriteHistory(ctx context.Context, job domain.Job, log *slog.Logger) error {
	if job.HistoryID == uuid.Nil {
		return ErrNoSourceText
	}

	record, err := e.history.Find(ctx, job.HistoryID)
	if err != nil {
		if errors.Is(err, domain.ErrHistoryNotFound) {
			return ErrNoSourceText
		}
		return err
	}
	if record.OriginalText == "" {
		return ErrNoSourceText
	}

	req := RewriteRequest{
		Text:  record.OriginalText,
		Style: orDefault(job.Params.RewriteStyle, DefaultStyle),
		Model: orDefault(job.Params.AIModel, e.defaultModel),
	}
	rewritten, err := e.rewriter.Rewrite(ctx, req)
	if err != nil {
		return err
	}

	if err := e.history.Update(ctx, job.HistoryID, domain.HistoryFields{
		RewrittenText: domain.Ptr(rewritten),
	}); err != nil {
		return err
	}

	log.Info("text rewritten", "history_id", job.HistoryID, "style", req.Style, "model", req.Model)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
