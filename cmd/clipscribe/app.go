package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/clipscribe/internal/api"
	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/events"
	"github.com/phrazzld/clipscribe/internal/generation"
	"github.com/phrazzld/clipscribe/internal/history"
	"github.com/phrazzld/clipscribe/internal/platform/gemini"
	"github.com/phrazzld/clipscribe/internal/platform/httpfetch"
	"github.com/phrazzld/clipscribe/internal/platform/localfs"
	"github.com/phrazzld/clipscribe/internal/platform/openai"
	"github.com/phrazzld/clipscribe/internal/platform/parser"
	"github.com/phrazzld/clipscribe/internal/platform/postgres"
	"github.com/phrazzld/clipscribe/internal/service/auth"
	"github.com/phrazzld/clipscribe/internal/store"
	"github.com/phrazzld/clipscribe/internal/task"
	"github.com/spf13/afero"
)

// errTranscriptionNotConfigured is the job error for extractions attempted
// without a speech recognition API key.
var errTranscriptionNotConfigured = errors.New("speech recognition is not configured")

// application holds the shared dependencies of the serve command and
// releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	limits   *config.Limits
	history  store.HistoryStore
	events   *events.Buffer
	rewriter *generation.Router
	storage  *localfs.AudioStorage
	parser   *parser.Client
	tokens   auth.TokenService
	queue    *task.Queue
}

// newApplication builds every component from cfg. Postgres history is used
// when a database URL is configured, memory otherwise.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		limits: config.NewLimits(cfg.TaskQueue.MaxConcurrent),
	}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		app.db = db
		app.history = postgres.NewHistoryStore(db, cfg.History.MaxRecords, logger)
		logger.Info("history stored in postgres")
	} else {
		app.history = history.NewMemoryStore(cfg.History.MaxRecords, logger)
		logger.Info("history stored in memory", "max_records", cfg.History.MaxRecords)
	}

	var err error
	if cfg.Auth.JWTSecret != "" {
		app.tokens, err = auth.NewTokenService(cfg.Auth)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize token service: %w", err)
		}
	} else {
		logger.Warn("auth.jwt_secret is empty; the API is served without authentication")
	}

	app.rewriter, err = newRewriter(ctx, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	transcriber, err := newTranscriber(cfg.Transcription, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	fetcher := httpfetch.New(httpfetch.Options{
		SaveDir:   cfg.Download.SaveDir,
		UserAgent: cfg.Download.UserAgent,
		Timeout:   seconds(cfg.Download.TimeoutSeconds),
	}, logger)
	app.parser = parser.NewClient(cfg.Parser.URL, seconds(cfg.Parser.TimeoutSeconds), nil, logger)
	app.storage = localfs.NewAudioStorage(afero.NewOsFs(), cfg.Storage.AudioDir, logger)

	app.queue, app.events, err = app.newQueue(transcriber, fetcher)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized",
		"rewrite_models", app.rewriter.Models(),
		"default_model", cfg.LLM.DefaultModel)
	return app, nil
}

func (app *application) newQueue(transcriber task.Transcriber, fetcher *httpfetch.Client) (*task.Queue, *events.Buffer, error) {
	cfg := app.config

	extract, err := task.NewExtractExecutor(transcriber, app.history, app.storage, fetcher, app.parser, app.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create extract executor: %w", err)
	}
	rewrite, err := task.NewRewriteExecutor(app.rewriter, app.history, cfg.LLM.DefaultModel, app.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create rewrite executor: %w", err)
	}
	download, err := task.NewDownloadExecutor(fetcher, app.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create download executor: %w", err)
	}

	buffer := events.NewBuffer(cfg.TaskQueue.EventBufferSize)
	emitter := events.NewInMemoryEventEmitter(app.logger)
	emitter.RegisterHandler(events.NewLogHandler(app.logger))
	emitter.RegisterHandler(buffer)

	queue, err := task.NewQueue(
		app.limits,
		map[domain.JobKind]task.Executor{
			domain.JobKindExtract:  extract,
			domain.JobKindRewrite:  rewrite,
			domain.JobKindDownload: download,
		},
		task.QueueConfig{
			RemoveDelay: time.Duration(cfg.TaskQueue.RemoveDelayMillis) * time.Millisecond,
			Admission:   task.Admission(cfg.TaskQueue.Admission),
		},
		emitter,
		app.logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create job queue: %w", err)
	}
	return queue, buffer, nil
}

// newRewriter registers a backend for every LLM with an API key. Models
// without one fail their jobs with "model X is not configured".
func newRewriter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*generation.Router, error) {
	timeout := seconds(cfg.TimeoutSeconds)
	backends := make(map[string]generation.Backend)

	if cfg.Gemini.APIKey != "" {
		backend, err := gemini.NewBackend(ctx, logger, cfg.Gemini, gemini.Options{
			MaxRetries: cfg.MaxRetries,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini backend: %w", err)
		}
		backends["gemini"] = backend
	}

	compatible := map[string]config.OpenAICompatibleLLM{
		"doubao":   cfg.Doubao,
		"deepseek": cfg.DeepSeek,
		"qianwen":  cfg.Qianwen,
	}
	for name, llm := range compatible {
		if llm.APIKey == "" {
			continue
		}
		backend, err := openai.NewChatBackend(name, llm, openai.ChatOptions{
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s backend: %w", name, err)
		}
		backends[name] = backend
	}

	if len(backends) == 0 {
		logger.Warn("no rewrite backend has an API key; rewrite jobs will fail")
	}
	return generation.NewRouter(backends, cfg.DefaultModel, generation.NewPrompts(cfg.Prompts), logger), nil
}

func newTranscriber(cfg config.TranscriptionConfig, logger *slog.Logger) (task.Transcriber, error) {
	if cfg.APIKey == "" {
		logger.Warn("transcription.api_key is empty; extract jobs will fail")
		return unconfiguredTranscriber{}, nil
	}
	transcriber, err := openai.NewTranscriber(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transcriber: %w", err)
	}
	return transcriber, nil
}

type unconfiguredTranscriber struct{}

func (unconfiguredTranscriber) Recognize(context.Context, []byte) (string, error) {
	return "", errTranscriptionNotConfigured
}

// dbChecker reports database reachability on GET /health.
type dbChecker struct{ db *sql.DB }

func (c dbChecker) Health(ctx context.Context) error { return c.db.PingContext(ctx) }

func (app *application) router() http.Handler {
	checks := map[string]api.HealthChecker{"parser": app.parser}
	if app.db != nil {
		checks["database"] = dbChecker{db: app.db}
	}

	return api.NewRouter(api.RouterDeps{
		Queue:   app.queue,
		Limits:  app.limits,
		History: app.history,
		Events:  app.events,
		Audio:   app.storage,
		Tokens:  app.tokens,
		Checks:  checks,
		Logger:  app.logger,
	})
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
		app.db = nil
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
