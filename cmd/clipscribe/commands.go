package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/phrazzld/clipscribe/internal/config"
	"github.com/phrazzld/clipscribe/internal/platform/logger"
	"github.com/phrazzld/clipscribe/internal/platform/postgres"
	"github.com/phrazzld/clipscribe/internal/service/auth"
	"github.com/urfave/cli/v3"
)

// DefaultTokenSubject names the client a token is issued to when none is given.
const DefaultTokenSubject = "desktop"

var errDatabaseNotConfigured = errors.New("database.url is not set")

// commonFlags are accepted by every subcommand.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML configuration file",
			Sources: cli.EnvVars("CLIPSCRIBE_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "environment file loaded before the configuration",
			Value: ".env",
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "clipscribe",
		Usage: "background job server for video text extraction, rewriting and downloads",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP API and the job queue",
				Flags:  commonFlags(),
				Action: serveAction,
			},
			{
				Name:      "migrate",
				Usage:     "run history database migrations",
				ArgsUsage: "[up|down|status|version|reset]",
				Flags:     commonFlags(),
				Action:    migrateAction,
			},
			{
				Name:  "token",
				Usage: "issue an API bearer token",
				Flags: append(commonFlags(), &cli.StringFlag{
					Name:  "subject",
					Usage: "client the token is issued to",
					Value: DefaultTokenSubject,
				}),
				Action: tokenAction,
			},
		},
	}
}

// loadConfig loads the env file and configuration named by cmd's flags and
// sets up the process logger.
func loadConfig(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	if envFile := cmd.String("env"); envFile != "" {
		if err := config.LoadEnvFile(envFile); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_concurrent", cfg.TaskQueue.MaxConcurrent,
		"admission", cfg.TaskQueue.Admission,
		"database_configured", cfg.Database.URL != "",
		"auth_enabled", cfg.Auth.JWTSecret != "")

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if err := config.WatchLimits(cmd.String("config"), app.limits, log); err != nil {
		log.Warn("config file will not be watched for limit changes", "error", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}
	return app.serve(ctx, ln)
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	command := cmd.Args().First()
	if command == "" {
		command = postgres.MigrateUp
	}

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errDatabaseNotConfigured
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database connection", "error", closeErr)
		}
	}()

	return postgres.Migrate(ctx, db, command, log)
}

func tokenAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set; the API runs without authentication")
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	subject := cmd.String("subject")
	token, expiresAt, err := tokens.Issue(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	log.Info("api token issued", "subject", subject, "expires_at", expiresAt)
	_, err = fmt.Fprintf(cmd.Root().Writer, "%s\nexpires %s\n", token, expiresAt.Format(time.RFC3339))
	return err
}
