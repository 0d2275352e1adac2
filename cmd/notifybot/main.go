// Command notifybot wraps one shell command and notifies a Telegram chat of
// its start and completion, keeping a per-chat history of sent notifications
// so they can be bulk-retracted later with /clearchat.
//
// Usage:
//
//	notifybot [flags] -- <command> [args...]
//	notifybot --use-postgres -- python train.py
//	notifybot --db-path notifications.db -- make test
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-notify-bot/internal/bot"
	"github.com/tbourn/go-notify-bot/internal/config"
	"github.com/tbourn/go-notify-bot/internal/repo"
	"github.com/tbourn/go-notify-bot/internal/runner"
	"github.com/tbourn/go-notify-bot/internal/services"
	"github.com/tbourn/go-notify-bot/internal/sysutil"
)

// rootOptions holds the flags of the root command.
type rootOptions struct {
	UsePostgres bool
	DBPath      string
	ConfPath    string
	LogLevel    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "notifybot [flags] -- <command> [args...]",
		Short: "Notify a Telegram chat about wrapped shell command completion",
		Long: `notifybot runs a shell command, sends start and completion notifications
to a Telegram chat, and records every sent notification so the /clearchat
bot command can bulk-delete them later. /stats reports usage aggregates.

The wrapped command and its arguments follow "--" verbatim; the wrapper
never consumes downstream flags.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.UsePostgres, "use-postgres", false, "use PostgreSQL instead of SQLite")
	cmd.Flags().StringVar(&opts.DBPath, "db-path", "", "SQLite database file (ignored with --use-postgres)")
	cmd.Flags().StringVar(&opts.ConfPath, "conf", "conf.json", "path to the persisted configuration file")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	return cmd
}

func run(opts *rootOptions, argv []string) error {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(opts.ConfPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(sysutil.ParseLogLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	if cfg.LegacyStoragePath != "" {
		log.Warn().Str("storage_path", cfg.LegacyStoragePath).
			Msg("STORAGE_PATH is the legacy JSON-history setting and is ignored")
	}
	if opts.UsePostgres && opts.DBPath != "" {
		log.Warn().Msg("db-path will be ignored since precedence is given to PostgreSQL")
	}

	storeOpts := repo.Options{Backend: repo.BackendSQLite, SQLitePath: opts.DBPath}
	if opts.UsePostgres {
		if err := cfg.ValidatePostgres(); err != nil {
			return err
		}
		storeOpts = repo.Options{
			Backend: repo.BackendPostgres,
			Postgres: repo.PostgresConfig{
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				DBName:   cfg.Postgres.DBName,
			},
		}
	}

	db, err := repo.Open(storeOpts)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	store := repo.NewNotificationStore(db)

	transport, err := bot.NewTelegram(cfg.BotToken, log)
	if err != nil {
		return err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	dispatcher := services.NewDispatcher(transport, store, hostname, runtime.GOOS, log)
	retractor := services.NewRetractor(transport, store, log)
	router := bot.NewRouter(transport, retractor, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve /start, /clearchat, and /stats while the wrapped command runs
	// and for the alive period afterwards.
	served := make(chan struct{})
	go func() {
		defer close(served)
		router.Serve(ctx, transport)
	}()

	r := runner.New(dispatcher, cfg.ChatID, hostname, cfg.LogPath, log)
	res, runErr := r.Run(ctx, argv)
	if runErr != nil {
		log.Error().Err(runErr).Msg("wrapped command could not be started")
	} else {
		log.Info().
			Int("exit_code", res.ExitCode).
			Str("status", string(res.Status)).
			Str("elapsed", runner.FormatDuration(res.Elapsed)).
			Msg("wrapped command finished")
	}

	liveness := &bot.Liveness{Out: os.Stdout, Period: cfg.AlivePeriod}
	liveness.Run(ctx)

	stop()
	<-served
	return runErr
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
