package main

import (
	"context"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fdg312/run-coach/internal/coach"
	"github.com/fdg312/run-coach/internal/config"
	"github.com/fdg312/run-coach/internal/snapshot"
	"github.com/fdg312/run-coach/internal/storage"
	"github.com/fdg312/run-coach/internal/storage/memory"
	"github.com/fdg312/run-coach/internal/storage/postgres"
)

type options struct {
	url      string
	token    string
	owner    string
	timeout  int
	runsFile string
	verbose  bool
}

// app holds everything a subcommand needs.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    storage.Storage
	health   *snapshot.Provider
	dialogue *coach.Dialogue
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "coach",
		Short:         "Talk to the running coach from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", "", "coaching service endpoint (default $COACH_SERVICE_URL)")
	flags.StringVar(&opts.token, "token", "", "bearer token (default $COACH_API_TOKEN)")
	flags.StringVar(&opts.owner, "owner", "", "owner of the local runs (default $COACH_OWNER_USER_ID)")
	flags.IntVar(&opts.timeout, "timeout", 0, "request timeout in seconds (default $COACH_TIMEOUT_SECONDS)")
	flags.StringVar(&opts.runsFile, "runs", "", "JSON file with runs to load into memory before starting")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newChatCmd(opts), newAskCmd(opts), newImportCmd(opts))
	return root
}

// setup resolves config and flags into a ready dialogue.
func setup(ctx context.Context, opts *options) (*app, error) {
	cfg := config.Load()
	applyOverrides(cfg, opts)

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger.SetLevel(lvl)
	}
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	store := openStorage(ctx, cfg, logger)

	health := snapshot.NewProvider(store, cfg.Coach.OwnerUserID).
		WithCache(cfg.Coach.CacheSize, time.Duration(cfg.Coach.CacheTTLSecs)*time.Second)

	if opts.runsFile != "" {
		runs, err := loadRunsFile(opts.runsFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		imported, skipped := importRuns(ctx, health, runs, cfg.Coach.OwnerUserID, logger)
		logger.WithFields(logrus.Fields{"file": opts.runsFile, "imported": imported, "skipped": skipped}).Debug("runs loaded")
	}

	client := coach.NewClient(cfg.Coach.ServiceURL).
		WithTimeout(time.Duration(cfg.Coach.TimeoutSeconds) * time.Second).
		WithToken(cfg.Coach.APIToken).
		WithLocation(health.Location())

	logger.WithFields(logrus.Fields{
		"endpoint": client.Endpoint(),
		"owner":    cfg.Coach.OwnerUserID,
		"timeout":  cfg.Coach.TimeoutSeconds,
	}).Debug("coach client ready")

	dialogue := coach.NewDialogue(nil, client, health).WithLogger(logger)

	return &app{cfg: cfg, log: logger, store: store, health: health, dialogue: dialogue}, nil
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.url != "" {
		cfg.Coach.ServiceURL = opts.url
	}
	if opts.token != "" {
		cfg.Coach.APIToken = opts.token
	}
	if opts.owner != "" {
		cfg.Coach.OwnerUserID = opts.owner
	}
	if opts.timeout > 0 {
		cfg.Coach.TimeoutSeconds = opts.timeout
	}
}

// openStorage uses Postgres when DATABASE_URL is set, falling back to memory.
func openStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) storage.Storage {
	if cfg.DatabaseURL == "" {
		logger.Debug("using in-memory run storage")
		return memory.New()
	}

	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Warn("postgres unavailable, falling back to in-memory storage")
		return memory.New()
	}
	logger.Debug("using postgres run storage")
	return pg
}

func (a *app) Close() {
	a.dialogue.Wait()
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("close storage")
	}
}
