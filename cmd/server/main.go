package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tabslayer/tabslayer-server/internal/api"
	"github.com/tabslayer/tabslayer-server/internal/config"
	"github.com/tabslayer/tabslayer-server/internal/core"
	"github.com/tabslayer/tabslayer-server/internal/events"
	"github.com/tabslayer/tabslayer-server/internal/logger"
	"github.com/tabslayer/tabslayer-server/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cmd := &cli.Command{
		Name:   "tabslayer",
		Usage:  "Link vault with AI annotation and a chat that finds your saved links",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional YAML config file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:      "import",
				Usage:     "Add every URL listed in a file to the vault, then exit",
				ArgsUsage: "<file>",
				Action:    importLinks,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tabslayer: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything both commands need.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	kv       store.KV
	llm      *core.LLMService
	broker   *events.Broker
	vault    *core.VaultService
	settings *core.SettingsService
}

func setup(ctx context.Context, cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	log.Info("configuration loaded",
		logger.String("address", cfg.Address()),
		logger.String("storage", cfg.Storage.Backend),
		logger.String("model", cfg.GeminiModel),
	)

	kv, err := store.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	llm, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	p := store.NewPersistence(kv)
	broker := events.NewBroker()

	return &app{
		cfg:      cfg,
		log:      log,
		kv:       kv,
		llm:      llm,
		broker:   broker,
		vault:    core.NewVaultService(ctx, p, llm, broker, log),
		settings: core.NewSettingsService(ctx, p, broker, log),
	}, nil
}

func (a *app) close() {
	a.broker.Close()
	a.llm.Close()
	if err := a.kv.Close(); err != nil {
		a.log.Error("failed to close storage", logger.Error(err))
	}
	_ = a.log.Sync()
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	chat := core.NewChatService(a.vault, a.llm, a.broker, a.log)
	handler := api.NewAPIHandler(a.vault, chat, a.settings, a.log)
	router := api.NewRouter(handler, a.broker, a.cfg.CORSOrigins, a.log)

	srv := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the event stream stays open and model calls can be slow.
		IdleTimeout: 120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("starting server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.log.Info("shutting down server", logger.Int("event_clients", a.broker.ClientCount()))

		// Event streams only end when the broker closes.
		a.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("server exited gracefully")
	return nil
}

func importLinks(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("import needs a file argument")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	a.log.Info("starting import", logger.String("file", path))
	n, err := core.ImportFile(ctx, a.vault, path, a.cfg.ImportDelay, a.log)
	if err != nil {
		return fmt.Errorf("import stopped after %d links: %w", n, err)
	}
	a.log.Info("import complete", logger.Int("links", n))
	return nil
}
