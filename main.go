package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/customeros/maildigest/config"
	"github.com/customeros/maildigest/internal/cron"
	"github.com/customeros/maildigest/internal/database"
	"github.com/customeros/maildigest/internal/logger"
	"github.com/customeros/maildigest/internal/repository"
	"github.com/customeros/maildigest/internal/tracing"
	"github.com/customeros/maildigest/server"
	"github.com/customeros/maildigest/services"
	"github.com/customeros/maildigest/services/gmail"
)

func main() {
	app := &cli.App{
		Name:  "maildigest",
		Usage: "Summarize unread email with an LLM and file the results",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP API (and the poller when POLL_ENABLED is set)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "poll", Usage: "also run the mailbox poller"},
				},
				Action: runServer,
			},
			{
				Name:   "poll",
				Usage:  "Run the mailbox poller until interrupted",
				Action: runPoller,
			},
			{
				Name:  "fetch",
				Usage: "Run one poll cycle and print the outcomes",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max", Aliases: []string{"n"}, Usage: "maximum messages to fetch"},
				},
				Action: runFetch,
			},
			{
				Name:   "authorize",
				Usage:  "Run the Gmail consent flow and store the token",
				Action: runAuthorize,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is empty")
	}
	return cfg, nil
}

// openDatabase returns nil when the archive is not configured.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.DatabaseConfig.Enabled() {
		return nil, nil
	}
	db, err := database.NewConnection(cfg.DatabaseConfig)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	return db, nil
}

func newLogger(cfg *config.Config) logger.Logger {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	return appLogger
}

// startTracing registers the Jaeger tracer so poller spans are reported the
// same way as the server's.
func startTracing(cfg *config.Config, appLogger logger.Logger) (io.Closer, error) {
	_, closer, err := tracing.InitGlobalTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize jaeger tracer: %w", err)
	}
	return closer, nil
}

func newServices(cfg *config.Config, log logger.Logger) (*services.Services, error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	var repos *repository.Repositories
	if db != nil {
		repos = repository.InitRepositories(db)
	}
	return services.InitServices(cfg, log, repos)
}

func runServer(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Bool("poll") {
		cfg.PollerConfig.Enabled = true
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Maildigest starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	log.Println("Shutdown complete")
	return nil
}

func runPoller(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	closer, err := startTracing(cfg, appLogger)
	if err != nil {
		return err
	}
	defer closer.Close()

	svcs, err := newServices(cfg, appLogger)
	if err != nil {
		return err
	}
	defer svcs.Close()

	poller := cron.NewPoller(cfg.PollerConfig, appLogger, svcs.PipelineService, svcs.MessageSource)
	if err := poller.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	appLogger.Info("Stopping poller, waiting for the running cycle...")
	poller.Stop()
	appLogger.Info("Poller stopped")
	return nil
}

func runFetch(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if n := c.Int("max"); n > 0 {
		cfg.PollerConfig.MaxResults = n
	}
	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	closer, err := startTracing(cfg, appLogger)
	if err != nil {
		return err
	}
	defer closer.Close()

	svcs, err := newServices(cfg, appLogger)
	if err != nil {
		return err
	}
	defer svcs.Close()

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	poller := cron.NewPoller(cfg.PollerConfig, appLogger, svcs.PipelineService, svcs.MessageSource)
	outcomes, err := poller.RunOnce(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}

func runAuthorize(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	oauthConfig, err := gmail.LoadOAuthConfig(cfg.GmailConfig)
	if err != nil {
		return err
	}
	store, err := gmail.NewKeyringTokenStore(cfg.GmailConfig)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	token, err := gmail.Authorize(ctx, oauthConfig, cfg.GmailConfig.RedirectPort, appLogger)
	if err != nil {
		return err
	}
	if err := store.Save(token); err != nil {
		return err
	}
	appLogger.Info("Gmail token stored")
	return nil
}

func runMigrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.DatabaseConfig.Enabled() {
		return fmt.Errorf("POSTGRES_HOST is not set, nothing to migrate")
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if err := repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("Database migration completed successfully")
	return nil
}
