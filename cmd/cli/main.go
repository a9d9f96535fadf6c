package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/carpool/cmd/cli/commands"
	"github.com/jakechorley/carpool/internal/config"
	"github.com/jakechorley/carpool/pkg/cache"
	"github.com/jakechorley/carpool/pkg/clients/gmailclient"
	"github.com/jakechorley/carpool/pkg/clients/smtpclient"
	"github.com/jakechorley/carpool/pkg/db"
	"github.com/jakechorley/carpool/pkg/notify"
	"github.com/jakechorley/carpool/pkg/postgres"
	"github.com/jakechorley/carpool/pkg/utils"
	"github.com/jakechorley/carpool/pkg/utils/logging"
)

// rootFlags are the persistent flags shared by every command
type rootFlags struct {
	env     string
	user    string
	org     string
	staff   bool
	logsDir string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", commands.DescribeError(err))
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	var flags rootFlags
	app := &commands.AppContext{Ctx: ctx}
	var cleanup func()

	rootCmd := &cobra.Command{
		Use:           "carpool",
		Short:         "Carpool CLI - Offer rides and assign seats for activities",
		Long:          `A CLI tool for drivers, guardians and staff to manage carpool offers and seat assignments for activities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cleanup, err = initApp(app, flags, cmd.Name())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cleanup != nil {
				cleanup()
			}
		},
	}

	// Add persistent environment and caller flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.env, "env", "e", "", "Environment (required: test, prod, etc.)")
	pf.StringVarP(&flags.user, "user", "u", "", "User ID to act as")
	pf.StringVarP(&flags.org, "org", "o", "", "Organization ID to act in")
	pf.BoolVar(&flags.staff, "staff", false, "Act with staff privileges")
	pf.StringVar(&flags.logsDir, "logs-dir", "logs", "Directory for JSON log files (empty disables file logging)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show debug logs on the console")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.CreateOfferCmd(app))
	rootCmd.AddCommand(commands.UpdateOfferCmd(app))
	rootCmd.AddCommand(commands.CancelOfferCmd(app))
	rootCmd.AddCommand(commands.AssignCmd(app))
	rootCmd.AddCommand(commands.RemoveAssignmentCmd(app))
	rootCmd.AddCommand(commands.ListOffersCmd(app))
	rootCmd.AddCommand(commands.GetOfferCmd(app))
	rootCmd.AddCommand(commands.MyOffersCmd(app))
	rootCmd.AddCommand(commands.UnassignedCmd(app))
	rootCmd.AddCommand(commands.AuditCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	return rootCmd
}

// initApp sets up logger, config, database, cache and notifications.
// The returned cleanup flushes pending notifications and closes connections.
func initApp(app *commands.AppContext, flags rootFlags, cmdName string) (func(), error) {
	var err error

	// Required flags are only checked by cobra after PersistentPreRunE
	if flags.env == "" {
		return nil, errors.New(`required flag(s) "env" not set`)
	}
	if cmdName != "migrate" && (flags.user == "" || flags.org == "") {
		return nil, errors.New("--user and --org are required")
	}
	app.Caller = db.Caller{UserID: flags.user, OrganizationID: flags.org, IsStaff: flags.staff}

	// Initialize logger
	app.Logger, err = logging.InitLogger(flags.env, logging.Options{Dir: flags.logsDir, Verbose: flags.verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Debug("Starting application",
		zap.String("user", flags.user),
		zap.String("org", flags.org),
		zap.Bool("staff", flags.staff))

	// Load configuration
	app.Cfg, err = config.LoadWithEnv(flags.env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("driver", app.Cfg.Database.Driver))

	closeDB, err := initDatabase(app)
	if err != nil {
		return nil, err
	}

	app.Catalog = cache.NewActivityCache(app.Database, app.Cfg.ActivityCache.Size, app.Cfg.ActivityCache.TTL)

	sender, err := newSender(app.Ctx, app.Cfg.Notifications, flags.env, app.Logger)
	if err != nil {
		closeDB()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(sender, app.Logger, app.Cfg.Notifications.RatePerMinute, app.Cfg.Notifications.QueueSize)
	dispatcher.Start()
	app.Notifier = dispatcher

	return func() {
		dispatcher.Stop()
		closeDB()
		app.Logger.Sync()
	}, nil
}

func initDatabase(app *commands.AppContext) (func(), error) {
	dbCfg := app.Cfg.Database

	switch dbCfg.Driver {
	case config.DriverPostgres:
		app.Logger.Debug("Connecting to postgres")
		pg, err := postgres.NewDB(app.Ctx, dbCfg.URL, postgres.Options{
			MaxTxRetries: dbCfg.MaxTxRetries,
			RetryBackoff: dbCfg.RetryBackoff,
			Logger:       app.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.Postgres = pg
		app.Database = pg
		return pg.Close, nil

	case config.DriverMemory:
		mem := db.NewMemoryDB()
		if dbCfg.FixturesPath != "" {
			var err error
			mem, err = db.LoadFixtures(dbCfg.FixturesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load fixtures: %w", err)
			}
		}
		app.Logger.Debug("Using in-memory database", zap.String("fixtures", dbCfg.FixturesPath))
		app.Database = mem
		return func() {}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", dbCfg.Driver)
}

func newSender(ctx context.Context, cfg config.NotificationsConfig, env string, logger *zap.Logger) (notify.Sender, error) {
	switch cfg.Provider {
	case config.ProviderSMTP:
		return smtpclient.NewClient(*cfg.SMTP, cfg.Sender, cfg.SenderName), nil

	case config.ProviderGmail:
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
		}
		tokens, err := utils.NewTokenSource(oauthCfg, env, logger)
		if err != nil {
			return nil, err
		}
		token, err := tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gmail token: %w", err)
		}
		client, err := gmailclient.NewClient(ctx, tokens.Config(), token, cfg.GmailUserID, cfg.Sender, cfg.SenderName)
		if err != nil {
			return nil, fmt.Errorf("failed to create gmail client: %w", err)
		}
		return client, nil
	}

	return notify.LogSender{Logger: logger}, nil
}
