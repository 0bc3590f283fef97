package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/noah-isme/sma-assessment-api/api/swagger"
	"github.com/noah-isme/sma-assessment-api/migrations"
	"github.com/noah-isme/sma-assessment-api/pkg/config"
	"github.com/noah-isme/sma-assessment-api/pkg/database"
	"github.com/noah-isme/sma-assessment-api/pkg/logger"
)

// @title SMA Assessment API
// @version 1.0.0
// @description Weighted assessment scoring and stage-gated conduction engine
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "api-gateway",
		Short:         "SMA assessment scoring API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flagOverrides(cmd)...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.Int("port", 0, "HTTP port (overrides PORT)")
	f.String("log-level", "", "Log level (overrides LOG_LEVEL)")
	f.String("lock-backend", "", "Assessment lock backend: redis or local (overrides ASSESSMENT_LOCK_BACKEND)")
	f.Bool("auto-migrate", false, "Apply migrations before serving (overrides MIGRATIONS_AUTO)")
	return cmd
}

// flagOverrides turns explicitly set flags into config overrides.
func flagOverrides(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	f := cmd.Flags()
	if f.Changed("port") {
		port, _ := f.GetInt("port")
		opts = append(opts, config.WithOverride("PORT", port))
	}
	if f.Changed("log-level") {
		level, _ := f.GetString("log-level")
		opts = append(opts, config.WithOverride("LOG_LEVEL", level))
	}
	if f.Changed("lock-backend") {
		backend, _ := f.GetString("lock-backend")
		opts = append(opts, config.WithOverride("ASSESSMENT_LOCK_BACKEND", backend))
	}
	if f.Changed("auto-migrate") {
		auto, _ := f.GetBool("auto-migrate")
		opts = append(opts, config.WithOverride("MIGRATIONS_AUTO", auto))
	}
	return opts
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|redo|version]",
		Short:     "Apply database migrations",
		Args:      cobra.RangeArgs(0, 2),
		ValidArgs: []string{"up", "down", "status", "redo", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command, extra := "up", []string(nil)
			if len(args) > 0 {
				command, extra = args[0], args[1:]
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect database: %w", err)
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db, migrations.FS, command, extra...); err != nil {
				return err
			}
			logr.Sugar().Infow("migrations applied", "command", command)
			return nil
		},
	}
}
