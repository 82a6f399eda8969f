package main

import (
	"fmt"
	"net"
	"os"

	"github.com/clinic-tools/advisory-engine/pkg/server"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/augment"
	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/rules"
	"github.com/clinic-tools/advisory-engine/pkg/services/config"
	"github.com/clinic-tools/advisory-engine/pkg/services/scheduler"
	"github.com/clinic-tools/advisory-engine/pkg/services/snapshot"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
	duckdbreport "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/report"
	duckdbsnapshot "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/snapshot"
	duckdbstate "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the advisory engine web server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the config file (defaults are used when omitted)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg := config.DefaultConfig()
	if cfgPath != "" {
		loaded, err := config.LoadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Augment.APIKey == "" {
		cfg.Augment.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	table := rules.Default()
	if cfg.RulesPath != "" {
		loaded, err := rules.Load(cfg.RulesPath)
		if err != nil {
			return fmt.Errorf("failed to load rule table: %w", err)
		}
		table = loaded
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.DbPath})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	stateStore, err := duckdbstate.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}
	reportStore, err := duckdbreport.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}
	snapshotStore, err := duckdbsnapshot.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}
	provider, err := snapshot.NewProvider(snapshotStore)
	if err != nil {
		return fmt.Errorf("failed to create snapshot provider: %w", err)
	}

	engine, err := advisory.NewEngine(advisory.EngineDeps{
		DB:        db,
		States:    stateStore,
		Reports:   reportStore,
		Snapshots: provider,
		Generator: augment.NewOpenAIGenerator(cfg.Augment),
		Table:     table,
	})
	if err != nil {
		return fmt.Errorf("failed to create advisory engine: %w", err)
	}

	if cfg.Scheduler.Enabled {
		runner := scheduler.NewRunner(engine, scheduler.RunnerConfig{
			ScanInterval: cfg.Scheduler.ScanInterval,
		})
		go runner.Run(ctx)
		logger.Info().Dur("scan_interval", cfg.Scheduler.ScanInterval).Msg("scheduler started")
	}

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies:    server.Dependencies{Advisory: engine},
	})

	return webAPI.Start()
}
