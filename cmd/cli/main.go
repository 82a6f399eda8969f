package main

import (
	"fmt"
	"os"

	"github.com/clinic-tools/advisory-engine/pkg/services/advisory"
	"github.com/clinic-tools/advisory-engine/pkg/services/snapshot"
	"github.com/clinic-tools/advisory-engine/pkg/store/duckdb"
	duckdbreport "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/report"
	duckdbsnapshot "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/snapshot"
	duckdbstate "github.com/clinic-tools/advisory-engine/pkg/store/duckdb/state"
	"github.com/clinic-tools/advisory-engine/pkg/terminal"
)

func main() {
	dbPath := os.Getenv("ADVISORY_DB_PATH")
	if dbPath == "" {
		dbPath = "advisory.db"
	}

	engine, err := buildEngine(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli := terminal.NewCLI(terminal.Options{
		Engine: engine,
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildEngine(dbPath string) (*advisory.Engine, error) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: dbPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB at %s: %w", dbPath, err)
	}

	stateStore, err := duckdbstate.NewStore(db)
	if err != nil {
		return nil, err
	}
	reportStore, err := duckdbreport.NewStore(db)
	if err != nil {
		return nil, err
	}
	snapshotStore, err := duckdbsnapshot.NewStore(db)
	if err != nil {
		return nil, err
	}
	provider, err := snapshot.NewProvider(snapshotStore)
	if err != nil {
		return nil, err
	}

	return advisory.NewEngine(advisory.EngineDeps{
		DB:        db,
		States:    stateStore,
		Reports:   reportStore,
		Snapshots: provider,
	})
}
