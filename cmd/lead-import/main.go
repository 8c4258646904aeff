package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/ingest"
	"leadtracker_backend/internal/owners"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/db"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/validator"
)

func main() {
	file := flag.String("file", "", "path to a .csv or .xlsx lead sheet")
	dryRun := flag.Bool("dry-run", false, "reconcile and report without inserting")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: lead-import -file leads.xlsx [-dry-run]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead import", "file", *file, "dryRun", *dryRun)

	if err := run(context.Background(), cfg, log, *file, *dryRun, os.Stdout); err != nil {
		log.Error("lead import failed", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens so that they are released before main
// decides the exit code.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger, file string, dryRun bool, out io.Writer) error {
	table, err := readTable(file)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", file, err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	ownersModule := owners.NewModule(pool)
	fallbackName, err := ownersModule.EnsureFallbackOwner(ctx, cfg.GetFallbackOwnerID())
	if err != nil {
		return fmt.Errorf("ensure fallback owner: %w", err)
	}

	eventBus := events.NewInMemoryBus(log)
	leadsModule, err := leads.NewModule(pool, eventBus, validator.New(), cfg, ownersModule.Repository(), nil, nil, fallbackName, log)
	if err != nil {
		return fmt.Errorf("initialize leads module: %w", err)
	}

	actor := domain.Actor{UserID: cfg.GetFallbackOwnerID(), Name: domain.SystemActorName, Role: domain.RoleAdmin}

	var report ingest.Report
	if dryRun {
		_, report, err = leadsModule.Importer().Prepare(ctx, actor, table)
	} else {
		report, err = leadsModule.Importer().Import(ctx, actor, table)
	}
	eventBus.Wait()
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func readTable(path string) (ingest.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Table{}, err
	}
	defer f.Close()
	return ingest.Read(f)
}
