package commands

import (
	"context"
	"fmt"
	"os"

	"advisor-backend/lib/configutil"
	"advisor-backend/lib/coursestore"
	"advisor-backend/lib/respcache"
	"advisor-backend/lib/serviceutil"
	"advisor-backend/services/catalog"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catalog-cli",
	Short: "catalog-cli fetches and inspects the course catalog.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type serviceOverrides struct {
	// overrides config database_path when non-empty
	DatabasePath string
	// skips the response cache entirely
	NoCache bool
}

// openService builds a service from config.json5 next to the working
// directory, plus the local sqlite database and badger cache.
func openService(overrides serviceOverrides) (catalog.Service, func()) {
	cfg, err := configutil.ReadConfig[catalog.Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if overrides.DatabasePath != "" {
		cfg.DatabasePath = overrides.DatabasePath
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "catalog.db"
	}

	store, err := coursestore.Open(cfg.DatabasePath)
	if err != nil {
		serviceutil.Fatal("failed to open course database", err)
	}

	if overrides.NoCache {
		return catalog.NewService(cfg, store, nil), func() { store.Close() }
	}

	db, err := respcache.OpenDB(cfg.CacheDir)
	if err != nil {
		store.Close()
		serviceutil.Fatal("failed to open response cache", err)
	}
	cache := respcache.New(db)

	cleanup := func() {
		db.Close()
		store.Close()
	}
	return catalog.NewService(cfg, store, &cache), cleanup
}
